// Package config reads process settings from flags, environment variables
// and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ecodining/internal/ledger"
	"ecodining/internal/models"
)

const envPrefix = "ECODINING_"

type Config struct {
	Host            string
	Port            int
	DBPath          string
	SiteID          string
	StartingBalance int
	HistoryLimit    int
	AnalyzeTimeout  time.Duration
	Dishes          []string
	Seed            int64
	ShowVersion     bool
}

func Default() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8011,
		DBPath:          "ecodining.db",
		SiteID:          "school_001",
		StartingBalance: 847,
		HistoryLimit:    ledger.DefaultLimit,
		Dishes:          append([]string(nil), models.DefaultDishes...),
	}
}

// Load applies .env, then ECODINING_* variables, then flags parsed from args.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	cfg := Default()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	fset := flag.NewFlagSet("ecodining", flag.ContinueOnError)
	fset.StringVar(&cfg.Host, "host", cfg.Host, "Host address")
	fset.IntVar(&cfg.Port, "port", cfg.Port, "Port for HTTP transport")
	fset.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Scan archive database path (empty disables the archive)")
	fset.StringVar(&cfg.SiteID, "site-id", cfg.SiteID, "Site the scans are recorded under")
	fset.IntVar(&cfg.StartingBalance, "starting-balance", cfg.StartingBalance, "Point balance at startup")
	fset.IntVar(&cfg.HistoryLimit, "history-limit", cfg.HistoryLimit, "Number of recent scans kept in history")
	fset.DurationVar(&cfg.AnalyzeTimeout, "analyze-timeout", cfg.AnalyzeTimeout, "Maximum analysis time (0 for none)")
	fset.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Seed for the fallback ratio (0 seeds from the clock)")
	dishes := fset.String("dishes", strings.Join(cfg.Dishes, ","), "Comma separated dish menu")
	fset.BoolVar(&cfg.ShowVersion, "version", false, "Show version")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	cfg.Dishes = splitList(*dishes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(envPrefix + "HOST"); v != "" {
		c.Host = v
	}
	if v := getenv(envPrefix + "DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := getenv(envPrefix + "SITE_ID"); v != "" {
		c.SiteID = v
	}
	if v := getenv(envPrefix + "DISHES"); v != "" {
		c.Dishes = splitList(v)
	}

	ints := map[string]*int{
		"PORT":             &c.Port,
		"STARTING_BALANCE": &c.StartingBalance,
		"HISTORY_LIMIT":    &c.HistoryLimit,
	}
	for key, dst := range ints {
		v := getenv(envPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
		}
		*dst = n
	}

	if v := getenv(envPrefix + "SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSEED: %w", envPrefix, err)
		}
		c.Seed = n
	}
	if v := getenv(envPrefix + "ANALYZE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sANALYZE_TIMEOUT: %w", envPrefix, err)
		}
		c.AnalyzeTimeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history limit must be at least 1, got %d", c.HistoryLimit)
	}
	if c.AnalyzeTimeout < 0 {
		return fmt.Errorf("analyze timeout must not be negative, got %s", c.AnalyzeTimeout)
	}
	if len(c.Dishes) == 0 {
		return fmt.Errorf("at least one dish is required")
	}
	seen := make(map[string]bool, len(c.Dishes))
	for _, d := range c.Dishes {
		if seen[d] {
			return fmt.Errorf("dish %q listed twice", d)
		}
		seen[d] = true
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
