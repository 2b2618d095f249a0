// cmd/ecodining/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecodining/internal/config"
	"ecodining/internal/estimator"
	"ecodining/internal/ledger"
	"ecodining/internal/report"
	"ecodining/internal/server"
	"ecodining/internal/storage"
	"ecodining/internal/workflow"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.ShowVersion {
		fmt.Printf("ecodining version %s\n", server.Version)
		os.Exit(0)
	}

	menu, err := workflow.NewMenu(cfg.Dishes)
	if err != nil {
		log.Fatalf("Invalid dish menu: %v", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	opts := workflow.Options{
		SiteID:         cfg.SiteID,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
	}

	var reports *report.Service
	if cfg.DBPath != "" {
		archive, err := storage.NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open scan archive: %v", err)
		}
		defer archive.Close()
		opts.Archive = archive
		reports = report.NewService(archive, cfg.SiteID, nil)
	} else {
		log.Println("Scan archive disabled, reports will be unavailable")
	}

	wf := workflow.New(
		menu,
		estimator.New(rand.New(rand.NewSource(seed))),
		ledger.New(cfg.StartingBalance, cfg.HistoryLimit),
		opts,
	)

	srv := server.NewScanServer(&server.Config{Host: cfg.Host, Port: cfg.Port}, wf, reports)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
		log.Println("Received shutdown signal")
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
