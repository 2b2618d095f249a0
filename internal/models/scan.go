// internal/models/scan.go
package models

import (
	"fmt"
	"time"
)

// WasteLevel is the ordinal waste bucket for one tray. Higher means more food
// left behind.
type WasteLevel int

const (
	WasteNone WasteLevel = iota
	WasteMinimal
	WasteModerate
	WasteSignificant
	WasteMostLeft
)

// WasteLevels lists every level in severity order.
var WasteLevels = []WasteLevel{WasteNone, WasteMinimal, WasteModerate, WasteSignificant, WasteMostLeft}

func (l WasteLevel) String() string {
	switch l {
	case WasteNone:
		return "None"
	case WasteMinimal:
		return "Minimal"
	case WasteModerate:
		return "Moderate"
	case WasteSignificant:
		return "Significant"
	case WasteMostLeft:
		return "Most Left"
	default:
		return fmt.Sprintf("WasteLevel(%d)", int(l))
	}
}

func (l WasteLevel) MarshalText() ([]byte, error) {
	if l < WasteNone || l > WasteMostLeft {
		return nil, fmt.Errorf("invalid waste level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *WasteLevel) UnmarshalText(text []byte) error {
	level, err := ParseWasteLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// ParseWasteLevel maps a display name back to its level.
func ParseWasteLevel(s string) (WasteLevel, error) {
	for _, l := range WasteLevels {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown waste level %q", s)
}

type Impact struct {
	WeightLbs       float64 `json:"weight_lbs"`
	CostUSD         float64 `json:"cost_usd"`
	CO2Kg           float64 `json:"co2_kg"`
	MealsEquivalent float64 `json:"meals_equivalent"`
}

// ScanResult is produced once per completed analysis and never changes after.
type ScanResult struct {
	Dish         string     `json:"dish"`
	WasteLevel   WasteLevel `json:"waste_level"`
	WasteRatio   float64    `json:"waste_ratio"`
	WastePercent float64    `json:"waste_percent"`
	Points       int        `json:"points"`
	Tips         []string   `json:"tips"`
	Impact       Impact     `json:"impact"`
}

type HistoryEntry struct {
	ID         string     `json:"id"`
	Dish       string     `json:"dish"`
	WasteLevel WasteLevel `json:"waste_level"`
	TimeLabel  string     `json:"time"`
	Points     int        `json:"points"`
}

// ScanRecord is the archived form of a committed scan.
type ScanRecord struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	SiteID     string     `json:"site_id"`
	Dish       string     `json:"dish"`
	WasteRatio float64    `json:"waste_ratio"`
	WasteLevel WasteLevel `json:"waste_level"`
	Points     int        `json:"points"`
	Impact     Impact     `json:"impact"`
}

// DefaultDishes is the cafeteria menu used when no override is configured.
var DefaultDishes = []string{
	"Pizza",
	"Pasta",
	"Salad Bar",
	"Burger",
	"Chicken Tenders",
	"Tacos",
	"Soup",
	"Stir Fry",
	"Sandwich",
	"Mac & Cheese",
}
