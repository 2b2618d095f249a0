// Package scoring maps waste ratios to levels, points, coaching tips and
// impact estimates.
package scoring

import (
	"strconv"

	"github.com/shopspring/decimal"

	"ecodining/internal/models"
)

// Reference tray used for the impact estimate: an 8 oz portion costing $3.50.
const (
	ReferencePortionOz = 8
	ReferenceWeightLbs = ReferencePortionOz / 16.0
	ReferenceCostUSD   = 3.50
	CO2KgPerLb         = 2.0
	LbsPerMeal         = 0.33
)

// Upper bounds (inclusive) of each band, checked in order.
var bands = []struct {
	upper float64
	level models.WasteLevel
}{
	{0.05, models.WasteNone},
	{0.15, models.WasteMinimal},
	{0.30, models.WasteModerate},
	{0.50, models.WasteSignificant},
}

var points = map[models.WasteLevel]int{
	models.WasteNone:        15,
	models.WasteMinimal:     10,
	models.WasteModerate:    5,
	models.WasteSignificant: 2,
	models.WasteMostLeft:    1,
}

var portionTips = []string{
	"Try taking smaller portions",
	"You can always go back for seconds!",
	"Consider trying the half-portion option",
}

type Score struct {
	Points int           `json:"points"`
	Tips   []string      `json:"tips"`
	Impact models.Impact `json:"impact"`
}

// Classify returns the waste level for a ratio.
func Classify(ratio float64) models.WasteLevel {
	for _, b := range bands {
		if ratio <= b.upper {
			return b.level
		}
	}
	return models.WasteMostLeft
}

func Points(level models.WasteLevel) int {
	return points[level]
}

// Tips returns a fresh copy of the coaching messages for a level.
func Tips(level models.WasteLevel) []string {
	switch level {
	case models.WasteSignificant, models.WasteMostLeft:
		return append([]string(nil), portionTips...)
	case models.WasteNone:
		return []string{"Amazing job! You're a SmartPlate champion! 🏆"}
	case models.WasteMinimal:
		return []string{"Great effort! Keep it up."}
	default:
		return []string{}
	}
}

// EstimateImpact scales the reference tray by ratio. Each figure is computed
// in float64 and then rounded, weight to three places and the rest to two.
func EstimateImpact(ratio float64) models.Impact {
	weight := ratio * ReferencePortionOz / 16
	return models.Impact{
		WeightLbs:       fixed(weight, 3),
		CostUSD:         fixed(ratio*ReferenceCostUSD, 2),
		CO2Kg:           fixed(weight*CO2KgPerLb, 2),
		MealsEquivalent: fixed(weight/LbsPerMeal, 2),
	}
}

// Percent converts a ratio to a display percentage with one decimal.
func Percent(ratio float64) float64 {
	return fixed(ratio*100, 1)
}

// fixed rounds the exact binary value of f half up to places decimals.
// 0.83*3.50 is stored just below 2.905, so it rounds to 2.90.
func fixed(f float64, places int32) float64 {
	d, err := decimal.NewFromString(strconv.FormatFloat(f, 'f', 30, 64))
	if err != nil {
		return f
	}
	return d.Round(places).InexactFloat64()
}

func ScoreFor(level models.WasteLevel, ratio float64) Score {
	return Score{
		Points: Points(level),
		Tips:   Tips(level),
		Impact: EstimateImpact(ratio),
	}
}

// Evaluate classifies ratio and builds the full scan result for dish.
func Evaluate(dish string, ratio float64) *models.ScanResult {
	level := Classify(ratio)
	score := ScoreFor(level, ratio)
	return &models.ScanResult{
		Dish:         dish,
		WasteLevel:   level,
		WasteRatio:   ratio,
		WastePercent: Percent(ratio),
		Points:       score.Points,
		Tips:         score.Tips,
		Impact:       score.Impact,
	}
}
