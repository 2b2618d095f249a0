// Package report aggregates archived scans into staff-facing reports.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"ecodining/internal/models"
	"ecodining/internal/storage"
)

const (
	highWasteAlert   = 0.30
	reduceThreshold  = 0.35
	monitorThreshold = 0.20
	topOffenderCount = 5
	dateLayout       = "2006-01-02"
)

// Source is the read side of the scan archive.
type Source interface {
	GetScans(filter storage.ScanFilter) ([]*models.ScanRecord, error)
}

type Totals struct {
	WeightLbs float64 `json:"weight_lbs"`
	CostUSD   float64 `json:"cost_usd"`
	CO2Kg     float64 `json:"co2_kg"`
}

type DishSummary struct {
	Dish           string  `json:"dish"`
	Scans          int     `json:"scans"`
	AvgWastePct    float64 `json:"avg_waste_pct"`
	TotalWeightLbs float64 `json:"total_weight_lbs"`
	TotalCostUSD   float64 `json:"total_cost"`
	TotalCO2Kg     float64 `json:"total_co2_kg"`
	Recommendation string  `json:"recommendation"`
}

type DailyReport struct {
	Date        string        `json:"date"`
	SiteID      string        `json:"site_id"`
	TotalScans  int           `json:"total_scans"`
	AvgWastePct float64       `json:"avg_waste_pct"`
	Totals      Totals        `json:"totals"`
	ByDish      []DishSummary `json:"by_dish"`
}

type DayBreakdown struct {
	Date        string  `json:"date"`
	Scans       int     `json:"scans"`
	AvgWastePct float64 `json:"avg_waste_pct"`
	CostUSD     float64 `json:"cost_usd"`
}

type Offender struct {
	Dish        string  `json:"dish"`
	AvgWastePct float64 `json:"avg_waste_pct"`
	Scans       int     `json:"scans"`
}

type WeeklyReport struct {
	WeekStart       string         `json:"week_start"`
	WeekEnd         string         `json:"week_end"`
	DailyBreakdown  []DayBreakdown `json:"daily_breakdown"`
	TopOffenders    []Offender     `json:"top_offenders"`
	Recommendations []string       `json:"recommendations"`
}

type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Action      string `json:"action,omitempty"`
}

// Daily summarises the scans that fall on day (in day's location).
func Daily(siteID string, day time.Time, scans []*models.ScanRecord) *DailyReport {
	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)
	var todays []*models.ScanRecord
	for _, s := range scans {
		if s.SiteID == siteID && !s.Timestamp.Before(start) && s.Timestamp.Before(end) {
			todays = append(todays, s)
		}
	}

	rep := &DailyReport{Date: start.Format(dateLayout), SiteID: siteID, TotalScans: len(todays), ByDish: []DishSummary{}}
	if len(todays) == 0 {
		return rep
	}

	rep.AvgWastePct = percent(stat.Mean(ratios(todays), nil))
	rep.Totals = totals(todays)

	for dish, group := range groupBy(todays, func(s *models.ScanRecord) string { return s.Dish }) {
		avg := stat.Mean(ratios(group), nil)
		t := totals(group)
		rep.ByDish = append(rep.ByDish, DishSummary{
			Dish:           dish,
			Scans:          len(group),
			AvgWastePct:    percent(avg),
			TotalWeightLbs: t.WeightLbs,
			TotalCostUSD:   t.CostUSD,
			TotalCO2Kg:     t.CO2Kg,
			Recommendation: DishRecommendation(avg),
		})
	}
	sort.Slice(rep.ByDish, func(i, j int) bool {
		if rep.ByDish[i].AvgWastePct != rep.ByDish[j].AvgWastePct {
			return rep.ByDish[i].AvgWastePct > rep.ByDish[j].AvgWastePct
		}
		return rep.ByDish[i].Dish < rep.ByDish[j].Dish
	})
	return rep
}

// Weekly covers the seven days ending at end.
func Weekly(siteID string, end time.Time, scans []*models.ScanRecord) *WeeklyReport {
	start := end.AddDate(0, 0, -7)
	var week []*models.ScanRecord
	for _, s := range scans {
		if s.SiteID == siteID && !s.Timestamp.Before(start) && !s.Timestamp.After(end) {
			week = append(week, s)
		}
	}

	rep := &WeeklyReport{
		WeekStart:       start.Format(dateLayout),
		WeekEnd:         end.Format(dateLayout),
		DailyBreakdown:  []DayBreakdown{},
		TopOffenders:    []Offender{},
		Recommendations: []string{},
	}
	if len(week) == 0 {
		return rep
	}

	byDay := groupBy(week, func(s *models.ScanRecord) string { return s.Timestamp.In(end.Location()).Format(dateLayout) })
	for day, group := range byDay {
		rep.DailyBreakdown = append(rep.DailyBreakdown, DayBreakdown{
			Date:        day,
			Scans:       len(group),
			AvgWastePct: percent(stat.Mean(ratios(group), nil)),
			CostUSD:     totals(group).CostUSD,
		})
	}
	sort.Slice(rep.DailyBreakdown, func(i, j int) bool {
		return rep.DailyBreakdown[i].Date < rep.DailyBreakdown[j].Date
	})

	var offenders []Offender
	for dish, group := range groupBy(week, func(s *models.ScanRecord) string { return s.Dish }) {
		offenders = append(offenders, Offender{
			Dish:        dish,
			AvgWastePct: percent(stat.Mean(ratios(group), nil)),
			Scans:       len(group),
		})
	}
	sort.Slice(offenders, func(i, j int) bool {
		if offenders[i].AvgWastePct != offenders[j].AvgWastePct {
			return offenders[i].AvgWastePct > offenders[j].AvgWastePct
		}
		return offenders[i].Dish < offenders[j].Dish
	})
	rep.Recommendations = WeeklyRecommendations(offenders)
	if len(offenders) > topOffenderCount {
		offenders = offenders[:topOffenderCount]
	}
	rep.TopOffenders = offenders
	return rep
}

// Insights builds the staff insight cards from the scans since now-window.
func Insights(siteID string, now time.Time, window time.Duration, scans []*models.ScanRecord) []Insight {
	cutoff := now.Add(-window)
	var recent []*models.ScanRecord
	for _, s := range scans {
		if s.SiteID == siteID && s.Timestamp.After(cutoff) {
			recent = append(recent, s)
		}
	}
	insights := []Insight{}
	if len(recent) == 0 {
		return insights
	}

	worstDish, worstAvg := extreme(groupBy(recent, func(s *models.ScanRecord) string { return s.Dish }), true)
	if worstAvg > highWasteAlert {
		insights = append(insights, Insight{
			Type:        "alert",
			Title:       fmt.Sprintf("High Waste Alert: %s", worstDish),
			Description: fmt.Sprintf("%s waste up %d%%. Consider reducing portion from 8oz to 6oz.", worstDish, int(worstAvg*100)),
			Priority:    "high",
			Action:      "reduce_portion",
		})
	}

	bestDay, bestAvg := extreme(groupBy(recent, func(s *models.ScanRecord) string { return s.Timestamp.In(now.Location()).Weekday().String() }), false)
	insights = append(insights, Insight{
		Type:        "success",
		Title:       fmt.Sprintf("Success: %s Performance", bestDay),
		Description: fmt.Sprintf("%s shows %d%% less waste. Consider repeating this day's menu.", bestDay, int((1-bestAvg)*100)),
		Priority:    "medium",
	})

	t := totals(recent)
	insights = append(insights, Insight{
		Type:        "info",
		Title:       "Monthly Impact",
		Description: fmt.Sprintf("%.0f lbs saved, $%.0f in savings, %.0f kg CO2 prevented", t.WeightLbs, t.CostUSD, t.CO2Kg),
		Priority:    "info",
	})
	return insights
}

// DishRecommendation advises dining staff on portion size for a dish with
// the given mean waste ratio.
func DishRecommendation(avgWaste float64) string {
	pct := int(avgWaste * 100)
	switch {
	case avgWaste > reduceThreshold:
		return fmt.Sprintf("High waste (%d%%). Reduce portion size by 25%%.", pct)
	case avgWaste > monitorThreshold:
		return fmt.Sprintf("Moderate waste (%d%%). Monitor closely or offer smaller portions.", pct)
	default:
		return fmt.Sprintf("Low waste (%d%%). Current portion size is appropriate.", pct)
	}
}

// WeeklyRecommendations expects offenders sorted worst first.
func WeeklyRecommendations(offenders []Offender) []string {
	var recs []string
	if len(offenders) > 0 && offenders[0].AvgWastePct > 30 {
		top := offenders[0]
		recs = append(recs, fmt.Sprintf("Consider menu change or portion reduction for %s (avg waste: %.1f%%)", top.Dish, top.AvgWastePct))
	}
	recs = append(recs,
		"Monitor Tuesday & Thursday - typically lower waste days.",
		"Survey students on unpopular dishes to inform menu planning.",
	)
	return recs
}

func groupBy(scans []*models.ScanRecord, key func(*models.ScanRecord) string) map[string][]*models.ScanRecord {
	groups := make(map[string][]*models.ScanRecord)
	for _, s := range scans {
		k := key(s)
		groups[k] = append(groups[k], s)
	}
	return groups
}

// extreme returns the group with the highest (or lowest) mean ratio. Ties go
// to the alphabetically first key.
func extreme(groups map[string][]*models.ScanRecord, highest bool) (string, float64) {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bestKey, bestMean := "", 0.0
	for i, k := range keys {
		m := stat.Mean(ratios(groups[k]), nil)
		if i == 0 || (highest && m > bestMean) || (!highest && m < bestMean) {
			bestKey, bestMean = k, m
		}
	}
	return bestKey, bestMean
}

func ratios(scans []*models.ScanRecord) []float64 {
	out := make([]float64, len(scans))
	for i, s := range scans {
		out[i] = s.WasteRatio
	}
	return out
}

func totals(scans []*models.ScanRecord) Totals {
	var w, c, co2 decimal.Decimal
	for _, s := range scans {
		w = w.Add(decimal.NewFromFloat(s.Impact.WeightLbs))
		c = c.Add(decimal.NewFromFloat(s.Impact.CostUSD))
		co2 = co2.Add(decimal.NewFromFloat(s.Impact.CO2Kg))
	}
	return Totals{
		WeightLbs: w.Round(2).InexactFloat64(),
		CostUSD:   c.Round(2).InexactFloat64(),
		CO2Kg:     co2.Round(2).InexactFloat64(),
	}
}

func percent(ratio float64) float64 {
	return decimal.NewFromFloat(ratio).Shift(2).Round(1).InexactFloat64()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
