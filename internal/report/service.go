package report

import (
	"fmt"
	"time"

	"ecodining/internal/models"
	"ecodining/internal/storage"
)

const DefaultInsightDays = 30

// Service loads scans from the archive and builds reports for a site.
type Service struct {
	src           Source
	defaultSiteID string
	now           func() time.Time
}

func NewService(src Source, defaultSiteID string, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{src: src, defaultSiteID: defaultSiteID, now: now}
}

func (s *Service) site(siteID string) string {
	if siteID == "" {
		return s.defaultSiteID
	}
	return siteID
}

func (s *Service) load(siteID string, since, until time.Time) ([]*models.ScanRecord, error) {
	scans, err := s.src.GetScans(storage.ScanFilter{SiteID: siteID, Since: since, Until: until})
	if err != nil {
		return nil, fmt.Errorf("failed to load scans: %w", err)
	}
	return scans, nil
}

// Daily reports on date (YYYY-MM-DD, empty for today).
func (s *Service) Daily(siteID, date string) (*DailyReport, error) {
	siteID = s.site(siteID)
	now := s.now()
	day := now
	if date != "" {
		var err error
		day, err = time.ParseInLocation(dateLayout, date, now.Location())
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", date, err)
		}
	}
	start := startOfDay(day)
	scans, err := s.load(siteID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return Daily(siteID, day, scans), nil
}

func (s *Service) Weekly(siteID string, weeksBack int) (*WeeklyReport, error) {
	if weeksBack < 0 {
		return nil, fmt.Errorf("weeks_back must not be negative, got %d", weeksBack)
	}
	siteID = s.site(siteID)
	end := s.now().AddDate(0, 0, -7*weeksBack)
	scans, err := s.load(siteID, end.AddDate(0, 0, -7), end)
	if err != nil {
		return nil, err
	}
	return Weekly(siteID, end, scans), nil
}

func (s *Service) Insights(siteID string, days int) ([]Insight, error) {
	if days <= 0 {
		days = DefaultInsightDays
	}
	siteID = s.site(siteID)
	now := s.now()
	window := time.Duration(days) * 24 * time.Hour
	scans, err := s.load(siteID, now.Add(-window), now)
	if err != nil {
		return nil, err
	}
	return Insights(siteID, now, window, scans), nil
}
