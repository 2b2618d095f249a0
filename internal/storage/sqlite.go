// internal/storage/sqlite.go
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"ecodining/internal/models"
)

// Fixed width so stored timestamps sort and compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStorage struct {
	db *sql.DB
}

// ScanFilter narrows GetScans. Zero values mean no bound.
type ScanFilter struct {
	SiteID string
	Since  time.Time
	Until  time.Time
	Limit  int
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS scans (
        id TEXT PRIMARY KEY,
        timestamp TEXT NOT NULL,
        site_id TEXT NOT NULL,
        dish TEXT NOT NULL,
        waste_ratio REAL NOT NULL,
        waste_level TEXT NOT NULL,
        points INTEGER NOT NULL,
        weight_lbs REAL NOT NULL,
        cost_usd REAL NOT NULL,
        co2_kg REAL NOT NULL,
        meals_equivalent REAL NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_scans_site_timestamp ON scans(site_id, timestamp);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) SaveScan(scan *models.ScanRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO scans (id, timestamp, site_id, dish, waste_ratio, waste_level, points,
                           weight_lbs, cost_usd, co2_kg, meals_equivalent)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = tx.Exec(query,
		scan.ID, scan.Timestamp.UTC().Format(timeLayout), scan.SiteID, scan.Dish,
		scan.WasteRatio, scan.WasteLevel.String(), scan.Points,
		scan.Impact.WeightLbs, scan.Impact.CostUSD, scan.Impact.CO2Kg, scan.Impact.MealsEquivalent)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	return tx.Commit()
}

// GetScans returns archived scans, newest first.
func (s *SQLiteStorage) GetScans(filter ScanFilter) ([]*models.ScanRecord, error) {
	query := `
        SELECT id, timestamp, site_id, dish, waste_ratio, waste_level, points,
               weight_lbs, cost_usd, co2_kg, meals_equivalent
        FROM scans
        WHERE 1=1
    `
	args := []interface{}{}

	if filter.SiteID != "" {
		query += " AND site_id = ?"
		args = append(args, filter.SiteID)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	if !filter.Until.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.Until.UTC().Format(timeLayout))
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*models.ScanRecord
	for rows.Next() {
		scan := &models.ScanRecord{}
		var timestampStr, levelStr string

		err := rows.Scan(
			&scan.ID, &timestampStr, &scan.SiteID, &scan.Dish, &scan.WasteRatio, &levelStr,
			&scan.Points, &scan.Impact.WeightLbs, &scan.Impact.CostUSD, &scan.Impact.CO2Kg,
			&scan.Impact.MealsEquivalent)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if scan.Timestamp, err = time.Parse(timeLayout, timestampStr); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		if scan.WasteLevel, err = models.ParseWasteLevel(levelStr); err != nil {
			return nil, fmt.Errorf("failed to parse waste level for scan %s: %w", scan.ID, err)
		}

		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scans: %w", err)
	}

	return scans, nil
}
