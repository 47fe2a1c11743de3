// Package database provides PostgreSQL persistence for scrape reports.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

// DB wraps the PostgreSQL connection and provides report operations.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New creates a new database connection.
func New(dsn string, logger zerolog.Logger) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{
		db:     db,
		logger: logger.With().Str("component", "database").Logger(),
	}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks if the database connection is alive.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// InsertReport stores one aggregated report row plus its full JSON payload.
func (d *DB) InsertReport(ctx context.Context, report models.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report payload: %w", err)
	}

	query := `
		INSERT INTO fuel_reports (status, data_source, version, total, success_count, error_count, success_rate, generated_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = d.db.ExecContext(ctx, query,
		report.Status,
		report.DataSource,
		report.Version,
		report.Statistics.Total,
		report.Statistics.Success,
		report.Statistics.Error,
		report.Statistics.Rate,
		report.LastUpdated,
		payload,
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}

	d.logger.Debug().
		Str("status", report.Status).
		Int("total", report.Statistics.Total).
		Int("success", report.Statistics.Success).
		Msg("inserted report record")

	return nil
}

// HasReportForDate checks if a report was already stored for the given day.
func (d *DB) HasReportForDate(ctx context.Context, date time.Time) (bool, error) {
	query := `
		SELECT COUNT(*) FROM fuel_reports
		WHERE created_at >= $1 AND created_at < $2
	`

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var count int
	err := d.db.QueryRowContext(ctx, query, dayStart, dayEnd).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking report existence: %w", err)
	}

	return count > 0, nil
}

// GetTotalReportsCount returns the total number of stored reports.
func (d *DB) GetTotalReportsCount(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fuel_reports").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting reports: %w", err)
	}
	return count, nil
}
