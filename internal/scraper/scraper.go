// Package scraper orchestrates the fetch-extract-aggregate pipeline across
// all configured regions.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/fuelwatch/china-fuel-scraper/internal/api"
	"github.com/fuelwatch/china-fuel-scraper/internal/database"
	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

// Mode selects how regions are processed.
type Mode string

const (
	// ModeParallel processes regions concurrently under the gate.
	ModeParallel Mode = "parallel"
	// ModeSequential processes regions one at a time with a fixed delay
	// between consecutive fetches.
	ModeSequential Mode = "sequential"
)

// RunConfig bounds one scrape run.
type RunConfig struct {
	// Mode is parallel or sequential.
	Mode Mode
	// Concurrency is the global cap on simultaneous fetches.
	Concurrency int
	// PerHostLimit is the per-upstream-host cap, lower than Concurrency.
	PerHostLimit int
	// Delay is the inter-fetch delay in sequential mode.
	Delay time.Duration
}

// MetricsRecorder receives pipeline observations. Implemented by the HTTP
// package's Prometheus metrics; nil-safe via SetMetricsRecorder.
type MetricsRecorder interface {
	RecordFetch(result string, seconds float64)
	RecordRun(status string, stats models.Statistics, seconds float64)
}

// Metrics holds run metrics for the /status endpoint.
type Metrics struct {
	mu           sync.RWMutex
	TotalRuns    int64
	LastRunAt    *time.Time
	LastDuration time.Duration
	LastSummary  *models.RunSummary
}

// MetricsSnapshot is a thread-safe copy of Metrics data.
type MetricsSnapshot struct {
	TotalRuns    int64
	LastRunAt    *time.Time
	LastDuration time.Duration
	LastSummary  *models.RunSummary
}

// GetSnapshot returns a thread-safe snapshot of the metrics.
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		TotalRuns:    m.TotalRuns,
		LastRunAt:    m.LastRunAt,
		LastDuration: m.LastDuration,
		LastSummary:  m.LastSummary,
	}
}

// Scraper drives the per-region pipeline and funnels all outcomes into the
// aggregator. Regions are supplied by the caller on every run; the scraper
// never loads configuration itself.
type Scraper struct {
	source     api.Source
	db         *database.DB
	cfg        RunConfig
	outputFile string
	logger     zerolog.Logger

	metrics  Metrics
	recorder MetricsRecorder
}

// New creates a new Scraper. db may be nil when no persistence is configured;
// outputFile may be empty to skip the report file.
func New(source api.Source, db *database.DB, cfg RunConfig, outputFile string, logger zerolog.Logger) *Scraper {
	return &Scraper{
		source:     source,
		db:         db,
		cfg:        cfg,
		outputFile: outputFile,
		logger:     logger.With().Str("component", "scraper").Logger(),
	}
}

// SetMetricsRecorder wires Prometheus recording into the pipeline.
func (s *Scraper) SetMetricsRecorder(r MetricsRecorder) {
	s.recorder = r
}

// Metrics returns the run metrics consumed by the /status endpoint.
func (s *Scraper) Metrics() *Metrics {
	return &s.metrics
}

// Run processes every region and returns exactly one outcome per region.
// Outcomes complete in no particular order; completeness is guaranteed even
// when individual regions fail.
func (s *Scraper) Run(ctx context.Context, regions map[string]string) map[string]models.Outcome {
	s.logger.Info().
		Int("regions", len(regions)).
		Str("mode", string(s.cfg.Mode)).
		Int("concurrency", s.cfg.Concurrency).
		Msg("starting run")

	if s.cfg.Mode == ModeSequential {
		return s.runSequential(ctx, regions)
	}
	return s.runParallel(ctx, regions)
}

// runParallel runs one goroutine per region. The gate bounds the fetches;
// join-all semantics make sure no outcome is dropped.
func (s *Scraper) runParallel(ctx context.Context, regions map[string]string) map[string]models.Outcome {
	gate := NewGate(s.cfg.Concurrency, s.cfg.PerHostLimit)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[string]models.Outcome, len(regions))
	)

	for name, code := range regions {
		wg.Add(1)
		go func(name, code string) {
			defer wg.Done()
			outcome := s.processRegion(ctx, name, code, gate)
			mu.Lock()
			outcomes[name] = outcome
			mu.Unlock()
		}(name, code)
	}

	wg.Wait()
	return outcomes
}

// runSequential processes regions one at a time with a fixed inter-fetch
// delay. The limiter makes the wait context-cancellable; the first fetch is
// not delayed.
func (s *Scraper) runSequential(ctx context.Context, regions map[string]string) map[string]models.Outcome {
	delay := s.cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	outcomes := make(map[string]models.Outcome, len(regions))
	for name, code := range regions {
		if err := limiter.Wait(ctx); err != nil {
			outcomes[name] = models.NewFailureOutcome(name, models.NewTransportError(fmt.Sprintf("waiting for fetch slot: %v", err)), time.Now())
			continue
		}
		outcomes[name] = s.processRegion(ctx, name, code, nil)
	}
	return outcomes
}

// processRegion runs the fetch-extract-build unit for one region. The
// deferred recover is the containment boundary: a panic anywhere in the unit
// is recorded as an unexpected failure and never aborts the batch.
func (s *Scraper) processRegion(ctx context.Context, name, code string, gate *Gate) (out models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("region", name).
				Interface("panic", r).
				Msg("recovered panic while processing region")
			out = models.NewFailureOutcome(name, models.NewUnexpectedError(fmt.Sprintf("panic: %v", r)), time.Now())
		}
	}()

	body, fetchDuration, fetchErr := s.fetchUnderGate(ctx, code, gate)

	s.recordFetch(fetchErr, fetchDuration)

	outcome := buildOutcome(name, body, fetchErr, time.Now())

	if outcome.IsSuccess() {
		s.logger.Debug().
			Str("region", name).
			Dur("fetchDuration", fetchDuration).
			Msg("region scraped")
	} else {
		s.logger.Warn().
			Str("region", name).
			Str("errorCode", outcome.Error.Code).
			Str("errorMessage", outcome.Error.Message).
			Msg("region failed")
	}

	return outcome
}

// fetchUnderGate performs the single fetch while holding a gate slot. The
// release is deferred so the slot comes back even when the source panics;
// extraction happens outside the gate.
func (s *Scraper) fetchUnderGate(ctx context.Context, code string, gate *Gate) ([]byte, time.Duration, error) {
	if gate != nil {
		if err := gate.Acquire(ctx, s.source.Host()); err != nil {
			return nil, 0, models.NewTransportError(fmt.Sprintf("acquiring fetch slot: %v", err))
		}
		defer gate.Release(s.source.Host())
	}

	start := time.Now()
	body, err := s.source.FetchRegion(ctx, code)
	return body, time.Since(start), err
}

func (s *Scraper) recordFetch(fetchErr error, duration time.Duration) {
	if s.recorder == nil {
		return
	}
	result := models.StatusSuccess
	if fetchErr != nil {
		result = string(models.AsScrapeError(fetchErr).Kind)
	}
	s.recorder.RecordFetch(result, duration.Seconds())
}

// RunReport runs the full pipeline and aggregates the outcomes into the
// final report.
func (s *Scraper) RunReport(ctx context.Context, regions map[string]string) models.Report {
	start := time.Now()
	outcomes := s.Run(ctx, regions)
	report := Aggregate(outcomes, time.Now())
	duration := time.Since(start)

	s.updateMetrics(report, duration)

	s.logger.Info().
		Str("status", report.Status).
		Int("total", report.Statistics.Total).
		Int("success", report.Statistics.Success).
		Int("error", report.Statistics.Error).
		Float64("rate", report.Statistics.Rate).
		Dur("duration", duration).
		Msg("run completed")

	return report
}

func (s *Scraper) updateMetrics(report models.Report, duration time.Duration) {
	now := time.Now()
	summary := &models.RunSummary{
		Status:     report.Status,
		Total:      report.Statistics.Total,
		Success:    report.Statistics.Success,
		Error:      report.Statistics.Error,
		Rate:       report.Statistics.Rate,
		DurationMs: duration.Milliseconds(),
	}

	s.metrics.mu.Lock()
	s.metrics.TotalRuns++
	s.metrics.LastRunAt = &now
	s.metrics.LastDuration = duration
	s.metrics.LastSummary = summary
	s.metrics.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordRun(report.Status, report.Statistics, duration.Seconds())
	}
}

// ScrapeAndStore runs the pipeline over the given regions and hands the
// report to the persistence collaborators (report file, database).
func (s *Scraper) ScrapeAndStore(ctx context.Context, regions map[string]string) error {
	report := s.RunReport(ctx, regions)

	var errs []error

	if s.outputFile != "" {
		if err := writeReportFile(s.outputFile, report); err != nil {
			s.logger.Error().Err(err).Str("path", s.outputFile).Msg("failed to write report file")
			errs = append(errs, err)
		} else {
			s.logger.Info().Str("path", s.outputFile).Msg("report written")
		}
	}

	if s.db != nil {
		if err := s.db.InsertReport(ctx, report); err != nil {
			s.logger.Error().Err(err).Msg("failed to store report")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// HasRunToday checks whether a report was already stored today. Without a
// database every day looks unscraped.
func (s *Scraper) HasRunToday(ctx context.Context) (bool, error) {
	if s.db == nil {
		return false, nil
	}
	return s.db.HasReportForDate(ctx, time.Now().In(models.ChinaTZ))
}

func writeReportFile(path string, report models.Report) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}
