// Package scheduler provides a daily scheduler for fuel price scraping.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fuelwatch/china-fuel-scraper/internal/scraper"
)

// Scheduler manages the daily scraping schedule. It owns the region mapping
// its runs cover.
type Scheduler struct {
	scraper    *scraper.Scraper
	regions    map[string]string
	scrapeHour int
	logger     zerolog.Logger

	mu        sync.RWMutex
	nextRunAt time.Time
	lastRunAt *time.Time
	running   bool
}

// New creates a new Scheduler.
func New(s *scraper.Scraper, regions map[string]string, scrapeHour int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		scraper:    s,
		regions:    regions,
		scrapeHour: scrapeHour,
		logger:     logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler and blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Int("scrapeHour", s.scrapeHour).Msg("starting scheduler")

	// Catch up immediately if nothing was stored today
	s.runIfNeeded(ctx)

	nextRun := s.calculateNextRunTime()
	s.mu.Lock()
	s.nextRunAt = nextRun
	s.mu.Unlock()

	s.logger.Info().
		Time("nextRun", nextRun).
		Dur("duration", time.Until(nextRun)).
		Msg("next run scheduled")

	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runScrape(ctx)

			nextRun = s.calculateNextRunTime()
			s.mu.Lock()
			s.nextRunAt = nextRun
			s.mu.Unlock()

			s.logger.Info().
				Time("nextRun", nextRun).
				Msg("next run scheduled")

			timer.Reset(time.Until(nextRun))
		}
	}
}

// calculateNextRunTime calculates the next run time based on the scrape hour.
func (s *Scheduler) calculateNextRunTime() time.Time {
	now := time.Now()

	nextRun := time.Date(now.Year(), now.Month(), now.Day(), s.scrapeHour, 0, 0, 0, now.Location())

	// If the run time has already passed today, schedule for tomorrow
	if now.After(nextRun) {
		nextRun = nextRun.Add(24 * time.Hour)
	}

	return nextRun
}

// runIfNeeded runs an immediate scrape when no report was stored today.
func (s *Scheduler) runIfNeeded(ctx context.Context) {
	hasRun, err := s.scraper.HasRunToday(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check if run today")
		return
	}

	if hasRun {
		s.logger.Info().Msg("already ran today, skipping initial run")
		return
	}

	s.logger.Info().Msg("no run for today, running initial scrape")
	s.runScrape(ctx)
}

// runScrape runs the full pipeline and stores the report.
func (s *Scheduler) runScrape(ctx context.Context) {
	s.logger.Info().Msg("running scheduled scrape")

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	if err := s.scraper.ScrapeAndStore(ctx, s.regions); err != nil {
		s.logger.Error().Err(err).Msg("scheduled scrape failed")
	} else {
		s.logger.Info().Msg("scheduled scrape completed")
	}
}

// NextRunAt returns the time of the next scheduled run.
func (s *Scheduler) NextRunAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunAt
}

// LastRunAt returns the time of the last run.
func (s *Scheduler) LastRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunAt
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
