package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fuelwatch/china-fuel-scraper/internal/http"
	"github.com/fuelwatch/china-fuel-scraper/internal/scheduler"
)

func runCmd() *cobra.Command {
	var scrapeHour int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the continuous scraper service",
		Long:  "Starts the fuel price scraper with an internal scheduler that runs daily at the specified hour.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Str("mode", cfg.Mode).
				Int("scrapeHour", scrapeHour).
				Msg("starting fuel price scraper")

			s, regions, db, err := buildScraper(logger)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			// Create scheduler
			sched := scheduler.New(s, regions, scrapeHour, logger)

			// Create HTTP server and wire its metrics into the pipeline
			httpServer := http.NewServer(cfg.HTTPAddr, s, sched, db, logger)
			s.SetMetricsRecorder(httpServer.Metrics())

			// Setup signal handling
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Start HTTP server in goroutine
			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			// Start scheduler in goroutine
			go func() {
				if err := sched.Start(ctx); err != nil && err != context.Canceled {
					logger.Error().Err(err).Msg("scheduler error")
					cancel()
				}
			}()

			// Wait for signal
			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			case <-ctx.Done():
			}

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&scrapeHour, "scrape-hour", cfg.ScrapeHour, "Hour of day (0-23) to scrape")

	return cmd
}
