// Package main provides the entry point for the fuel price scraper CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fuelwatch/china-fuel-scraper/internal/api/qiyoujiage"
	"github.com/fuelwatch/china-fuel-scraper/internal/config"
	"github.com/fuelwatch/china-fuel-scraper/internal/database"
	"github.com/fuelwatch/china-fuel-scraper/internal/scraper"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var cfg *config.Config

func main() {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	rootCmd := &cobra.Command{
		Use:   "fuelscraper",
		Short: "Fuel Price Scraper - province-level fuel prices from qiyoujiage.com",
		Long: `Fuel Price Scraper retrieves per-province fuel price listings from
www.qiyoujiage.com, extracts prices for the 92/95/98 gasoline grades and 0#
diesel plus the forward adjustment trend, and aggregates everything into one
versioned JSON report.

Features:
  - Bounded-concurrency fetching (global and per-host caps)
  - Sequential polite mode with a fixed inter-request delay
  - Per-province failure isolation with a three-way report status
  - Daily automated scraping with configurable schedule
  - Prometheus metrics endpoint
  - Status endpoint for operational visibility`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string (empty disables persistence)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address for /metrics, /status")
	rootCmd.PersistentFlags().StringVar(&cfg.RegionsFile, "regions-file", cfg.RegionsFile, "Path to the province name -> code mapping")
	rootCmd.PersistentFlags().StringVar(&cfg.OutputFile, "output-file", cfg.OutputFile, "Path the JSON report is written to")
	rootCmd.PersistentFlags().StringVar(&cfg.Mode, "mode", cfg.Mode, "Execution mode (parallel, sequential)")
	rootCmd.PersistentFlags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Global cap on simultaneous fetches")
	rootCmd.PersistentFlags().IntVar(&cfg.PerHostLimit, "per-host-limit", cfg.PerHostLimit, "Per-host cap on simultaneous fetches")
	rootCmd.PersistentFlags().DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Per-fetch timeout")
	rootCmd.PersistentFlags().DurationVar(&cfg.SequentialDelay, "sequential-delay", cfg.SequentialDelay, "Inter-fetch delay in sequential mode")

	// Add subcommands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger() zerolog.Logger {
	var logger zerolog.Logger

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	return logger
}

// buildScraper wires the source, optional database, and run configuration
// into a ready scraper, and loads the region mapping the callers hand to each
// run. The returned DB is nil when no DSN is configured.
func buildScraper(logger zerolog.Logger) (*scraper.Scraper, map[string]string, *database.DB, error) {
	regions, err := config.LoadRegions(cfg.RegionsFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading regions: %w", err)
	}

	var db *database.DB
	if cfg.PostgresDSN != "" {
		db, err = database.New(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
	}

	mode := scraper.ModeParallel
	if cfg.Mode == string(scraper.ModeSequential) {
		mode = scraper.ModeSequential
	}

	source := qiyoujiage.NewWithOptions(logger, cfg.BaseURL, cfg.RequestTimeout)
	runCfg := scraper.RunConfig{
		Mode:         mode,
		Concurrency:  cfg.Concurrency,
		PerHostLimit: cfg.PerHostLimit,
		Delay:        cfg.SequentialDelay,
	}

	s := scraper.New(source, db, runCfg, cfg.OutputFile, logger)
	return s, regions, db, nil
}
