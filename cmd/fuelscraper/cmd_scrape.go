package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a one-time scrape",
		Long:  "Runs the full pipeline once, writes the JSON report, and stores it when a database is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			logger.Info().
				Str("regionsFile", cfg.RegionsFile).
				Str("outputFile", cfg.OutputFile).
				Str("mode", cfg.Mode).
				Msg("running one-time scrape")

			s, regions, db, err := buildScraper(logger)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			ctx := context.Background()
			if err := s.ScrapeAndStore(ctx, regions); err != nil {
				return fmt.Errorf("scraping: %w", err)
			}

			logger.Info().Msg("scrape completed")
			return nil
		},
	}

	return cmd
}
