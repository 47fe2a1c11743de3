package scraper

import (
	"time"

	"github.com/fuelwatch/china-fuel-scraper/internal/extract"
	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

// buildOutcome maps a fetch result to the uniform per-region outcome. Pure
// mapping, no I/O: a failed fetch becomes a failure with the classified kind,
// a successful fetch runs extraction and becomes either a success or an
// extraction failure.
func buildOutcome(name string, body []byte, fetchErr error, fetchedAt time.Time) models.Outcome {
	if fetchErr != nil {
		return models.NewFailureOutcome(name, models.AsScrapeError(fetchErr), fetchedAt)
	}

	result, err := extract.Extract(body)
	if err != nil {
		return models.NewFailureOutcome(name, models.AsScrapeError(err), fetchedAt)
	}

	return models.NewSuccessOutcome(name, result.Prices, result.Trend, result.NextAdjustment, fetchedAt)
}
