package scraper

import (
	"math"
	"time"

	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

const (
	// DataSource is the fixed source tag carried in every report.
	DataSource = "www.qiyoujiage.com"
	// ReportVersion is the report schema version.
	ReportVersion = "3.0"
)

// Aggregate derives the final report from the complete set of outcomes.
// Status is error when nothing succeeded, success when nothing failed, and
// partial_success otherwise.
func Aggregate(outcomes map[string]models.Outcome, generatedAt time.Time) models.Report {
	total := len(outcomes)
	success := 0
	for _, o := range outcomes {
		if o.IsSuccess() {
			success++
		}
	}

	status := models.ReportStatusPartial
	switch {
	case success == 0:
		status = models.ReportStatusError
	case success == total:
		status = models.ReportStatusSuccess
	}

	return models.Report{
		Status:      status,
		LastUpdated: models.FormatTimestamp(generatedAt),
		DataSource:  DataSource,
		Version:     ReportVersion,
		Statistics: models.Statistics{
			Total:   total,
			Success: success,
			Error:   total - success,
			Rate:    successRate(success, total),
		},
		Data: outcomes,
	}
}

// successRate is the success percentage rounded to one decimal place. A run
// over zero regions is a configuration error; it reports 0 rather than NaN.
func successRate(success, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(success)/float64(total)*1000) / 10
}
