// Package http provides HTTP server functionality for the fuel price scraper.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

// Metrics holds all Prometheus metrics for the scraper. It implements the
// scraper package's MetricsRecorder.
type Metrics struct {
	// Fetch metrics
	FetchRequestsTotal *prometheus.CounterVec
	FetchDuration      prometheus.Histogram

	// Run metrics
	LastRunTimestamp prometheus.Gauge
	RunDuration      prometheus.Histogram
	LastRunRegions   *prometheus.GaugeVec
	LastRunRate      prometheus.Gauge
	RunsTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		FetchRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelscraper_fetch_requests_total",
				Help: "Total number of region fetches by result (success or error kind)",
			},
			[]string{"result"},
		),
		FetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fuelscraper_fetch_duration_seconds",
				Help:    "Region fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		LastRunTimestamp: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fuelscraper_last_run_timestamp",
				Help: "Timestamp of the last completed scrape run",
			},
		),
		RunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fuelscraper_run_duration_seconds",
				Help:    "Full scrape run duration in seconds",
				Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
			},
		),
		LastRunRegions: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelscraper_last_run_regions",
				Help: "Region count of the last run by outcome status",
			},
			[]string{"status"},
		),
		LastRunRate: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fuelscraper_last_run_success_rate",
				Help: "Success rate percentage of the last run",
			},
		),
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelscraper_runs_total",
				Help: "Total number of scrape runs by report status",
			},
			[]string{"status"},
		),
	}
}

// RecordFetch records one region fetch observation.
func (m *Metrics) RecordFetch(result string, seconds float64) {
	m.FetchRequestsTotal.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(seconds)
}

// RecordRun records one completed scrape run.
func (m *Metrics) RecordRun(status string, stats models.Statistics, seconds float64) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
	m.LastRunTimestamp.SetToCurrentTime()
	m.LastRunRegions.WithLabelValues("success").Set(float64(stats.Success))
	m.LastRunRegions.WithLabelValues("error").Set(float64(stats.Error))
	m.LastRunRate.Set(stats.Rate)
}
