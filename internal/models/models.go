// Package models provides shared data types for the fuel price scraper.
package models

import (
	"time"
)

// ChinaTZ is the fixed offset the publisher operates in. All report
// timestamps are rendered in this zone regardless of where the scraper runs.
var ChinaTZ = time.FixedZone("UTC+8", 8*60*60)

// TimestampFormat is the ISO-8601 layout used in the report output.
const TimestampFormat = "2006-01-02T15:04:05-07:00"

// FormatTimestamp renders t at the fixed UTC+8 offset.
func FormatTimestamp(t time.Time) string {
	return t.In(ChinaTZ).Format(TimestampFormat)
}

// Grade identifies one fuel price category.
type Grade string

const (
	// Grade92 is 92 octane gasoline.
	Grade92 Grade = "92"
	// Grade95 is 95 octane gasoline.
	Grade95 Grade = "95"
	// Grade98 is 98 octane gasoline.
	Grade98 Grade = "98"
	// GradeDiesel is 0# diesel.
	GradeDiesel Grade = "0"
)

// Grades lists all grades in extraction order.
func Grades() []Grade {
	return []Grade{Grade92, Grade95, Grade98, GradeDiesel}
}

// PriceSet holds the four grade prices for one region. A nil price means the
// grade could not be extracted; nil and 0 are deliberately distinct.
type PriceSet struct {
	Gasoline92 *float64 `json:"92"`
	Gasoline95 *float64 `json:"95"`
	Gasoline98 *float64 `json:"98"`
	Diesel     *float64 `json:"0"`
}

// Price returns the price for the given grade, nil if unset.
func (p *PriceSet) Price(g Grade) *float64 {
	switch g {
	case Grade92:
		return p.Gasoline92
	case Grade95:
		return p.Gasoline95
	case Grade98:
		return p.Gasoline98
	case GradeDiesel:
		return p.Diesel
	}
	return nil
}

// SetPrice sets the price for the given grade.
func (p *PriceSet) SetPrice(g Grade, v *float64) {
	switch g {
	case Grade92:
		p.Gasoline92 = v
	case Grade95:
		p.Gasoline95 = v
	case Grade98:
		p.Gasoline98 = v
	case GradeDiesel:
		p.Diesel = v
	}
}

// HasPositivePrice reports whether at least one grade parsed to a strictly
// positive value. This is the extraction success condition.
func (p *PriceSet) HasPositivePrice() bool {
	for _, g := range Grades() {
		if v := p.Price(g); v != nil && *v > 0 {
			return true
		}
	}
	return false
}

// TrendDirection is the publisher's forward-looking price direction.
type TrendDirection string

const (
	// TrendUp indicates an expected price increase.
	TrendUp TrendDirection = "up"
	// TrendDown indicates an expected price decrease.
	TrendDown TrendDirection = "down"
	// TrendStable indicates no expected change.
	TrendStable TrendDirection = "stable"
)

// Trend is the publisher's statement about the next price adjustment.
type Trend struct {
	Direction   TrendDirection `json:"direction"`
	Amount      float64        `json:"amount"`
	Description string         `json:"description"`
}

// StableTrend returns the default trend used when no adjustment phrase is
// found in the markup.
func StableTrend() Trend {
	return Trend{
		Direction:   TrendStable,
		Amount:      0,
		Description: "价格稳定",
	}
}

// Outcome status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// OutcomeError is the error payload of a failed outcome.
type OutcomeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outcome is the per-region result recorded for a run. Exactly one outcome
// exists per region per run; it is immutable once built.
type Outcome struct {
	Status         string        `json:"status"`
	Name           string        `json:"name"`
	Prices         *PriceSet     `json:"prices,omitempty"`
	Trend          *Trend        `json:"trend,omitempty"`
	NextAdjustment *string       `json:"next_adjustment,omitempty"`
	Error          *OutcomeError `json:"error,omitempty"`
	UpdateTime     string        `json:"update_time"`
}

// NewSuccessOutcome builds a successful outcome for a region.
func NewSuccessOutcome(name string, prices PriceSet, trend Trend, nextAdjustment *string, fetchedAt time.Time) Outcome {
	return Outcome{
		Status:         StatusSuccess,
		Name:           name,
		Prices:         &prices,
		Trend:          &trend,
		NextAdjustment: nextAdjustment,
		UpdateTime:     FormatTimestamp(fetchedAt),
	}
}

// NewFailureOutcome builds a failed outcome from a classified scrape error.
func NewFailureOutcome(name string, err *ScrapeError, fetchedAt time.Time) Outcome {
	return Outcome{
		Status: StatusError,
		Name:   name,
		Error: &OutcomeError{
			Code:    string(err.Kind),
			Message: err.Message,
		},
		UpdateTime: FormatTimestamp(fetchedAt),
	}
}

// IsSuccess reports whether the outcome recorded a successful extraction.
func (o Outcome) IsSuccess() bool {
	return o.Status == StatusSuccess
}

// Report status values.
const (
	ReportStatusSuccess = "success"
	ReportStatusPartial = "partial_success"
	ReportStatusError   = "error"
)

// Statistics summarizes a run. Rate is the success percentage rounded to one
// decimal place.
type Statistics struct {
	Total   int     `json:"total"`
	Success int     `json:"success"`
	Error   int     `json:"error"`
	Rate    float64 `json:"rate"`
}

// Report is the final aggregated document covering all regions in a run.
type Report struct {
	Status      string             `json:"status"`
	LastUpdated string             `json:"last_updated"`
	DataSource  string             `json:"data_source"`
	Version     string             `json:"version"`
	Statistics  Statistics         `json:"statistics"`
	Data        map[string]Outcome `json:"data"`
}

// RunSummary is the last-run snapshot exposed on the /status endpoint.
type RunSummary struct {
	Status     string  `json:"status"`
	Total      int     `json:"total"`
	Success    int     `json:"success"`
	Error      int     `json:"error"`
	Rate       float64 `json:"rate"`
	DurationMs int64   `json:"duration_ms"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status           string         `json:"status"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
	SchedulerRunning bool           `json:"scheduler_running"`
	NextRunAt        *time.Time     `json:"next_run_at,omitempty"`
	LastRunAt        *time.Time     `json:"last_run_at,omitempty"`
	LastRun          *RunSummary    `json:"last_run,omitempty"`
	Database         DatabaseStatus `json:"database"`
}

// DatabaseStatus holds the database connection status.
type DatabaseStatus struct {
	Connected          bool  `json:"connected"`
	TotalReportsStored int64 `json:"total_reports_stored"`
}
