package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fuelwatch/china-fuel-scraper/internal/database"
	"github.com/fuelwatch/china-fuel-scraper/internal/models"
	"github.com/fuelwatch/china-fuel-scraper/internal/scheduler"
	"github.com/fuelwatch/china-fuel-scraper/internal/scraper"
)

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	scraper   *scraper.Scraper
	scheduler *scheduler.Scheduler
	db        *database.DB
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(s *scraper.Scraper, sched *scheduler.Scheduler, db *database.DB) *StatusHandler {
	return &StatusHandler{
		scraper:   s,
		scheduler: sched,
		db:        db,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	// Get scheduler status
	if h.scheduler != nil {
		response.SchedulerRunning = h.scheduler.IsRunning()
		response.LastRunAt = h.scheduler.LastRunAt()
		nextRun := h.scheduler.NextRunAt()
		if !nextRun.IsZero() {
			response.NextRunAt = &nextRun
		}
	}

	// Get last run summary
	if h.scraper != nil {
		snapshot := h.scraper.Metrics().GetSnapshot()
		if response.LastRunAt == nil {
			response.LastRunAt = snapshot.LastRunAt
		}
		response.LastRun = snapshot.LastSummary
	}

	// Get database status
	response.Database = h.getDatabaseStatus(ctx)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (h *StatusHandler) getDatabaseStatus(ctx context.Context) models.DatabaseStatus {
	status := models.DatabaseStatus{
		Connected: false,
	}

	if h.db == nil {
		return status
	}

	// Check database connection
	if err := h.db.Ping(); err != nil {
		return status
	}
	status.Connected = true

	// Get total reports count
	count, err := h.db.GetTotalReportsCount(ctx)
	if err == nil {
		status.TotalReportsStored = count
	}

	return status
}
