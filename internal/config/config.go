// Package config provides configuration structures and loading for the fuel
// price scraper.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the fuel price scraper.
type Config struct {
	// PostgreSQL connection string (empty disables persistence)
	PostgresDSN string
	// Log level (debug, info, warn, error)
	LogLevel string
	// Log format (json, console)
	LogFormat string
	// HTTP server address
	HTTPAddr string
	// Path to the region name -> code mapping
	RegionsFile string
	// Path the JSON report is written to
	OutputFile string
	// Publisher base URL
	BaseURL string
	// Execution mode (parallel, sequential)
	Mode string
	// Global cap on simultaneous fetches
	Concurrency int
	// Per-upstream-host cap, lower than Concurrency
	PerHostLimit int
	// Per-fetch timeout
	RequestTimeout time.Duration
	// Inter-fetch delay in sequential mode
	SequentialDelay time.Duration
	// Scrape hour (0-23) for the scheduler
	ScrapeHour int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		PostgresDSN:     "",
		LogLevel:        "info",
		LogFormat:       "json",
		HTTPAddr:        ":8080",
		RegionsFile:     "provinces.json",
		OutputFile:      "fuel_prices.json",
		BaseURL:         "http://www.qiyoujiage.com",
		Mode:            "parallel",
		Concurrency:     15,
		PerHostLimit:    5,
		RequestTimeout:  10 * time.Second,
		SequentialDelay: time.Second,
		ScrapeHour:      6,
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("REGIONS_FILE"); v != "" {
		c.RegionsFile = v
	}
	if v := os.Getenv("OUTPUT_FILE"); v != "" {
		c.OutputFile = v
	}
	if v := os.Getenv("SOURCE_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SCRAPE_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("CONCURRENCY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			c.Concurrency = i
		}
	}
	if v := os.Getenv("PER_HOST_LIMIT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			c.PerHostLimit = i
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("SEQUENTIAL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.SequentialDelay = d
		}
	}
	if v := os.Getenv("SCRAPE_HOUR"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 && i <= 23 {
			c.ScrapeHour = i
		}
	}
}

// regionsFile is the on-disk shape of the region mapping.
type regionsFile struct {
	Provinces map[string]string `json:"provinces"`
}

// LoadRegions reads the region name -> upstream code mapping. The pipeline
// consumes this as already-parsed data; nothing else reads the file.
func LoadRegions(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading regions file: %w", err)
	}

	var rf regionsFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parsing regions file: %w", err)
	}

	if len(rf.Provinces) == 0 {
		return nil, fmt.Errorf("regions file %s contains no provinces", path)
	}

	return rf.Provinces, nil
}
