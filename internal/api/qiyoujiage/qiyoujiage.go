// Package qiyoujiage provides the listing source for www.qiyoujiage.com.
package qiyoujiage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

const (
	// SourceName is the identifier for this source.
	SourceName = "qiyoujiage"
	// BaseURL is the publisher's listing root. Region pages live at
	// <BaseURL>/<code>.shtml.
	BaseURL = "http://www.qiyoujiage.com"
	// DefaultTimeout bounds one fetch attempt.
	DefaultTimeout = 10 * time.Second
	// userAgent is the fixed identifying header sent with every request.
	userAgent = "fuelscraper/1.0 (+https://github.com/fuelwatch/china-fuel-scraper)"
)

// Source implements the listing source interface for qiyoujiage.
type Source struct {
	client  *http.Client
	baseURL string
	host    string
	logger  zerolog.Logger
}

// New creates a source against the production publisher.
func New(logger zerolog.Logger) *Source {
	return NewWithOptions(logger, BaseURL, DefaultTimeout)
}

// NewWithOptions creates a source with an explicit base URL and timeout.
func NewWithOptions(logger zerolog.Logger, baseURL string, timeout time.Duration) *Source {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Source{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		host:    host,
		logger:  logger.With().Str("source", SourceName).Logger(),
	}
}

// Name returns the source identifier.
func (s *Source) Name() string {
	return SourceName
}

// Host returns the upstream host.
func (s *Source) Host() string {
	return s.host
}

// FetchRegion fetches the raw listing page for one region code. Failures are
// classified as timeout, http_status, or transport; the body is returned
// unmodified on success.
func (s *Source) FetchRegion(ctx context.Context, code string) ([]byte, error) {
	target := fmt.Sprintf("%s/%s.shtml", s.baseURL, code)

	s.logger.Debug().
		Str("url", target).
		Str("code", code).
		Msg("fetching region listing")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, models.NewTransportError(fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewHTTPStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	s.logger.Debug().
		Str("code", code).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("fetched region listing")

	return body, nil
}

// classifyTransport maps a client error to a timeout or transport kind.
func classifyTransport(err error) *models.ScrapeError {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewTimeoutError()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.NewTimeoutError()
	}
	return models.NewTransportError(err.Error())
}
