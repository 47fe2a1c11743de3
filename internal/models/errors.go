package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a region's scrape failed. The kind is used as the
// error code in the report output.
type ErrorKind string

const (
	// ErrKindTimeout means the request exceeded the fetch timeout.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindHTTPStatus means the publisher answered with a non-200 status.
	ErrKindHTTPStatus ErrorKind = "http_status"
	// ErrKindTransport means any other I/O failure while fetching.
	ErrKindTransport ErrorKind = "transport"
	// ErrKindExtraction means the markup yielded no usable price data.
	ErrKindExtraction ErrorKind = "extraction"
	// ErrKindUnexpected means a panic or unclassified failure was contained.
	ErrKindUnexpected ErrorKind = "unexpected"
)

// ScrapeError is a classified failure for one region. It never escapes a
// region's processing unit; the outcome builder converts it into a failed
// Outcome.
type ScrapeError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewTimeoutError builds a timeout scrape error.
func NewTimeoutError() *ScrapeError {
	return &ScrapeError{Kind: ErrKindTimeout, Message: "request timed out"}
}

// NewHTTPStatusError builds a scrape error for an unexpected response status.
func NewHTTPStatusError(code int) *ScrapeError {
	return &ScrapeError{
		Kind:       ErrKindHTTPStatus,
		StatusCode: code,
		Message:    fmt.Sprintf("unexpected status code %d", code),
	}
}

// NewTransportError builds a scrape error for a transport-level failure.
func NewTransportError(detail string) *ScrapeError {
	return &ScrapeError{Kind: ErrKindTransport, Message: detail}
}

// NewExtractionError builds a scrape error for a failed extraction.
func NewExtractionError(detail string) *ScrapeError {
	return &ScrapeError{Kind: ErrKindExtraction, Message: detail}
}

// NewUnexpectedError builds a scrape error for a contained panic or other
// unclassified failure.
func NewUnexpectedError(detail string) *ScrapeError {
	return &ScrapeError{Kind: ErrKindUnexpected, Message: detail}
}

// AsScrapeError returns err as a *ScrapeError, classifying unknown errors as
// transport failures so every fetch error maps to exactly one kind.
func AsScrapeError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewTransportError(err.Error())
}
