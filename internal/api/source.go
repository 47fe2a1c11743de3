// Package api provides the interface for fuel price listing sources.
package api

import (
	"context"
)

// Source defines the interface for an upstream fuel price publisher.
type Source interface {
	// Name returns the source identifier.
	Name() string

	// Host returns the upstream host, used for per-host concurrency limits.
	Host() string

	// FetchRegion fetches the raw listing markup for one region code.
	// Exactly one attempt per call; no retries.
	FetchRegion(ctx context.Context, code string) ([]byte, error)
}
