package scraper

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Gate bounds how many fetches run simultaneously, globally and per upstream
// host. Only the fetch itself runs under the gate; extraction does not.
type Gate struct {
	global    *semaphore.Weighted
	hostLimit int64

	mu    sync.Mutex
	hosts map[string]*semaphore.Weighted
}

// NewGate creates a gate with the given global and per-host caps. The
// per-host cap is clamped to the global cap.
func NewGate(globalLimit, perHostLimit int) *Gate {
	if globalLimit < 1 {
		globalLimit = 1
	}
	if perHostLimit < 1 || perHostLimit > globalLimit {
		perHostLimit = globalLimit
	}
	return &Gate{
		global:    semaphore.NewWeighted(int64(globalLimit)),
		hostLimit: int64(perHostLimit),
		hosts:     make(map[string]*semaphore.Weighted),
	}
}

// Acquire blocks until both a global slot and a slot for host are free.
func (g *Gate) Acquire(ctx context.Context, host string) error {
	if err := g.global.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := g.hostSem(host).Acquire(ctx, 1); err != nil {
		g.global.Release(1)
		return err
	}
	return nil
}

// Release frees the slots taken by a matching Acquire.
func (g *Gate) Release(host string) {
	g.hostSem(host).Release(1)
	g.global.Release(1)
}

func (g *Gate) hostSem(host string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	sem, ok := g.hosts[host]
	if !ok {
		sem = semaphore.NewWeighted(g.hostLimit)
		g.hosts[host] = sem
	}
	return sem
}
