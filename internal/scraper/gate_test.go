package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// occupancy tracks the highest number of concurrent holders observed.
type occupancy struct {
	current int64
	max     int64
}

func (o *occupancy) enter() {
	cur := atomic.AddInt64(&o.current, 1)
	for {
		max := atomic.LoadInt64(&o.max)
		if cur <= max || atomic.CompareAndSwapInt64(&o.max, max, cur) {
			return
		}
	}
}

func (o *occupancy) leave() {
	atomic.AddInt64(&o.current, -1)
}

func TestGate_GlobalCap(t *testing.T) {
	gate := NewGate(3, 3)
	var occ occupancy
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gate.Acquire(context.Background(), "a.example"))
			occ.enter()
			time.Sleep(5 * time.Millisecond)
			occ.leave()
			gate.Release("a.example")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&occ.max), int64(3))
}

func TestGate_PerHostCap(t *testing.T) {
	gate := NewGate(10, 2)
	var occ occupancy
	var wg sync.WaitGroup

	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gate.Acquire(context.Background(), "b.example"))
			occ.enter()
			time.Sleep(5 * time.Millisecond)
			occ.leave()
			gate.Release("b.example")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&occ.max), int64(2))
}

func TestGate_PerHostCapClampedToGlobal(t *testing.T) {
	gate := NewGate(2, 50)
	var occ occupancy
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gate.Acquire(context.Background(), "c.example"))
			occ.enter()
			time.Sleep(5 * time.Millisecond)
			occ.leave()
			gate.Release("c.example")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&occ.max), int64(2))
}

func TestGate_AcquireRespectsContext(t *testing.T) {
	gate := NewGate(1, 1)
	assert.NoError(t, gate.Acquire(context.Background(), "d.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := gate.Acquire(ctx, "d.example")
	assert.Error(t, err)

	gate.Release("d.example")
}
