// Package admission implements the §4.1 admission control algorithm: a
// bounded semaphore sized to the decoder worker pool, a mutex-guarded
// waiting counter, and fail-fast-when-busy shedding.
package admission

import (
	"fmt"
	"sync"
)

// ErrShed is returned when a request is rejected due to admission
// pressure. RetryAfterSeconds is always populated (§3 Overload Signal).
type ErrShed struct {
	Reason            string
	RetryAfterSeconds float64
}

func (e *ErrShed) Error() string {
	return fmt.Sprintf("admission: shed (%s), retry after %.1fs", e.Reason, e.RetryAfterSeconds)
}

// Config holds the admission gate's tunables (§6).
type Config struct {
	MaxConcurrent    int
	MaxQueue         int
	FailFastWhenBusy bool
	BusyRetryAfterS  float64
}

// Gate implements the §4.1 admission control algorithm. Waiting and
// in-flight counters are exposed for the health endpoint and metrics.
type Gate struct {
	cfg Config

	mu      sync.Mutex
	waiting int
	held    int

	slots chan struct{}

	onAccept func()
	onShed   func(reason string)
}

// New creates a Gate with a semaphore sized to cfg.MaxConcurrent.
func New(cfg Config) *Gate {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Gate{
		cfg:   cfg,
		slots: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// OnAccept registers a callback invoked once a slot is acquired (for metrics).
func (g *Gate) OnAccept(fn func()) { g.onAccept = fn }

// OnShed registers a callback invoked when a request is shed (for metrics).
func (g *Gate) OnShed(fn func(reason string)) { g.onShed = fn }

// Waiting returns the current waiting-counter value.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

// InFlight returns the number of admission slots currently held.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// retryAfter returns max(1, BusyRetryAfterS) per §4.1.
func (g *Gate) retryAfter() float64 {
	if g.cfg.BusyRetryAfterS > 1 {
		return g.cfg.BusyRetryAfterS
	}
	return 1
}

// Release is returned by Acquire; the caller must invoke it exactly once,
// on every exit path, once decoding is complete (§3 Admission Slot).
type Release func()

// Acquire runs the full §4.1 admission algorithm:
//  1. under the waiting-counter mutex, shed if fail-fast-when-busy applies
//     or the queue is saturated; otherwise increment waiting.
//  2. block on the bounded semaphore.
//  3. decrement waiting under the same mutex.
//
// On success it returns a Release that the caller must call exactly once.
// On shed it returns a non-nil *ErrShed.
func (g *Gate) Acquire() (Release, error) {
	g.mu.Lock()
	full := g.held >= g.cfg.MaxConcurrent

	if g.cfg.FailFastWhenBusy && (full || g.waiting > 0) {
		g.mu.Unlock()
		g.shed("fail_fast_busy")
		return nil, &ErrShed{Reason: "server busy", RetryAfterSeconds: g.retryAfter()}
	}
	if g.waiting >= g.cfg.MaxQueue {
		g.mu.Unlock()
		g.shed("queue_full")
		return nil, &ErrShed{Reason: "queue full", RetryAfterSeconds: g.retryAfter()}
	}
	g.waiting++
	g.mu.Unlock()

	g.slots <- struct{}{}

	g.mu.Lock()
	g.waiting--
	g.held++
	g.mu.Unlock()

	if g.onAccept != nil {
		g.onAccept()
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.mu.Lock()
		g.held--
		g.mu.Unlock()
		<-g.slots
	}, nil
}

func (g *Gate) shed(reason string) {
	if g.onShed != nil {
		g.onShed(reason)
	}
}
