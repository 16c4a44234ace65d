package admission

import (
	"sync"
	"testing"
	"time"
)

func TestGateTwoConcurrentAcceptancesThirdShed(t *testing.T) {
	g := New(Config{MaxConcurrent: 2, MaxQueue: 10, FailFastWhenBusy: true, BusyRetryAfterS: 1})

	rel1, err := g.Acquire()
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	rel2, err := g.Acquire()
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	_, err = g.Acquire()
	shed, ok := err.(*ErrShed)
	if !ok {
		t.Fatalf("third acquire: want *ErrShed, got %v", err)
	}
	if shed.RetryAfterSeconds != 1 {
		t.Errorf("RetryAfterSeconds = %v, want 1", shed.RetryAfterSeconds)
	}

	rel1()
	rel2()
}

func TestGateFailFastDisabledQueueSaturation(t *testing.T) {
	// Scenario 2 (§8): FAIL_FAST=false, MAX_CONCURRENT=1, MAX_QUEUE=2.
	// Submit 4 at once: exactly 3 complete (1 running + 2 queued), 4th sheds.
	g := New(Config{MaxConcurrent: 1, MaxQueue: 2, FailFastWhenBusy: false, BusyRetryAfterS: 1})

	rel1, err := g.Acquire()
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	reachedWaiting := make(chan struct{})
	g.OnShed(func(string) {}) // no-op; keeps the hook path exercised

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rel, err := g.Acquire()
			results[i] = err
			if err == nil {
				rel()
			}
		}(i)
	}

	// Poll with a bounded deadline instead of an unbounded busy-wait.
	deadline := time.After(2 * time.Second)
	for g.Waiting() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the queue to fill")
		case <-time.After(time.Millisecond):
		}
	}
	close(reachedWaiting)

	_, err = g.Acquire()
	if err == nil {
		t.Fatal("4th concurrent acquire should be shed when queue is saturated")
	}

	rel1()
	wg.Wait()

	for i, e := range results {
		if e != nil {
			t.Errorf("queued acquire %d failed: %v", i, e)
		}
	}
}

func TestGateReleaseIsIdempotent(t *testing.T) {
	g := New(Config{MaxConcurrent: 1, MaxQueue: 1, FailFastWhenBusy: true, BusyRetryAfterS: 1})
	rel, err := g.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	rel()
	rel() // must not double-release the semaphore

	if g.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", g.InFlight())
	}

	rel2, err := g.Acquire()
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	rel2()
}
