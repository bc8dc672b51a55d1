package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utkarsh5026/threadpool/pool"
)

var errInjected = errors.New("injected task failure")

// stats collects everything the report prints. All counters are updated concurrently.
type stats struct {
	acquired  atomic.Int64
	retried   atomic.Int64
	exhausted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	started   atomic.Int64
	exiting   atomic.Int64
	peak      atomic.Int64

	mu       sync.Mutex
	acquires []time.Duration
}

func (s *stats) listener() pool.Listener {
	return &pool.ListenerFuncs{
		Started: func(pool.Event) { s.started.Add(1) },
		Exiting: func(pool.Event) { s.exiting.Add(1) },
	}
}

func (s *stats) uncaught(err *pool.TaskError) {
	if err.Panic != nil {
		s.panicked.Add(1)
		return
	}
	s.failed.Add(1)
}

func (s *stats) recordAcquire(d time.Duration) {
	s.mu.Lock()
	s.acquires = append(s.acquires, d)
	s.mu.Unlock()
}

func (s *stats) observePooled(n int) {
	for {
		old := s.peak.Load()
		if int64(n) <= old || s.peak.CompareAndSwap(old, int64(n)) {
			return
		}
	}
}

// percentile returns the q-th percentile (0..1) of the recorded acquisition latencies.
func (s *stats) percentile(q float64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.acquires) == 0 {
		return 0
	}
	sorted := slices.Clone(s.acquires)
	slices.Sort(sorted)
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

// workload builds the tasks handed to the pool.
type workload struct {
	duration    time.Duration
	failureRate float64
	panicRate   float64
}

// task returns a task that simulates work and calls done when it ends, however it ends.
func (w workload) task(done func()) pool.Task {
	return func(ctx context.Context) error {
		defer done()

		if w.duration > 0 {
			timer := time.NewTimer(w.duration)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		switch r := rand.Float64(); {
		case r < w.panicRate:
			panic("injected task panic")
		case r < w.panicRate+w.failureRate:
			return errInjected
		}
		return nil
	}
}
