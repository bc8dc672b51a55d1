package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	eventually = 2 * time.Second
	tick       = 5 * time.Millisecond
)

// newTestPool creates a pool that is closed with a bounded drain when the test ends.
func newTestPool(t *testing.T, capacity int, opts ...Option) *Pool {
	t.Helper()

	p, err := New(capacity, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.CloseWithTimeout(Within(2 * time.Second))
	})
	return p
}

// gate is a task that signals when it starts and blocks until released.
type gate struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gate) task() Task {
	return func(ctx context.Context) error {
		g.started <- struct{}{}
		<-g.release
		return nil
	}
}

func (g *gate) open() {
	g.once.Do(func() { close(g.release) })
}

func (g *gate) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(eventually):
		t.Fatal("task did not start")
	}
}

// eventCounter counts lifecycle events.
type eventCounter struct {
	started atomic.Int64
	exiting atomic.Int64
}

func (c *eventCounter) OnStarted(Event) { c.started.Add(1) }
func (c *eventCounter) OnExiting(Event) { c.exiting.Add(1) }
