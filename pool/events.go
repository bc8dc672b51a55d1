package pool

import (
	"sync"
	"time"
)

// EventKind identifies a worker lifecycle transition.
type EventKind int

const (
	// EventStarted is fired when a worker is created.
	EventStarted EventKind = iota
	// EventExiting is fired when a worker retires.
	EventExiting
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Event describes a worker being created or retiring.
type Event struct {
	Pool   *Pool
	Worker *Worker
	Kind   EventKind
	Time   time.Time
}

// Listener receives worker lifecycle events.
//
// Callbacks run synchronously and outside the pool lock: OnStarted on the goroutine
// that created the worker, OnExiting on the retiring worker itself. Listeners are
// compared with ==, so implementations must be comparable (pointers are).
//
// For a given worker, OnStarted is always delivered before OnExiting. OnExiting must not
// close the pool with a Forever budget: Close would wait for the very worker that is
// running the callback.
type Listener interface {
	OnStarted(Event)
	OnExiting(Event)
}

// ListenerFuncs adapts a pair of functions to a Listener. Either may be nil.
// Register it by pointer.
type ListenerFuncs struct {
	Started func(Event)
	Exiting func(Event)
}

func (l *ListenerFuncs) OnStarted(e Event) {
	if l.Started != nil {
		l.Started(e)
	}
}

func (l *ListenerFuncs) OnExiting(e Event) {
	if l.Exiting != nil {
		l.Exiting(e)
	}
}

// notifier is the listener registry. It has its own lock so firing never needs the pool lock.
type notifier struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (n *notifier) add(l Listener) {
	if l == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, existing := range n.listeners {
		if existing == l {
			return
		}
	}
	n.listeners = append(n.listeners, l)
}

func (n *notifier) remove(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, existing := range n.listeners {
		if existing == l {
			// copy so snapshots handed to fire stay intact
			next := make([]Listener, 0, len(n.listeners)-1)
			next = append(next, n.listeners[:i]...)
			n.listeners = append(next, n.listeners[i+1:]...)
			return
		}
	}
}

func (n *notifier) len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

func (n *notifier) fire(e Event) {
	n.mu.RLock()
	snapshot := n.listeners
	n.mu.RUnlock()

	for _, l := range snapshot {
		switch e.Kind {
		case EventStarted:
			l.OnStarted(e)
		case EventExiting:
			l.OnExiting(e)
		}
	}
}

// channelListener forwards events to a buffered channel, dropping them when it is full.
type channelListener struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (c *channelListener) OnStarted(e Event) { c.send(e) }
func (c *channelListener) OnExiting(e Event) { c.send(e) }

func (c *channelListener) send(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
		// subscriber is behind, drop
	}
}

func (c *channelListener) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
