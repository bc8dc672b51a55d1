package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utkarsh5026/threadpool/internal/osthread"
)

// Pool is a bounded pool of reusable workers.
//
// Workers are created on demand up to the capacity, reused most-recently-idle first,
// and retire on their own after the idle timeout. All pool state (active count, idle
// stack, closed flag) changes under one lock; every change is announced on a single
// broadcast channel that blocked acquirers and Close wait on.
type Pool struct {
	name         string
	capacity     int
	closeTimeout Timeout

	mu sync.Mutex
	// changed is closed and replaced whenever pool state changes.
	changed chan struct{}
	active  int
	idle    workerStack
	closed  bool
	// workers holds every worker whose goroutine has not finished.
	workers map[*Worker]struct{}
	seq     int

	priority       Priority
	background     bool
	idleTimeout    Timeout
	acquireTimeout Timeout

	notifier notifier
	uncaught UncaughtHandler
	logger   *slog.Logger
}

// New creates a pool that runs at most capacity workers at once.
// No worker is started until the first task is acquired.
//
// Parameters:
//   - capacity: Maximum number of live workers, must be > 0
//   - opts: Functional options (WithBackground, WithIdleTimeout, ...)
//
// Returns:
//   - *Pool: The new pool
//   - error: ErrInvalidCapacity or ErrInvalidPriority
//
// Example:
//
//	p, err := pool.New(8, pool.WithIdleTimeout(pool.Within(30*time.Second)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	w, err := p.Acquire(pool.Run(func() { handle(conn) }))
func New(capacity int, opts ...Option) (*Pool, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.priority.Valid() {
		return nil, ErrInvalidPriority
	}

	p := &Pool{
		name:           cfg.name,
		capacity:       capacity,
		closeTimeout:   cfg.closeTimeout,
		changed:        make(chan struct{}),
		workers:        make(map[*Worker]struct{}, capacity),
		priority:       cfg.priority,
		background:     cfg.background,
		idleTimeout:    cfg.idleTimeout,
		acquireTimeout: cfg.acquireTimeout,
		uncaught:       cfg.uncaught,
		logger:         cfg.logger.With(slog.String("pool", cfg.name)),
	}
	if p.uncaught == nil {
		p.uncaught = newFailureLogger(p.logger, cfg.failureLimit).handle
	}
	for _, l := range cfg.listeners {
		p.notifier.add(l)
	}

	return p, nil
}

// Name returns the pool name used as the worker name prefix.
func (p *Pool) Name() string { return p.name }

// Acquire hands task to a worker using the pool's default acquisition timeout.
//
// Returns:
//   - *Worker: The worker now running task
//   - error: A *NoWorkerError matching ErrPoolExhausted or ErrPoolClosed, or ErrNilTask
//
// Example:
//
//	w, err := p.Acquire(func(ctx context.Context) error {
//	    return sync(ctx)
//	})
//	switch {
//	case pool.IsExhausted(err):
//	    // retry later
//	case pool.IsClosed(err):
//	    return err
//	}
func (p *Pool) Acquire(task Task) (*Worker, error) {
	return p.acquire(context.Background(), task, p.AcquireTimeout(), "")
}

// AcquireWithTimeout is Acquire with a per-call acquisition timeout.
func (p *Pool) AcquireWithTimeout(task Task, timeout Timeout) (*Worker, error) {
	return p.acquire(context.Background(), task, timeout, "")
}

// AcquireNamed is AcquireWithTimeout that also names the worker for the duration of task.
func (p *Pool) AcquireNamed(task Task, timeout Timeout, name string) (*Worker, error) {
	return p.acquire(context.Background(), task, timeout, name)
}

// AcquireContext is Acquire that also gives up when ctx is done, returning ctx.Err().
func (p *Pool) AcquireContext(ctx context.Context, task Task) (*Worker, error) {
	return p.acquire(ctx, task, p.AcquireTimeout(), "")
}

func (p *Pool) acquire(ctx context.Context, task Task, timeout Timeout, name string) (*Worker, error) {
	if task == nil {
		return nil, ErrNilTask
	}

	// the deadline survives handshake retries so the caller's budget is not reset
	deadline, _ := timeout.deadline(time.Now())

	for {
		w, created, err := p.reserve(ctx, task, timeout, deadline, name)
		if err != nil {
			return nil, err
		}

		if created {
			// started is delivered before the goroutine exists, so no listener can see
			// the worker's exiting event first.
			p.logger.Debug("worker started", slog.String("worker", w.baseName))
			p.notifier.fire(Event{Pool: p, Worker: w, Kind: EventStarted, Time: time.Now()})
			go w.run()
			return w, nil
		}

		if w.tryAssign(task, name) {
			return w, nil
		}

		// The worker timed out and started retiring just as we popped it. Its exit
		// frees a slot, so wait for it and start over.
		debugLog("lost handshake with %s, retrying", w.baseName)
		<-w.done
	}
}

// reserve pops an idle worker or creates a new one holding task, waiting per timeout
// when neither is possible.
func (p *Pool) reserve(
	ctx context.Context,
	task Task,
	timeout Timeout,
	deadline time.Time,
	name string,
) (*Worker, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.closed {
			return nil, false, &NoWorkerError{Closed: true}
		}

		if w := p.idle.pop(); w != nil {
			return w, false, nil
		}

		if p.active < p.capacity {
			return p.spawnLocked(task, name), true, nil
		}

		switch timeout.Policy() {
		case WaitNone:
			return nil, false, &NoWorkerError{}

		case WaitBounded:
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, false, &NoWorkerError{Waited: timeout.Duration()}
			}
			if err := p.waitLocked(ctx, remaining); err != nil {
				return nil, false, err
			}

		default:
			if err := p.waitLocked(ctx, -1); err != nil {
				return nil, false, err
			}
		}
	}
}

func (p *Pool) spawnLocked(task Task, name string) *Worker {
	p.seq++
	base := fmt.Sprintf("%s-worker-%d", p.name, p.seq)
	w := newWorker(p, base, name, task, p.priority, p.background)

	p.active++
	p.workers[w] = struct{}{}
	return w
}

// waitLocked releases the lock until the next state change, d elapses (d < 0 never
// elapses) or ctx is done. The lock is held again on return.
func (p *Pool) waitLocked(ctx context.Context, d time.Duration) error {
	changed := p.changed
	p.mu.Unlock()
	defer p.mu.Lock()

	var expired <-chan time.Time
	if d >= 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-changed:
	case <-expired:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (p *Pool) broadcastLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// returnIdle puts a worker that finished its task back on the idle stack and hands it
// the current idle timeout. Pool-wide priority and background settings are picked up
// here, never mid-task. It reports false when the pool is closed and w must retire.
func (p *Pool) returnIdle(w *Worker) (Timeout, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return NoWait, false
	}

	w.priority.Store(int32(p.priority))
	w.background.Store(p.background)
	p.idle.push(w)
	p.broadcastLocked()
	return p.idleTimeout, true
}

// retire releases the capacity held by a terminating worker.
func (p *Pool) retire(w *Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.idle.remove(w)
	p.active--
	p.broadcastLocked()
	p.logger.Debug("worker exiting", slog.String("worker", w.baseName), slog.Int("active", p.active))
}

// forget drops a worker from the registry once its exiting event has been delivered.
func (p *Pool) forget(w *Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.workers, w)
	p.broadcastLocked()
}

// Close closes the pool using the default drain budget (see WithCloseTimeout).
func (p *Pool) Close() error {
	return p.CloseWithTimeout(p.closeTimeout)
}

// CloseWithTimeout closes the pool. New and waiting acquisitions fail with ErrPoolClosed.
// It then waits up to timeout for every worker to finish its task and retire, sending
// a stop signal to idle workers, and finally interrupts the ones still alive by
// cancelling their task context.
//
// Parameters:
//   - timeout: Drain budget; NoWait interrupts immediately, Forever never interrupts
//
// Returns:
//   - error: nil when every worker retired in time, ErrDrainTimeout when some had to be interrupted
//
// Example:
//
//	if err := p.CloseWithTimeout(pool.Within(5 * time.Second)); err != nil {
//	    log.Printf("close: %v", err)
//	}
//
// Calling it more than once is safe. Calling it from a task or from a listener's
// OnExiting callback with a Forever budget deadlocks, because Close waits for the
// calling worker itself to finish; use a bounded budget there.
func (p *Pool) CloseWithTimeout(timeout Timeout) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.logger.Info("closing pool",
			slog.Int("active", p.active),
			slog.Int("idle", p.idle.len()),
			slog.String("drain", timeout.String()))
	}
	p.broadcastLocked()

	if !timeout.IsNoWait() {
		deadline, bounded := timeout.deadline(time.Now())
		for len(p.workers) > 0 {
			p.idle.each(func(w *Worker) { w.signalStop() })

			wait := time.Duration(-1)
			if bounded {
				if wait = time.Until(deadline); wait <= 0 {
					break
				}
			}
			_ = p.waitLocked(context.Background(), wait)
		}
	}

	// Only workers caught mid-task count as interrupted; the rest are already on
	// their way out and just need the stop signal.
	stragglers := make([]*Worker, 0, len(p.workers))
	interrupted := 0
	for w := range p.workers {
		if w.State() == StateRunning {
			interrupted++
		}
		stragglers = append(stragglers, w)
	}
	p.mu.Unlock()

	for _, w := range stragglers {
		w.interrupt()
	}
	if interrupted == 0 {
		return nil
	}

	p.logger.Warn("drain budget elapsed, interrupted workers", slog.Int("count", interrupted))
	return fmt.Errorf("%w: interrupted %d workers", ErrDrainTimeout, interrupted)
}

// IsClosed reports whether Close has been called.
func (p *Pool) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// AvailableCount returns the number of idle workers.
func (p *Pool) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle.len()
}

// PooledCount returns the number of workers created and not yet retired, idle or running.
func (p *Pool) PooledCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// MaximumAllowed returns the pool capacity.
func (p *Pool) MaximumAllowed() int { return p.capacity }

// LiveCount returns the number of worker goroutines that have not finished yet.
// It can briefly exceed PooledCount while retiring workers deliver their exiting event.
func (p *Pool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// OSThreadCount returns the number of OS threads in the process, as far as the
// platform reports it.
func OSThreadCount() int { return osthread.Count() }

// SetPriority changes the priority given to workers. Running workers keep their
// priority until they next become idle.
func (p *Pool) SetPriority(priority Priority) error {
	if !priority.Valid() {
		return ErrInvalidPriority
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.priority = priority
	return nil
}

// Priority returns the pool-wide worker priority.
func (p *Pool) Priority() Priority {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.priority
}

// IsBackground reports whether the pool's workers are background workers.
func (p *Pool) IsBackground() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.background
}

// SetIdleTimeout changes how long workers wait for work before retiring. Workers pick
// it up the next time they become idle.
func (p *Pool) SetIdleTimeout(t Timeout) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idleTimeout = t
}

// IdleTimeout returns the idle timeout.
func (p *Pool) IdleTimeout() Timeout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idleTimeout
}

// SetAcquireTimeout changes the default acquisition timeout.
func (p *Pool) SetAcquireTimeout(t Timeout) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquireTimeout = t
}

// AcquireTimeout returns the default acquisition timeout.
func (p *Pool) AcquireTimeout() Timeout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquireTimeout
}

// AddListener registers l for worker lifecycle events. Adding the same listener twice is a no-op.
func (p *Pool) AddListener(l Listener) {
	p.notifier.add(l)
}

// RemoveListener unregisters l.
func (p *Pool) RemoveListener(l Listener) {
	p.notifier.remove(l)
}

// Subscribe returns a channel receiving lifecycle events and a function that
// unsubscribes and closes it. Events are dropped while the channel is full.
func (p *Pool) Subscribe(buffer int) (<-chan Event, func()) {
	cl := &channelListener{ch: make(chan Event, max(buffer, 0))}
	p.notifier.add(cl)

	return cl.ch, func() {
		p.notifier.remove(cl)
		cl.close()
	}
}
