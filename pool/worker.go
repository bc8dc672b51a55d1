package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/utkarsh5026/threadpool/internal/osthread"
)

// WorkerState is the position of a worker in its lifecycle.
type WorkerState int

const (
	// StateIdle means the worker is waiting for a task.
	StateIdle WorkerState = iota
	// StateRunning means the worker is executing a task.
	StateRunning
	// StateRetiring means the worker has decided to exit and refuses new tasks.
	StateRetiring
	// StateTerminated means the worker goroutine has finished.
	StateTerminated
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateRetiring:
		return "retiring"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Worker is a pooled goroutine, bound to its own OS thread, that runs tasks one at a
// time. A Worker returned by Acquire is already running the task it was handed.
type Worker struct {
	id       uuid.UUID
	baseName string
	pool     *Pool

	mu    sync.Mutex
	name  string
	task  Task
	stop  bool
	state WorkerState

	// wake has room for one token; a pending token only means "look again".
	wake chan struct{}

	priority   atomic.Int32
	background atomic.Bool
	// applied is the priority last set on the OS thread. Owned by the worker goroutine.
	applied Priority

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newWorker(p *Pool, baseName, name string, task Task, priority Priority, background bool) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if name == "" {
		name = baseName
	}

	w := &Worker{
		id:       uuid.New(),
		baseName: baseName,
		pool:     p,
		name:     name,
		task:     task,
		state:    StateRunning,
		wake:     make(chan struct{}, 1),
		applied:  NormPriority,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	w.priority.Store(int32(priority))
	w.background.Store(background)
	return w
}

// ID returns the worker's unique identifier.
func (w *Worker) ID() uuid.UUID { return w.id }

// Pool returns the pool that owns the worker.
func (w *Worker) Pool() *Pool { return w.pool }

// Name returns the worker's current name. A name given to AcquireNamed lasts for that task only.
func (w *Worker) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.name
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Priority returns the priority the worker runs at. Pool-wide changes reach a worker
// only when it next becomes idle.
func (w *Worker) Priority() Priority { return Priority(w.priority.Load()) }

// IsBackground reports the background flag the worker was last given.
func (w *Worker) IsBackground() bool { return w.background.Load() }

// Done returns a channel closed once the worker has terminated.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Wait blocks until the worker has terminated.
func (w *Worker) Wait() { <-w.done }

func (w *Worker) String() string {
	return fmt.Sprintf("%s[%s]", w.Name(), w.State())
}

// tryAssign hands task to an idle worker. It fails when the worker has already decided
// to retire; the caller must then wait for Done and start over.
func (w *Worker) tryAssign(task Task, name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateRetiring || w.state == StateTerminated {
		return false
	}
	if w.task != nil {
		panic(fmt.Sprintf("pool: protocol violation: worker %s already holds a task", w.name))
	}

	w.task = task
	if name != "" {
		w.name = name
	}
	w.nudge()
	return true
}

// signalStop is the stop sentinel sent to idle workers while the pool closes.
func (w *Worker) signalStop() {
	w.mu.Lock()
	w.stop = true
	w.mu.Unlock()
	w.nudge()
}

// interrupt cancels the running task's context and tells the worker to stop.
func (w *Worker) interrupt() {
	w.cancel()
	w.signalStop()
}

func (w *Worker) nudge() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// run is the worker goroutine.
func (w *Worker) run() {
	osthread.Bind()
	defer w.exit()

	w.applyPriority()

	// the first task is assigned at creation, so the first wait never blocks
	var idleTimeout Timeout
	for {
		task, ok := w.await(idleTimeout)
		if !ok {
			return
		}

		w.execute(task)

		var open bool
		idleTimeout, open = w.pool.returnIdle(w)
		if !open {
			return
		}
		w.applyPriority()
	}
}

// await blocks for a task for at most timeout. It returns false once the worker has
// moved to Retiring, which happens under w.mu so it cannot cross with tryAssign.
func (w *Worker) await(timeout Timeout) (Task, bool) {
	var expired <-chan time.Time
	if timeout.Policy() == WaitBounded {
		timer := time.NewTimer(timeout.Duration())
		defer timer.Stop()
		expired = timer.C
	}

	timedOut := false
	for {
		w.mu.Lock()
		if w.task != nil {
			task := w.task
			w.state = StateRunning
			w.mu.Unlock()
			debugLog("%s running", w.baseName)
			return task, true
		}
		if w.stop || timedOut || timeout.IsNoWait() {
			w.state = StateRetiring
			w.mu.Unlock()
			debugLog("%s retiring (stop=%v timedOut=%v)", w.baseName, w.stop, timedOut)
			return nil, false
		}
		w.mu.Unlock()

		select {
		case <-w.wake:
		case <-expired:
			timedOut = true
		}
	}
}

func (w *Worker) execute(task Task) {
	if terr := runWithRecovery(w.ctx, w, task); terr != nil {
		w.pool.report(terr)
	}

	w.mu.Lock()
	w.task = nil
	w.name = w.baseName
	w.state = StateIdle
	w.mu.Unlock()
}

func (w *Worker) applyPriority() {
	p := w.Priority()
	if p == w.applied {
		return
	}
	if err := osthread.SetNice(p.nice()); err != nil {
		w.pool.logger.Debug("could not apply worker priority",
			slog.String("worker", w.baseName),
			slog.Int("priority", int(p)),
			slog.Any("error", err))
	}
	w.applied = p
}

// exit runs exactly once per worker, when run returns.
func (w *Worker) exit() {
	w.mu.Lock()
	w.state = StateTerminated
	w.mu.Unlock()

	w.pool.retire(w)
	w.pool.notifier.fire(Event{Pool: w.pool, Worker: w, Kind: EventExiting, Time: time.Now()})
	w.pool.forget(w)

	w.cancel()
	close(w.done)
	debugLog("%s terminated", w.baseName)
}
