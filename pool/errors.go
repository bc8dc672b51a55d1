package pool

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPoolClosed marks a failure caused by the pool being closed. It is permanent.
	ErrPoolClosed = errors.New("pool closed")

	// ErrPoolExhausted marks a failure caused by every worker being busy. The caller may retry.
	ErrPoolExhausted = errors.New("pool temporarily exhausted")

	// ErrInvalidCapacity is returned by New when the capacity is not positive.
	ErrInvalidCapacity = errors.New("pool capacity must be greater than 0")

	// ErrInvalidPriority is returned when a priority is outside [MinPriority, MaxPriority].
	ErrInvalidPriority = fmt.Errorf("priority must be between %d and %d", MinPriority, MaxPriority)

	// ErrNilTask is returned by the acquire family when the task is nil.
	ErrNilTask = errors.New("task must not be nil")

	// ErrDrainTimeout is returned by close when workers were still alive after the drain
	// budget and had to be interrupted.
	ErrDrainTimeout = errors.New("error in closing pool: drain budget elapsed")
)

// NoWorkerError is returned by the acquire family when no worker could be handed the task.
type NoWorkerError struct {
	// Closed is true when the pool is closed, false when it is only exhausted.
	Closed bool
	// Waited is the bound the caller waited for before giving up, 0 if it did not wait.
	Waited time.Duration
}

func (e *NoWorkerError) Error() string {
	if e.Closed {
		return "no worker available: pool closed"
	}
	if e.Waited > 0 {
		return fmt.Sprintf("no worker available: pool temporarily exhausted, timed out after %d ms", e.Waited.Milliseconds())
	}
	return "no worker available: pool temporarily exhausted"
}

func (e *NoWorkerError) Is(target error) bool {
	switch target {
	case ErrPoolClosed:
		return e.Closed
	case ErrPoolExhausted:
		return !e.Closed
	}
	return false
}

// IsClosed reports whether err says the pool was closed.
func IsClosed(err error) bool { return errors.Is(err, ErrPoolClosed) }

// IsExhausted reports whether err says the pool was temporarily out of workers.
func IsExhausted(err error) bool { return errors.Is(err, ErrPoolExhausted) }

// TaskError describes a task that failed on a worker, either by returning an error or by panicking.
type TaskError struct {
	Worker *Worker
	Err    error
	// Panic holds the recovered value when the task panicked.
	Panic any
	Stack []byte
}

func (e *TaskError) Error() string {
	name := "<unknown>"
	if e.Worker != nil {
		name = e.Worker.Name()
	}
	if e.Panic != nil {
		return fmt.Sprintf("task panicked on %s: %v", name, e.Panic)
	}
	return fmt.Sprintf("task failed on %s: %v", name, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
