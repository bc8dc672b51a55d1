package pool

import (
	"context"
	"fmt"
	"runtime"
)

// Task is a unit of work run by a worker.
//
// The context is cancelled only when the pool is closed and its drain budget has
// elapsed; long tasks should watch it. A returned error or a panic is reported to the
// pool's UncaughtHandler and never reaches the caller of Acquire. A task must not close
// its own pool with a Forever budget, since Close waits for the task's worker to exit.
type Task func(ctx context.Context) error

// Run adapts a plain function to a Task.
func Run(fn func()) Task {
	return func(context.Context) error {
		fn()
		return nil
	}
}

// runWithRecovery executes t and converts both a returned error and a panic into a TaskError.
func runWithRecovery(ctx context.Context, w *Worker, t Task) (terr *TaskError) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("worker panic: %v", r)
			}
			terr = &TaskError{Worker: w, Err: err, Panic: r, Stack: buf[:n]}
		}
	}()

	if err := t(ctx); err != nil {
		return &TaskError{Worker: w, Err: err}
	}
	return nil
}
