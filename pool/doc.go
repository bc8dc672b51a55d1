// Package pool provides a bounded pool of reusable workers for running background tasks
// without starting a new goroutine and OS thread for each one.
//
// A Pool creates workers lazily up to its capacity. Each worker is a goroutine bound to
// its own OS thread that runs one task at a time, goes back on an idle stack when the
// task finishes, and retires by itself when no task arrives within the idle timeout.
//
// # Basic Usage
//
//	p, err := pool.New(4, pool.WithIdleTimeout(pool.Within(30*time.Second)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	_, err = p.Acquire(func(ctx context.Context) error {
//	    return process(ctx)
//	})
//
// # Timeouts
//
// Acquisition, idle retirement and close draining all take a Timeout, an explicit policy
// rather than a magic number:
//
//   - NoWait: never block (Acquire fails at once, idle workers retire at once)
//   - Within(d): block for at most d
//   - Forever(): block without a bound
//
// TimeoutOf converts the signed-duration convention (negative = forever, zero = no wait).
//
// # Failures
//
// Acquire fails with a *NoWorkerError. Use IsExhausted to detect a temporarily
// exhausted pool (the caller may retry) and IsClosed to detect a closed one (permanent).
// Tasks never report failures to the caller of Acquire: a returned error or a panic is
// wrapped in a *TaskError and handed to the pool's UncaughtHandler, and the worker goes
// back to idle as usual.
//
// # Events
//
// Listeners registered with AddListener are told, synchronously, when a worker starts
// and when it exits. Subscribe offers the same events on a channel.
//
//	events, cancel := p.Subscribe(64)
//	defer cancel()
//	for e := range events {
//	    log.Printf("%s %s", e.Worker.Name(), e.Kind)
//	}
//
// # Closing
//
// Close marks the pool closed, stops idle workers, and waits up to the drain budget for
// running tasks to finish. Workers still alive after that have their task context
// cancelled. Tasks are never preempted before the budget elapses.
package pool
