package pool

import (
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// UncaughtHandler receives every task failure. It runs on the failing worker's goroutine,
// outside any pool lock, before the worker goes back to idle.
type UncaughtHandler func(err *TaskError)

// failureLogger is the default UncaughtHandler. It logs through the pool logger and
// drops records beyond its rate limit, reporting how many were dropped on the next one.
type failureLogger struct {
	logger     *slog.Logger
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

func newFailureLogger(logger *slog.Logger, limiter *rate.Limiter) *failureLogger {
	return &failureLogger{logger: logger, limiter: limiter}
}

func (f *failureLogger) handle(err *TaskError) {
	if !f.limiter.Allow() {
		f.suppressed.Add(1)
		return
	}

	attrs := []any{slog.Any("error", err.Err)}
	if err.Worker != nil {
		attrs = append(attrs, slog.String("worker", err.Worker.Name()))
	}
	if err.Panic != nil {
		attrs = append(attrs, slog.String("stack", string(err.Stack)))
	}
	if n := f.suppressed.Swap(0); n > 0 {
		attrs = append(attrs, slog.Int64("suppressed", n))
	}
	f.logger.Error("uncaught task failure", attrs...)
}

// report hands err to the configured sink. A panicking handler must not take the worker down.
func (p *Pool) report(err *TaskError) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("uncaught handler panicked", slog.Any("panic", r))
		}
	}()
	p.uncaught(err)
}
