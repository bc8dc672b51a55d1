package pool

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultName           = "pool"
	defaultIdleTimeout    = 60 * time.Second
	defaultCloseTimeout   = 10 * time.Second
	defaultFailureLogRate = 10
	defaultFailureBurst   = 20
)

// Option is a functional option for configuring a Pool.
type Option func(*poolConfig)

type poolConfig struct {
	name           string
	background     bool
	priority       Priority
	idleTimeout    Timeout
	acquireTimeout Timeout
	closeTimeout   Timeout
	logger         *slog.Logger
	uncaught       UncaughtHandler
	failureLimit   *rate.Limiter
	listeners      []Listener
}

func defaultConfig() *poolConfig {
	return &poolConfig{
		name:           defaultName,
		priority:       NormPriority,
		idleTimeout:    Within(defaultIdleTimeout),
		acquireTimeout: Forever(),
		closeTimeout:   Within(defaultCloseTimeout),
		logger:         slog.New(slog.DiscardHandler),
		failureLimit:   rate.NewLimiter(rate.Limit(defaultFailureLogRate), defaultFailureBurst),
	}
}

// WithBackground marks the pool's workers as background workers.
// Background pools are not expected to be drained before the process exits.
func WithBackground(background bool) Option {
	return func(cfg *poolConfig) {
		cfg.background = background
	}
}

// WithName sets the prefix used for worker names ("<name>-worker-<n>").
func WithName(name string) Option {
	return func(cfg *poolConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithPriority sets the initial worker priority. New returns ErrInvalidPriority
// when p is out of range.
func WithPriority(p Priority) Option {
	return func(cfg *poolConfig) {
		cfg.priority = p
	}
}

// WithIdleTimeout sets how long an idle worker waits for a task before retiring.
// Forever disables retirement; NoWait retires a worker as soon as it goes idle.
func WithIdleTimeout(t Timeout) Option {
	return func(cfg *poolConfig) {
		cfg.idleTimeout = t
	}
}

// WithAcquireTimeout sets the default acquisition wait used by Acquire and AcquireContext.
func WithAcquireTimeout(t Timeout) Option {
	return func(cfg *poolConfig) {
		cfg.acquireTimeout = t
	}
}

// WithCloseTimeout sets the default drain budget used by Close.
func WithCloseTimeout(t Timeout) Option {
	return func(cfg *poolConfig) {
		cfg.closeTimeout = t
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *poolConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithUncaughtHandler replaces the default task failure sink, which logs.
func WithUncaughtHandler(h UncaughtHandler) Option {
	return func(cfg *poolConfig) {
		cfg.uncaught = h
	}
}

// WithFailureLogRate bounds how many task failures per second the default
// UncaughtHandler logs. Failures beyond the limit are counted, not logged.
//
// Example:
//
//	WithFailureLogRate(5, 10) // 5 failures/sec with a burst of 10
func WithFailureLogRate(perSecond float64, burst int) Option {
	return func(cfg *poolConfig) {
		if perSecond > 0 && burst > 0 {
			cfg.failureLimit = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithListener registers l before any worker is created.
func WithListener(l Listener) Option {
	return func(cfg *poolConfig) {
		if l != nil {
			cfg.listeners = append(cfg.listeners, l)
		}
	}
}
