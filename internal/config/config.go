// Package config loads poolbench configuration files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/utkarsh5026/threadpool/internal/backoff"
	"github.com/utkarsh5026/threadpool/pool"
)

// File is the layout of a configuration file.
type File struct {
	Pool     PoolConfig     `yaml:"pool" json:"pool"`
	Workload WorkloadConfig `yaml:"workload" json:"workload"`
	Retry    RetryConfig    `yaml:"retry" json:"retry"`
	LogLevel string         `yaml:"log_level" json:"log_level"`
}

// PoolConfig configures the pool under test. Timeouts accept "forever", "none",
// signed milliseconds or Go durations.
type PoolConfig struct {
	Name           string `yaml:"name" json:"name"`
	Capacity       int    `yaml:"capacity" json:"capacity"`
	Background     bool   `yaml:"background" json:"background"`
	Priority       int    `yaml:"priority" json:"priority"`
	IdleTimeout    string `yaml:"idle_timeout" json:"idle_timeout"`
	AcquireTimeout string `yaml:"acquire_timeout" json:"acquire_timeout"`
	CloseTimeout   string `yaml:"close_timeout" json:"close_timeout"`
}

// WorkloadConfig describes the generated tasks.
type WorkloadConfig struct {
	Tasks        int     `yaml:"tasks" json:"tasks"`
	Submitters   int     `yaml:"submitters" json:"submitters"`
	TaskDuration string  `yaml:"task_duration" json:"task_duration"`
	FailureRate  float64 `yaml:"failure_rate" json:"failure_rate"`
	PanicRate    float64 `yaml:"panic_rate" json:"panic_rate"`
}

// RetryConfig controls how exhausted acquisitions are retried.
type RetryConfig struct {
	Attempts     int     `yaml:"attempts" json:"attempts"`
	Backoff      string  `yaml:"backoff" json:"backoff"`
	InitialDelay string  `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay" json:"max_delay"`
	Jitter       float64 `yaml:"jitter" json:"jitter"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		Pool: PoolConfig{
			Name:           "bench",
			Capacity:       8,
			Priority:       int(pool.NormPriority),
			IdleTimeout:    "1s",
			AcquireTimeout: "100ms",
			CloseTimeout:   "5s",
		},
		Workload: WorkloadConfig{
			Tasks:        500,
			Submitters:   4,
			TaskDuration: "5ms",
			FailureRate:  0.02,
			PanicRate:    0.01,
		},
		Retry: RetryConfig{
			Attempts:     5,
			Backoff:      "jittered",
			InitialDelay: "5ms",
			MaxDelay:     "200ms",
			Jitter:       0.2,
		},
		LogLevel: "warn",
	}
}

// LoadFile reads a YAML or JSON file on top of Default.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return cfg, nil
}

// Validate checks ranges and that every duration parses.
func (f *File) Validate() error {
	var errs []error

	if f.Pool.Capacity <= 0 {
		errs = append(errs, errors.New("pool.capacity must be positive"))
	}
	if !pool.Priority(f.Pool.Priority).Valid() {
		errs = append(errs, fmt.Errorf("pool.priority must be between %d and %d", pool.MinPriority, pool.MaxPriority))
	}
	for field, v := range map[string]string{
		"pool.idle_timeout":    f.Pool.IdleTimeout,
		"pool.acquire_timeout": f.Pool.AcquireTimeout,
		"pool.close_timeout":   f.Pool.CloseTimeout,
	} {
		if _, err := pool.ParseTimeout(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	if f.Workload.Tasks < 0 {
		errs = append(errs, errors.New("workload.tasks must be non-negative"))
	}
	if f.Workload.Submitters <= 0 {
		errs = append(errs, errors.New("workload.submitters must be positive"))
	}
	if _, err := parseDuration(f.Workload.TaskDuration); err != nil {
		errs = append(errs, fmt.Errorf("workload.task_duration: %w", err))
	}
	if r := f.Workload.FailureRate + f.Workload.PanicRate; f.Workload.FailureRate < 0 || f.Workload.PanicRate < 0 || r > 1 {
		errs = append(errs, errors.New("workload.failure_rate and workload.panic_rate must be in [0, 1] together"))
	}

	if f.Retry.Attempts < 0 {
		errs = append(errs, errors.New("retry.attempts must be non-negative"))
	}
	if _, ok := backoff.ParseKind(f.Retry.Backoff); !ok {
		errs = append(errs, fmt.Errorf("retry.backoff: unknown algorithm %q", f.Retry.Backoff))
	}
	for field, v := range map[string]string{
		"retry.initial_delay": f.Retry.InitialDelay,
		"retry.max_delay":     f.Retry.MaxDelay,
	} {
		if _, err := parseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	if _, err := f.Level(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// PoolOptions converts the pool section into pool options. Call Validate first.
func (f *File) PoolOptions(logger *slog.Logger) ([]pool.Option, error) {
	idle, err := pool.ParseTimeout(f.Pool.IdleTimeout)
	if err != nil {
		return nil, err
	}
	acquire, err := pool.ParseTimeout(f.Pool.AcquireTimeout)
	if err != nil {
		return nil, err
	}
	closing, err := pool.ParseTimeout(f.Pool.CloseTimeout)
	if err != nil {
		return nil, err
	}

	return []pool.Option{
		pool.WithName(f.Pool.Name),
		pool.WithBackground(f.Pool.Background),
		pool.WithPriority(pool.Priority(f.Pool.Priority)),
		pool.WithIdleTimeout(idle),
		pool.WithAcquireTimeout(acquire),
		pool.WithCloseTimeout(closing),
		pool.WithLogger(logger),
	}, nil
}

// TaskDuration returns the parsed workload task duration.
func (f *File) TaskDuration() time.Duration {
	d, _ := parseDuration(f.Workload.TaskDuration)
	return d
}

// BackoffPolicy returns the retry schedule.
func (f *File) BackoffPolicy() backoff.Policy {
	kind, _ := backoff.ParseKind(f.Retry.Backoff)
	initial, _ := parseDuration(f.Retry.InitialDelay)
	maxDelay, _ := parseDuration(f.Retry.MaxDelay)
	return backoff.Policy{Kind: kind, Initial: initial, Max: maxDelay, Jitter: f.Retry.Jitter}
}

// Level returns the slog level named by LogLevel.
func (f *File) Level() (slog.Level, error) {
	var level slog.Level
	if f.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
