// Command poolbench drives a worker pool with a synthetic workload and reports how the
// pool behaved: acquisitions, retries, contained failures, worker churn and drain time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/utkarsh5026/threadpool/internal/backoff"
	"github.com/utkarsh5026/threadpool/internal/config"
	"github.com/utkarsh5026/threadpool/pool"
)

func main() {
	enableWindowsANSI()

	configFlag := flag.String("config", "", "Path to a YAML or JSON configuration file")
	capacityFlag := flag.Int("capacity", 0, "Maximum number of pooled workers")
	tasksFlag := flag.Int("tasks", 0, "Number of tasks to submit")
	submittersFlag := flag.Int("submitters", 0, "Number of concurrent submitters")
	durationFlag := flag.String("duration", "", "Simulated duration of each task (e.g. 5ms)")
	acquireFlag := flag.String("acquire-timeout", "", "Acquire timeout: forever, none, milliseconds or a duration")
	idleFlag := flag.String("idle-timeout", "", "Idle timeout: forever, none, milliseconds or a duration")
	closeFlag := flag.String("close-timeout", "", "Close drain budget: forever, none, milliseconds or a duration")
	backgroundFlag := flag.Bool("background", false, "Mark workers as background")
	priorityFlag := flag.Int("priority", 0, "Worker priority (1-10)")
	failureFlag := flag.Float64("failure-rate", 0, "Fraction of tasks that return an error")
	panicFlag := flag.Float64("panic-rate", 0, "Fraction of tasks that panic")
	logLevelFlag := flag.String("log-level", "", "Log level: debug, info, warn, error")
	quietFlag := flag.Bool("quiet", false, "Disable the progress bar")
	flag.Parse()

	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.LoadFile(*configFlag)
		if err != nil {
			_, _ = red.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "capacity":
			cfg.Pool.Capacity = *capacityFlag
		case "tasks":
			cfg.Workload.Tasks = *tasksFlag
		case "submitters":
			cfg.Workload.Submitters = *submittersFlag
		case "duration":
			cfg.Workload.TaskDuration = *durationFlag
		case "acquire-timeout":
			cfg.Pool.AcquireTimeout = *acquireFlag
		case "idle-timeout":
			cfg.Pool.IdleTimeout = *idleFlag
		case "close-timeout":
			cfg.Pool.CloseTimeout = *closeFlag
		case "background":
			cfg.Pool.Background = *backgroundFlag
		case "priority":
			cfg.Pool.Priority = *priorityFlag
		case "failure-rate":
			cfg.Workload.FailureRate = *failureFlag
		case "panic-rate":
			cfg.Workload.PanicRate = *panicFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		}
	})

	if err := cfg.Validate(); err != nil {
		_, _ = red.Printf("Invalid configuration:\n%v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	showProgress := !*quietFlag && term.IsTerminal(int(os.Stderr.Fd()))
	if err := run(ctx, cfg, showProgress); err != nil {
		_, _ = red.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.File, showProgress bool) error {
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s := &stats{}
	opts, err := cfg.PoolOptions(logger)
	if err != nil {
		return err
	}
	opts = append(opts,
		pool.WithListener(s.listener()),
		pool.WithUncaughtHandler(func(err *pool.TaskError) {
			s.uncaught(err)
			logger.Debug("task failed", "worker", err.Worker, "error", err)
		}),
	)

	p, err := pool.New(cfg.Pool.Capacity, opts...)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	printConfiguration(cfg)
	_, _ = bold.Println("Running workload...")
	fmt.Println()

	bar := makeProgressBar(cfg.Workload.Tasks, showProgress)
	work := workload{
		duration:    cfg.TaskDuration(),
		failureRate: cfg.Workload.FailureRate,
		panicRate:   cfg.Workload.PanicRate,
	}

	sampleCtx, stopSampling := context.WithCancel(ctx)
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		samplePooled(sampleCtx, p, s)
	}()

	start := time.Now()
	var running sync.WaitGroup
	submitErr := submit(ctx, p, cfg, work, s, bar, &running)
	running.Wait()
	elapsed := time.Since(start)

	stopSampling()
	<-sampled
	_ = bar.Finish()

	closeTimeout, _ := pool.ParseTimeout(cfg.Pool.CloseTimeout)
	if cfg.Pool.Background {
		closeTimeout = pool.NoWait
	}
	closeStart := time.Now()
	closeErr := p.CloseWithTimeout(closeTimeout)
	closeDur := time.Since(closeStart)

	printResults(s, summary{elapsed: elapsed, closeDur: closeDur, closeErr: closeErr, p: p}, cfg.Pool.Capacity)

	if errors.Is(submitErr, context.Canceled) {
		_, _ = yellow.Println("Interrupted")
		return nil
	}
	return submitErr
}

// submit spreads the tasks over the configured submitters. Exhausted acquisitions are
// retried with backoff; a closed pool or a cancelled context ends the submitter.
func submit(ctx context.Context, p *pool.Pool, cfg *config.File, work workload, s *stats, bar interface{ Add(int) error }, running *sync.WaitGroup) error {
	g, ctx := errgroup.WithContext(ctx)
	policy := cfg.BackoffPolicy()

	total := cfg.Workload.Tasks
	n := cfg.Workload.Submitters
	for i := range n {
		count := total / n
		if i < total%n {
			count++
		}

		g.Go(func() error {
			strategy := backoff.New(policy)
			for range count {
				running.Add(1)
				done := func() {
					s.completed.Add(1)
					_ = bar.Add(1)
					running.Done()
				}

				begin := time.Now()
				attempts, err := backoff.Retry(ctx, strategy, cfg.Retry.Attempts+1, pool.IsExhausted, func() error {
					_, err := p.AcquireContext(ctx, work.task(done))
					return err
				})
				if attempts > 1 {
					s.retried.Add(int64(attempts - 1))
				}

				switch {
				case err == nil:
					s.acquired.Add(1)
					s.recordAcquire(time.Since(begin))
					continue
				case pool.IsExhausted(err):
					s.exhausted.Add(1)
				case pool.IsClosed(err):
					s.rejected.Add(1)
				}

				// The task never ran, so account for it here.
				_ = bar.Add(1)
				running.Done()

				if ctx.Err() != nil {
					return ctx.Err()
				}
				if pool.IsClosed(err) {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func samplePooled(ctx context.Context, p *pool.Pool, s *stats) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		s.observePooled(p.PooledCount())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
