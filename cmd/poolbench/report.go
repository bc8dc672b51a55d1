package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/utkarsh5026/threadpool/internal/config"
	"github.com/utkarsh5026/threadpool/pool"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

func makeProgressBar(total int, enabled bool) *progressbar.ProgressBar {
	if !enabled {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Running tasks"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func printConfiguration(cfg *config.File) {
	_, _ = bold.Println("⚙️  Configuration:")
	fmt.Printf("  Pool:             %s (capacity %d, priority %d, background %v)\n",
		cfg.Pool.Name, cfg.Pool.Capacity, cfg.Pool.Priority, cfg.Pool.Background)
	fmt.Printf("  Timeouts:         acquire=%s idle=%s close=%s\n",
		cfg.Pool.AcquireTimeout, cfg.Pool.IdleTimeout, cfg.Pool.CloseTimeout)
	fmt.Printf("  Workload:         %d tasks of %s from %d submitters\n",
		cfg.Workload.Tasks, cfg.TaskDuration(), cfg.Workload.Submitters)
	fmt.Printf("  Failures:         %.1f%% errors, %.1f%% panics\n",
		cfg.Workload.FailureRate*100, cfg.Workload.PanicRate*100)
	fmt.Printf("  Retry:            %d attempts, %s backoff\n", cfg.Retry.Attempts, cfg.BackoffPolicy().Kind)
	fmt.Println()
}

type summary struct {
	elapsed  time.Duration
	closeDur time.Duration
	closeErr error
	p        *pool.Pool
}

func printResults(s *stats, sum summary, capacity int) {
	fmt.Println()
	_, _ = bold.Println("📊 POOL RESULTS")
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")

	rows := [][]string{
		{"Elapsed", sum.elapsed.Round(time.Millisecond).String()},
		{"Tasks acquired", fmt.Sprintf("%d", s.acquired.Load())},
		{"Tasks finished", fmt.Sprintf("%d", s.completed.Load())},
		{"Task errors (contained)", fmt.Sprintf("%d", s.failed.Load())},
		{"Task panics (contained)", fmt.Sprintf("%d", s.panicked.Load())},
		{"Exhausted retries", fmt.Sprintf("%d", s.retried.Load())},
		{"Gave up (exhausted)", fmt.Sprintf("%d", s.exhausted.Load())},
		{"Rejected (closed)", fmt.Sprintf("%d", s.rejected.Load())},
		{"Workers started", fmt.Sprintf("%d", s.started.Load())},
		{"Workers exited", fmt.Sprintf("%d", s.exiting.Load())},
		{"Peak pooled", fmt.Sprintf("%d / %d", s.peak.Load(), capacity)},
		{"Acquire p50", s.percentile(0.50).String()},
		{"Acquire p99", s.percentile(0.99).String()},
		{"Close took", sum.closeDur.Round(time.Microsecond).String()},
		{"Pooled after close", fmt.Sprintf("%d", sum.p.PooledCount())},
		{"OS threads", fmt.Sprintf("%d", pool.OSThreadCount())},
	}
	for _, row := range rows {
		_ = table.Append(row[0], row[1])
	}
	_ = table.Render()
	fmt.Println()

	switch {
	case sum.closeErr != nil:
		_, _ = yellow.Printf("⚠️  %v\n", sum.closeErr)
	case s.peak.Load() > int64(capacity):
		_, _ = red.Printf("✗ pooled workers exceeded capacity (%d > %d)\n", s.peak.Load(), capacity)
	default:
		_, _ = green.Println("✓ pool drained cleanly")
	}
}
