package benchmarks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/utkarsh5026/threadpool/pool"
)

// cpuBoundWork simulates a CPU-intensive operation
func cpuBoundWork(iterations int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		result := 0
		for i := 0; i < iterations; i++ {
			result += i * i
		}
		_ = result
		return nil
	}
}

// ioBoundWork simulates an I/O operation with a delay
func ioBoundWork(delay time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func newBenchPool(b *testing.B, capacity int, opts ...pool.Option) *pool.Pool {
	b.Helper()

	opts = append([]pool.Option{
		pool.WithAcquireTimeout(pool.Forever()),
		pool.WithIdleTimeout(pool.Within(time.Minute)),
	}, opts...)
	p, err := pool.New(capacity, opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = p.CloseWithTimeout(pool.Forever()) })
	return p
}

// runAll hands n copies of work to p and waits until every one has finished.
func runAll(b *testing.B, p *pool.Pool, n int, work func(ctx context.Context) error) {
	b.Helper()

	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		_, err := p.Acquire(func(ctx context.Context) error {
			defer wg.Done()
			return work(ctx)
		})
		if err != nil {
			b.Fatal(err)
		}
	}
	wg.Wait()
}

func reportThroughput(b *testing.B, tasksPerOp int) float64 {
	nsPerOp := float64(b.Elapsed().Nanoseconds()) / float64(b.N)
	tasksPerSec := (float64(tasksPerOp) / nsPerOp) * 1e9
	b.ReportMetric(tasksPerSec, "tasks/sec")
	return tasksPerSec
}
