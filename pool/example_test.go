package pool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkarsh5026/threadpool/internal/backoff"
	"github.com/utkarsh5026/threadpool/pool"
)

func ExampleParseTimeout() {
	for _, s := range []string{"forever", "-1", "0", "250", "1.5s"} {
		t, err := pool.ParseTimeout(s)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Println(s, "=>", t)
	}
	// Output:
	// forever => forever
	// -1 => forever
	// 0 => none
	// 250 => 250ms
	// 1.5s => 1.5s
}

func ExampleIsExhausted() {
	p, _ := pool.New(1)
	defer p.Close()

	release := make(chan struct{})
	_, _ = p.Acquire(func(ctx context.Context) error {
		<-release
		return nil
	})

	_, err := p.AcquireWithTimeout(pool.Run(func() {}), pool.NoWait)
	fmt.Println(pool.IsExhausted(err), pool.IsClosed(err))
	fmt.Println(err)
	close(release)
	// Output:
	// true false
	// no worker available: pool temporarily exhausted
}

// TestListenersObserveEveryWorker exercises the public listener API end to end.
func TestListenersObserveEveryWorker(t *testing.T) {
	var mu sync.Mutex
	events := []string{}

	record := func(e pool.Event) {
		mu.Lock()
		events = append(events, fmt.Sprintf("%s:%s", e.Kind, e.Worker.ID()))
		mu.Unlock()
	}
	p, err := pool.New(3,
		pool.WithName("hooks"),
		pool.WithIdleTimeout(pool.Within(20*time.Millisecond)),
		pool.WithListener(&pool.ListenerFuncs{Started: record, Exiting: record}),
	)
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	ids := make(chan string, 3)
	for range 3 {
		wg.Add(1)
		w, err := p.Acquire(func(ctx context.Context) error {
			defer wg.Done()
			time.Sleep(10 * time.Millisecond)
			return nil
		})
		require.NoError(t, err)
		ids <- w.ID().String()
	}
	wg.Wait()
	close(ids)

	require.Eventually(t, func() bool { return p.LiveCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, events, 6)
	for id := range ids {
		assert.Contains(t, events, "started:"+id)
		assert.Contains(t, events, "exiting:"+id)
	}
}

// TestUncaughtHandlerSeesTaskErrors checks that task errors never reach Acquire.
func TestUncaughtHandlerSeesTaskErrors(t *testing.T) {
	failures := make(chan *pool.TaskError, 2)
	p, err := pool.New(2, pool.WithUncaughtHandler(func(err *pool.TaskError) {
		failures <- err
	}))
	require.NoError(t, err)
	defer p.Close()

	boom := errors.New("task 2 failed")
	_, err = p.Acquire(func(ctx context.Context) error { return boom })
	require.NoError(t, err)
	_, err = p.Acquire(pool.Run(func() { panic("kaboom") }))
	require.NoError(t, err)

	var got []*pool.TaskError
	for range 2 {
		select {
		case f := <-failures:
			got = append(got, f)
		case <-time.After(2 * time.Second):
			t.Fatal("uncaught handler was not called")
		}
	}

	var sawError, sawPanic bool
	for _, f := range got {
		if errors.Is(f, boom) {
			sawError = true
		}
		if f.Panic != nil {
			sawPanic = true
			assert.Equal(t, "kaboom", f.Panic)
			assert.NotEmpty(t, f.Stack)
		}
	}
	assert.True(t, sawError)
	assert.True(t, sawPanic)
}

// TestRetryingExhaustedAcquisitions retries with backoff until a worker frees up.
func TestRetryingExhaustedAcquisitions(t *testing.T) {
	p, err := pool.New(1, pool.WithAcquireTimeout(pool.NoWait))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Acquire(func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	s := backoff.New(backoff.Policy{Kind: backoff.Exponential, Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond})
	attempts, err := backoff.Retry(context.Background(), s, 20, pool.IsExhausted, func() error {
		_, err := p.Acquire(pool.Run(func() {}))
		return err
	})

	require.NoError(t, err)
	assert.Greater(t, attempts, 1)
}

// TestRetryStopsOnClose never retries a closed pool.
func TestRetryStopsOnClose(t *testing.T) {
	p, err := pool.New(1)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	s := backoff.New(backoff.Policy{Kind: backoff.Jittered, Initial: time.Millisecond, Max: time.Millisecond})
	attempts, err := backoff.Retry(context.Background(), s, 5, pool.IsExhausted, func() error {
		_, err := p.Acquire(pool.Run(func() {}))
		return err
	})

	assert.Equal(t, 1, attempts)
	assert.True(t, pool.IsClosed(err))
}
