package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newDetachedWorker(t *testing.T, task Task) *Worker {
	t.Helper()
	p := newTestPool(t, 1)
	return newWorker(p, "test-worker-1", "", task, NormPriority, false)
}

func TestWorker_TryAssign(t *testing.T) {
	t.Run("idle worker accepts a task", func(t *testing.T) {
		w := newDetachedWorker(t, nil)
		w.state = StateIdle

		assert.True(t, w.tryAssign(Run(func() {}), "renamed"))
		assert.Equal(t, "renamed", w.Name())
		assert.Len(t, w.wake, 1)
	})

	t.Run("retiring worker refuses", func(t *testing.T) {
		w := newDetachedWorker(t, nil)
		w.state = StateRetiring

		assert.False(t, w.tryAssign(Run(func() {}), ""))
		assert.Nil(t, w.task)
	})

	t.Run("terminated worker refuses", func(t *testing.T) {
		w := newDetachedWorker(t, nil)
		w.state = StateTerminated

		assert.False(t, w.tryAssign(Run(func() {}), ""))
	})

	t.Run("second task is a protocol violation", func(t *testing.T) {
		w := newDetachedWorker(t, Run(func() {}))

		assert.Panics(t, func() { w.tryAssign(Run(func() {}), "") })
	})
}

func TestWorker_Await(t *testing.T) {
	t.Run("pending task wins over an expired timeout", func(t *testing.T) {
		w := newDetachedWorker(t, Run(func() {}))

		task, ok := w.await(NoWait)
		assert.True(t, ok)
		assert.NotNil(t, task)
		assert.Equal(t, StateRunning, w.State())
	})

	t.Run("no task and no wait retires", func(t *testing.T) {
		w := newDetachedWorker(t, nil)
		w.state = StateIdle

		task, ok := w.await(NoWait)
		assert.False(t, ok)
		assert.Nil(t, task)
		assert.Equal(t, StateRetiring, w.State())
		assert.False(t, w.tryAssign(Run(func() {}), ""), "handshake must fail once retiring")
	})

	t.Run("stop sentinel retires an idle worker", func(t *testing.T) {
		w := newDetachedWorker(t, nil)
		w.state = StateIdle
		w.signalStop()

		_, ok := w.await(Forever())
		assert.False(t, ok)
		assert.Equal(t, StateRetiring, w.State())
	})
}

func TestWorkerState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "retiring", StateRetiring.String())
	assert.Equal(t, "terminated", StateTerminated.String())
	assert.Equal(t, "unknown", WorkerState(42).String())
}
