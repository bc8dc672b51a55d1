package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerStack(t *testing.T) {
	a, b, c := &Worker{baseName: "a"}, &Worker{baseName: "b"}, &Worker{baseName: "c"}

	t.Run("pops most recent first", func(t *testing.T) {
		var s workerStack
		s.push(a)
		s.push(b)
		s.push(c)

		assert.Same(t, c, s.pop())
		assert.Same(t, b, s.pop())
		assert.Same(t, a, s.pop())
		assert.Nil(t, s.pop())
		assert.Equal(t, 0, s.len())
	})

	t.Run("remove keeps order", func(t *testing.T) {
		var s workerStack
		s.push(a)
		s.push(b)
		s.push(c)

		assert.True(t, s.remove(b))
		assert.False(t, s.remove(b))
		assert.Equal(t, 2, s.len())

		var order []string
		s.each(func(w *Worker) { order = append(order, w.baseName) })
		assert.Equal(t, []string{"c", "a"}, order)
	})
}
