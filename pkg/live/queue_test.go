package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue(4)
	var got []int
	for i := 1; i <= 3; i++ {
		require.True(t, q.Enqueue(func() { got = append(got, i) }))
	}
	assert.Equal(t, 3, q.Len())

	for range 3 {
		task, ok := q.TryDequeue()
		require.True(t, ok)
		task()
	}
	assert.Equal(t, []int{1, 2, 3}, got)

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestTaskQueue_DequeueBlocksUntilAvailable(t *testing.T) {
	q := newTaskQueue(1)
	done := make(chan struct{})

	go func() {
		task, ok := q.Dequeue()
		if ok {
			task()
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock")
	}
}

func TestTaskQueue_CloseDrainsPendingTasks(t *testing.T) {
	q := newTaskQueue(1)
	ran := 0
	q.Enqueue(func() { ran++ })
	q.Enqueue(func() { ran++ })
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(func() { ran++ }))
	for {
		task, ok := q.Dequeue()
		if !ok {
			break
		}
		task()
	}
	assert.Equal(t, 2, ran)
}
