package schedcore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_OrdersByDeadline(t *testing.T) {
	q := NewQueue()
	now := time.Now()

	var mu sync.Mutex
	var order []string

	q.EnqueueAt(now.Add(30*time.Millisecond), 5, false, func() {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})
	q.EnqueueAt(now, 5, false, func() {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})

	for i := 0; i < 2; i++ {
		item, ok := q.Pop()
		require.True(t, ok)
		item.Action()
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestQueue_HigherPriorityFirstWhenTied(t *testing.T) {
	q := NewQueue()
	now := time.Now()

	q.EnqueueAt(now, 1, false, func() {})
	q.EnqueueAt(now, 9, false, func() {})

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 9, item.Priority)

	item, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, item.Priority)
}

func TestQueue_FIFOWhenDeadlineAndPriorityTied(t *testing.T) {
	q := NewQueue()
	now := time.Now()

	q.EnqueueAt(now, 5, false, func() {})
	q.EnqueueAt(now, 5, false, func() {})

	first, ok := q.Pop()
	require.True(t, ok)
	second, ok := q.Pop()
	require.True(t, ok)

	assert.Less(t, first.Sequence, second.Sequence)
}

func TestQueue_PopBlocksUntilDeadline(t *testing.T) {
	q := NewQueue()
	deadline := time.Now().Add(40 * time.Millisecond)
	q.EnqueueAt(deadline, 5, false, func() {})

	start := time.Now()
	_, ok := q.Pop()
	require.True(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestQueue_DropIfMissedSkipsLateItem(t *testing.T) {
	q := NewQueue()

	ran := false
	q.EnqueueAt(time.Now().Add(-time.Hour), 5, true, func() { ran = true })
	q.EnqueueAt(time.Now(), 5, false, func() {})

	item, ok := q.Pop()
	require.True(t, ok)
	item.Action()
	assert.False(t, ran)
}

func TestQueue_CloseUnblocksPop(t *testing.T) {
	q := NewQueue()

	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock after Close")
	}
}

func TestQueue_Len(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, 0, q.Len())

	q.EnqueueAt(time.Now().Add(time.Hour), 5, false, func() {})
	q.EnqueueAt(time.Now().Add(time.Hour), 5, false, func() {})
	assert.Equal(t, 2, q.Len())
}
