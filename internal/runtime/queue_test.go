package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_DeliversInOrder(t *testing.T) {
	out := make(chan int, 16)
	q := NewQueue(func(v int) { out <- v })
	defer q.Close()

	for i := 0; i < 10; i++ {
		require.True(t, q.Enqueue(i))
	}
	for i := 0; i < 10; i++ {
		select {
		case v := <-out:
			assert.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %d", i)
		}
	}
}

func TestQueue_SinkRunsOnOneGoroutineAtATime(t *testing.T) {
	var mu sync.Mutex
	running, maxRunning := 0, 0
	var wg sync.WaitGroup
	wg.Add(20)

	q := NewQueue(func(int) {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		wg.Done()
	})
	defer q.Close()

	for i := 0; i < 20; i++ {
		go q.Enqueue(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxRunning)
}

func TestQueue_CloseDropsPending(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []int

	q := NewQueue(func(v int) {
		if v == 0 {
			<-release
		}
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	q.Enqueue(0)
	q.Enqueue(1)
	q.Enqueue(2)
	time.Sleep(20 * time.Millisecond)

	q.Close()
	close(release)

	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not exit")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0}, seen)
	assert.False(t, q.Enqueue(3))
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PauseHoldsItems(t *testing.T) {
	out := make(chan int, 4)
	q := NewQueue(func(v int) { out <- v })
	defer q.Close()

	q.SetPaused(true)
	q.Enqueue(7)

	select {
	case <-out:
		t.Fatal("delivered while paused")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, q.Len())

	q.SetPaused(false)
	select {
	case v := <-out:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("timeout after resume")
	}
}
