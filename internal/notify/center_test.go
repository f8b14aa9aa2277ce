package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmdmdm-nz/reachd/internal/dispatch"
)

func TestCenter_PostReachesObserversOfName(t *testing.T) {
	q := dispatch.NewSerialQueue(t.Name())
	defer q.Close()
	c := NewCenter(q)

	got := make(chan Notification, 4)
	other := make(chan Notification, 4)
	c.AddObserver("changed", func(n Notification) { got <- n })
	c.AddObserver("unrelated", func(n Notification) { other <- n })

	c.Post(Notification{Name: "changed", Sender: "monitor", Info: map[string]any{"flags": 2}})

	select {
	case n := <-got:
		assert.Equal(t, "monitor", n.Sender)
		assert.Equal(t, 2, n.Info["flags"])
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notification")
	}

	select {
	case n := <-other:
		t.Fatalf("unexpected notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCenter_RemoveObserver(t *testing.T) {
	q := dispatch.NewSerialQueue(t.Name())
	defer q.Close()
	c := NewCenter(q)

	got := make(chan Notification, 4)
	token := c.AddObserver("changed", func(n Notification) { got <- n })
	assert.Equal(t, 1, c.Observers("changed"))

	assert.True(t, c.RemoveObserver(token))
	assert.False(t, c.RemoveObserver(token))
	assert.Equal(t, 0, c.Observers("changed"))

	c.Post(Notification{Name: "changed"})
	select {
	case n := <-got:
		t.Fatalf("unexpected notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCenter_PostWithoutObserversIsNoop(t *testing.T) {
	c := NewCenter(nil)
	assert.NotPanics(t, func() { c.Post(Notification{Name: "nobody"}) })
	assert.Equal(t, 0, c.Observers("nobody"))
}

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
