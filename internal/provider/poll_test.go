package provider

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollWatcher_TicksOnInterval(t *testing.T) {
	mock := clock.NewMock()
	w := NewPollWatcher(mock, time.Second)

	events := make(chan ChangeEvent, 4)
	require.NoError(t, w.Open(func(ev ChangeEvent) { events <- ev }))

	mock.Add(time.Second)
	select {
	case ev := <-events:
		assert.Equal(t, Tick, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for tick")
	}

	require.NoError(t, w.Close())
	mock.Add(5 * time.Second)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event after close: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPollWatcher_OpenTwice(t *testing.T) {
	w := NewPollWatcher(clock.NewMock(), time.Second)
	require.NoError(t, w.Open(func(ChangeEvent) {}))
	defer w.Close()

	assert.ErrorIs(t, w.Open(func(ChangeEvent) {}), ErrAlreadyStarted)
}

func TestPollWatcher_Defaults(t *testing.T) {
	w := NewPollWatcher(nil, 0)
	assert.Equal(t, DefaultPollInterval, w.interval)
	assert.NotNil(t, w.clock)
	assert.NoError(t, w.Close())
}
