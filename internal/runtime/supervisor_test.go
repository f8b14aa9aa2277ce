package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_AllWorkersStart(t *testing.T) {
	s := NewSupervisor()

	var started [3]atomic.Bool

	for i := 0; i < 3; i++ {
		idx := i
		s.Add("worker", func(ctx context.Context) error {
			started[idx].Store(true)
			<-ctx.Done()
			return nil
		}, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool {
		return started[0].Load() && started[1].Load() && started[2].Load()
	}, time.Second, 10*time.Millisecond)

	cancel()
	_ = s.Wait(ctx)
}

func TestSupervisor_ShutdownReverseOrder(t *testing.T) {
	s := NewSupervisor()

	var shutdownOrder []string
	var mu sync.Mutex

	for _, name := range []string{"monitors", "notify", "api"} {
		s.Add(name, func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}, func() error {
			mu.Lock()
			shutdownOrder = append(shutdownOrder, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	_ = s.Wait(ctx)

	assert.Equal(t, []string{"api", "notify", "monitors"}, shutdownOrder)
}

func TestSupervisor_ErrorWrappedWithWorkerName(t *testing.T) {
	s := NewSupervisor()
	expectedErr := errors.New("listen failed")

	s.Add("api", func(ctx context.Context) error {
		return expectedErr
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	time.Sleep(50 * time.Millisecond)

	cancel()
	err := s.Wait(ctx)

	require.ErrorIs(t, err, expectedErr)
	assert.Contains(t, err.Error(), "api")
}

func TestSupervisor_OnlyFirstErrorReturned(t *testing.T) {
	s := NewSupervisor()

	firstErr := errors.New("first error")
	secondErr := errors.New("second error")

	var barrier sync.WaitGroup
	barrier.Add(1)

	s.Add("first-worker", func(ctx context.Context) error {
		barrier.Done()
		return firstErr
	}, nil)

	s.Add("second-worker", func(ctx context.Context) error {
		barrier.Wait()
		time.Sleep(10 * time.Millisecond)
		return secondErr
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	time.Sleep(100 * time.Millisecond)

	cancel()
	err := s.Wait(ctx)

	assert.ErrorIs(t, err, firstErr)
	assert.NotErrorIs(t, err, secondErr)
}

func TestSupervisor_CloseErrorIgnored(t *testing.T) {
	s := NewSupervisor()

	s.Add("worker", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, func() error {
		return errors.New("close error")
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.NoError(t, s.Wait(ctx))
}

func TestSupervisor_NilCloseFunc(t *testing.T) {
	s := NewSupervisor()

	s.Add("worker", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	require.NotPanics(t, func() {
		_ = s.Wait(ctx)
	})
}

func TestSupervisor_EmptySupervisor(t *testing.T) {
	s := NewSupervisor()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.NoError(t, s.Wait(ctx))
}

func TestSupervisor_LateWorkerStartedBySecondStart(t *testing.T) {
	s := NewSupervisor()

	var early, late atomic.Bool
	s.Add("early", func(ctx context.Context) error {
		early.Store(true)
		<-ctx.Done()
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	s.Add("late", func(ctx context.Context) error {
		late.Store(true)
		<-ctx.Done()
		return nil
	}, nil)
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool { return early.Load() && late.Load() }, time.Second, 10*time.Millisecond)

	cancel()
	_ = s.Wait(ctx)
}
