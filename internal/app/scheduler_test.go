package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) ExpireIdle() int {
	s.calls.Add(1)
	return 1
}

func TestSchedulerSweepsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewScheduler(sweeper, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerStop(t *testing.T) {
	s := NewScheduler(&countingSweeper{}, time.Hour, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	s.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger("production"))
	assert.NotNil(t, NewLogger("development"))
}
