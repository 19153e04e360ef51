package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func blockUntilDone(stopped *atomic.Int32) Runnable {
	return RunnableFunc(func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Inc()
		return nil
	})
}

func TestCollection_StopsOnCancel(t *testing.T) {
	var stopped atomic.Int32
	c := New(Options{}, blockUntilDone(&stopped), blockUntilDone(&stopped))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(2), stopped.Load(), "runnables end before Start returns")
}

func TestCollection_ErrorStopsAll(t *testing.T) {
	var stopped atomic.Int32
	boom := errors.New("boom")
	c := New(Options{},
		blockUntilDone(&stopped),
		RunnableFunc(func(context.Context) error { return boom }),
	)
	err := c.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), stopped.Load())
}

func TestCollection_AllOrNothing(t *testing.T) {
	var stopped atomic.Int32
	c := New(Options{AllOrNothing: true},
		blockUntilDone(&stopped),
		RunnableFunc(func(context.Context) error { return nil }),
	)
	err := c.Start(context.Background())
	assert.ErrorIs(t, err, errRunnableReturned)
	assert.Equal(t, int32(1), stopped.Load())
}

func TestCollection_AddAfterStart(t *testing.T) {
	var stopped atomic.Int32
	c := New(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	started := make(chan struct{})
	require.NoError(t, c.Add(RunnableFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		stopped.Inc()
		return nil
	})))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("runnable added after start was not started")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), stopped.Load())
	assert.Error(t, c.Add(blockUntilDone(&stopped)), "no runnables after stop")
}

func TestCollection_GracePeriodExceeded(t *testing.T) {
	grace := 20 * time.Millisecond
	release := make(chan struct{})
	defer close(release)
	c := New(Options{GracefulShutdownTimeout: &grace},
		RunnableFunc(func(context.Context) error {
			<-release
			return nil
		}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
