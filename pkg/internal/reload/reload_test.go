package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type testConfig struct{ Hold time.Duration }

func TestFireConfigUpdate(t *testing.T) {
	mgr := event.New()
	var got *ConfigUpdateEvent[testConfig]
	unsubscribe := Subscribe(mgr, func(e *ConfigUpdateEvent[testConfig]) { got = e })

	prev := &testConfig{Hold: time.Second}
	next := &testConfig{Hold: 2 * time.Second}
	FireConfigUpdate(mgr, next, prev)
	require.NotNil(t, got)
	assert.Equal(t, next, got.Config)
	assert.Equal(t, prev, got.PrevConfig)

	unsubscribe()
	got = nil
	FireConfigUpdate(mgr, prev, next)
	assert.Nil(t, got)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apnode.yml")
	require.NoError(t, os.WriteFile(path, []byte("tracker: {}\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	require.NoError(t, Watch(ctx, path, func() error {
		calls.Inc()
		return nil
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("tracker: {holdDuration: 1s}\n"), 0o644))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(3 * debounceDuration)
	assert.LessOrEqual(t, calls.Load(), int32(2), "bursts are debounced")
}

func TestWatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Watch(ctx, "does-not-matter.yml", func() error { return nil }))
}
