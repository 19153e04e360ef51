package reload

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/knadh/koanf/providers/file"
)

const debounceDuration = 100 * time.Millisecond

// Watch calls cb after the file at path changed until ctx is canceled.
// Bursts of changes within the debounce window result in a single call,
// and calls never overlap.
func Watch(ctx context.Context, path string, cb func() error) error {
	if ctx.Err() != nil {
		return nil
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	var (
		mu    sync.Mutex // serializes cb
		timer *time.Timer
		tmu   sync.Mutex // protects timer
	)
	reload := func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		log.Info("auto-reloading config")
		start := time.Now()
		if err := cb(); err != nil {
			log.Info("failed to reload config", "error", err)
			return
		}
		log.Info("reloaded config successfully", "duration", time.Since(start).Round(time.Millisecond).String())
	}

	provider := file.Provider(path)
	err := provider.Watch(func(_ any, err error) {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Info("failed watching config", "error", err)
			return
		}
		tmu.Lock()
		defer tmu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDuration, reload)
	})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = provider.Unwatch()
		tmu.Lock()
		if timer != nil {
			timer.Stop()
		}
		tmu.Unlock()
	}()
	return nil
}
