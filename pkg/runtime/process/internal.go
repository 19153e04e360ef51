package process

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

type collection struct {
	// runnables is the set of components that the collection Starts.
	runnables []Runnable

	// internalCtx is the context *actually* used by everything involved
	// with the collection. It is canceled when the stop procedure begins.
	internalCtx    context.Context
	internalCancel context.CancelFunc

	// The logger that should be used by this collection.
	log logr.Logger

	mu      sync.Mutex // Protects these fields
	started bool
	errChan chan error

	// stop procedure engaged. In other words, we should not add anything else to the collection
	stopProcedureEngaged bool

	allOrNothing bool

	// gracefulShutdownTimeout is the duration given to runnable to stop
	// before the collection actually returns on stop.
	gracefulShutdownTimeout time.Duration

	// waitForRunnable is holding the number of runnables currently running so that
	// we can wait for them to exit before quitting the collection
	waitForRunnable sync.WaitGroup
}

// errRunnableReturned is reported in all-or-nothing mode when a
// Runnable returns without error before the collection was stopped.
var errRunnableReturned = errors.New("runnable returned unexpectedly")

// Add adds r to the list of Runnables to start.
// The Runnable is started if the Collection is already started.
func (pm *collection) Add(r Runnable) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.stopProcedureEngaged {
		return errors.New("can't accept new runnable as stop procedure is already engaged")
	}

	pm.runnables = append(pm.runnables, r)
	if pm.started {
		pm.startRunnable(r)
	}

	return nil
}

func (pm *collection) Start(ctx context.Context) (err error) {
	if pm.log.GetSink() == nil {
		pm.log = logr.FromContextOrDiscard(ctx)
	}

	// This chan indicates that stop is complete,
	// in other words all runnables have returned or timeout on stop request
	stopComplete := make(chan struct{})
	defer close(stopComplete)
	defer func() {
		if stopErr := pm.engageStopProcedure(stopComplete); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}()

	pm.mu.Lock()
	// Runnables inherit values such as the logger from ctx but are
	// canceled by the collection.
	pm.internalCtx, pm.internalCancel = context.WithCancel(context.WithoutCancel(ctx))
	// Everything that might write into this channel must be started in a new goroutine,
	// because otherwise we might block this routine trying to write into the full channel
	// and will not be able to enter the deferred pm.engageStopProcedure() which drains it.
	pm.errChan = make(chan error)
	pm.mu.Unlock()

	go pm.startRunnables()

	select {
	case <-ctx.Done():
		return nil
	case err := <-pm.errChan:
		return err
	}
}

// engageStopProcedure signals all runnables to stop, reads potential errors
// from the errChan and waits for them to end. It must not be called more than once.
func (pm *collection) engageStopProcedure(stopComplete chan struct{}) error {
	var (
		shutdownCtx context.Context
		cancel      context.CancelFunc
	)
	if pm.gracefulShutdownTimeout > 0 {
		shutdownCtx, cancel = context.WithTimeout(context.Background(), pm.gracefulShutdownTimeout)
	} else {
		shutdownCtx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()
	pm.internalCancel()
	// Start draining the errors before acquiring the lock to make sure we don't deadlock
	// if something that has the lock is blocked on trying to write into the unbuffered
	// channel after something else already wrote into it.
	go func() {
		for {
			select {
			case err, ok := <-pm.errChan:
				if ok && !errors.Is(err, errRunnableReturned) {
					pm.log.Error(err, "error received after stop sequence was engaged")
				}
			case <-stopComplete:
				return
			}
		}
	}()
	if pm.gracefulShutdownTimeout == 0 {
		return nil
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.stopProcedureEngaged = true

	return pm.waitForRunnableToEnd(shutdownCtx, cancel)
}

// waitForRunnableToEnd blocks until all runnables ended or the
// gracefulShutdownTimeout was reached. In the latter case, an error is returned.
func (pm *collection) waitForRunnableToEnd(ctx context.Context, cancel context.CancelFunc) error {
	defer cancel()

	go func() {
		pm.waitForRunnable.Wait()
		cancel()
	}()

	<-ctx.Done()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf(
			"failed waiting for all runnables to end within grace period of %s: %w",
			pm.gracefulShutdownTimeout, err)
	}
	return nil
}

func (pm *collection) startRunnable(r Runnable) {
	pm.waitForRunnable.Add(1)
	go func() {
		defer pm.waitForRunnable.Done()
		err := r.Start(pm.internalCtx)
		if err == nil && pm.allOrNothing && pm.internalCtx.Err() == nil {
			err = errRunnableReturned
		}
		if err != nil {
			pm.errChan <- err
		}
	}()
}

func (pm *collection) startRunnables() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.started = true

	// Start the Runnables
	for _, c := range pm.runnables {
		// Runnables block, but we want to return an error if any have an error starting.
		// Write any Start errors to a channel so we can return them
		pm.startRunnable(c)
	}
}
