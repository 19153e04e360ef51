package apnode

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"go.apnode.dev/apnode/pkg/apnode/config"
	"go.apnode.dev/apnode/pkg/internal/control"
	"go.apnode.dev/apnode/pkg/internal/hashutil"
	"go.apnode.dev/apnode/pkg/internal/reload"
	"go.apnode.dev/apnode/pkg/runtime/process"
)

// setupControl runs the control server and restarts it when its config changes.
// A control server that fails to start leaves the node running without it.
func setupControl(cfg *config.Config, n *Node) process.Runnable {
	return process.RunnableFunc(func(ctx context.Context) error {
		log := logr.FromContextOrDiscard(ctx).WithName("control")
		ctx = logr.NewContext(ctx, log)

		var (
			mu                sync.Mutex
			stop              context.CancelFunc
			wg                sync.WaitGroup
			currentConfigHash []byte
		)
		trigger := func(c *reload.ConfigUpdateEvent[config.Config]) {
			mu.Lock()
			defer mu.Unlock()

			hash, changed, err := hashutil.Changed(currentConfigHash, c.Config.Control)
			if err != nil {
				log.Error(err, "error hashing control config")
				return
			}
			if !changed {
				return
			}
			currentConfigHash = hash

			if stop != nil {
				stop()
				stop = nil
			}

			if !c.Config.Control.Enabled {
				log.Info("control server disabled")
				return
			}
			srv := control.NewServer(c.Config.Control.Config, control.Options{
				Tracker:  n.tracker,
				Manual:   n.manual,
				Stations: n.stations,
				Event:    n.event,
				NodeID:   n.id.String(),
				Started:  n.started,
			})

			var runCtx context.Context
			runCtx, stop = context.WithCancel(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := srv.Start(runCtx); err != nil {
					log.Error(err, "failed to start control server, continuing without it",
						"bind", c.Config.Control.Bind)
					return
				}
				log.Info("control server stopped")
			}()
		}

		defer reload.Subscribe(n.event, trigger)()

		trigger(&reload.ConfigUpdateEvent[config.Config]{
			Config:     cfg,
			PrevConfig: cfg,
		})

		<-ctx.Done()
		wg.Wait()
		return nil
	})
}
