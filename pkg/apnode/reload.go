package apnode

import (
	"context"

	"github.com/go-logr/logr"

	"go.apnode.dev/apnode/pkg/apnode/config"
	"go.apnode.dev/apnode/pkg/internal/reload"
	"go.apnode.dev/apnode/pkg/runtime/process"
)

// watchConfig applies reloaded configs to the running node.
// The tracker takes the new hold time and policy for the next pulse.
// Other sections are only read at startup.
func (n *Node) watchConfig() process.Runnable {
	return process.RunnableFunc(func(ctx context.Context) error {
		log := logr.FromContextOrDiscard(ctx).WithName("reload")
		defer reload.Subscribe(n.event, func(e *reload.ConfigUpdateEvent[config.Config]) {
			n.applyConfig(log, e.Config, e.PrevConfig)
		})()
		<-ctx.Done()
		return nil
	})
}

func (n *Node) applyConfig(log logr.Logger, c, prev *config.Config) {
	if c == nil || prev == nil {
		return
	}
	if c.Tracker != prev.Tracker {
		n.tracker.SetConfig(c.Tracker)
		log.Info("applied tracker config",
			"holdDuration", c.Tracker.HoldDuration, "retrigger", c.Tracker.Retrigger)
	}
	for _, s := range []struct {
		name    string
		changed bool
	}{
		{"accessPoint", c.AccessPoint != prev.AccessPoint},
		{"indicators", c.Indicators != prev.Indicators},
		{"stations", c.Stations != prev.Stations},
		{"healthService", c.HealthService != prev.HealthService},
		{"telemetry", c.Telemetry != prev.Telemetry},
	} {
		if s.changed {
			log.Info("config section changed, restart required to apply", "section", s.name)
		}
	}
}
