// Package apnode is the main package for running an access point node.
//
// A Node wires the access point manager, the connection tracker, the
// indicator lines and the control server around one event manager.
// It holds all process-wide state of the node.
package apnode

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/robinbraemer/event"
	"go.uber.org/atomic"

	"go.apnode.dev/apnode/pkg/ap"
	"go.apnode.dev/apnode/pkg/apnode/config"
	"go.apnode.dev/apnode/pkg/indicator"
	"go.apnode.dev/apnode/pkg/internal/health"
	"go.apnode.dev/apnode/pkg/runtime/process"
	"go.apnode.dev/apnode/pkg/station"
	"go.apnode.dev/apnode/pkg/tracker"
	"go.apnode.dev/apnode/pkg/util/errs"
)

// Options are Node options.
type Options struct {
	// Config requires a valid Node configuration.
	Config *config.Config
	// EventMgr is the event manager of the node.
	// If not set, a new one is created.
	EventMgr event.Manager
	// Logger is the logger used for the Node and its components.
	// If not set, a discarding logger is used.
	Logger logr.Logger
	// Indicators overrides the lines selected by Config.Indicators.
	Indicators *indicator.Set
	// Source overrides the station event source selected by Config.AccessPoint.
	Source ap.Source
}

// Node is an access point node.
type Node struct {
	id      uuid.UUID
	started time.Time
	cfg     *config.Config
	event   event.Manager
	log     logr.Logger

	indicators *indicator.Set
	tracker    *tracker.Tracker
	manual     *indicator.Manual
	stations   *station.Registry
	ap         *ap.Manager

	running atomic.Bool
}

// New returns a new Node. The given Options requires a validated Config.
// Failing to configure the indicator lines is fatal.
func New(options Options) (n *Node, err error) {
	if options.Config == nil {
		return nil, errs.ErrMissingConfig
	}
	if options.EventMgr == nil {
		options.EventMgr = event.New()
	}
	log := options.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	cfg := options.Config

	n = &Node{
		id:      uuid.New(),
		started: time.Now(),
		cfg:     cfg,
		event:   options.EventMgr,
		log:     log,
	}

	n.indicators = options.Indicators
	if n.indicators == nil {
		if n.indicators, err = indicator.Open(cfg.Indicators, log.WithName("indicator")); err != nil {
			return nil, err
		}
	}
	if err = n.indicators.Configure(); err != nil {
		_ = n.indicators.Close()
		return nil, err
	}
	n.manual = indicator.NewManual(n.indicators.Manual)

	n.tracker, err = tracker.New(tracker.Options{
		Config:    cfg.Tracker,
		Indicator: n.indicators.Connection,
		Event:     n.event,
		Logger:    log.WithName("tracker"),
	})
	if err != nil {
		_ = n.indicators.Close()
		return nil, fmt.Errorf("error creating connection tracker: %w", err)
	}

	n.ap, err = ap.New(ap.Options{
		Config: &cfg.AccessPoint,
		Source: options.Source,
		Event:  n.event,
	})
	if err != nil {
		_ = n.indicators.Close()
		return nil, fmt.Errorf("error creating access point manager: %w", err)
	}

	n.stations = station.NewRegistry(cfg.Stations.TTL)
	n.tracker.Subscribe(n.event)
	n.stations.Subscribe(n.event, log.WithName("stations"))
	return n, nil
}

// ID returns the instance id of the node. It changes on every start of the process.
func (n *Node) ID() uuid.UUID { return n.id }

// Event returns the event manager of the node.
func (n *Node) Event() event.Manager { return n.event }

// Tracker returns the connection tracker.
func (n *Node) Tracker() *tracker.Tracker { return n.tracker }

// Manual returns the manual indicator state.
func (n *Node) Manual() *indicator.Manual { return n.manual }

// Stations returns the station registry.
func (n *Node) Stations() *station.Registry { return n.stations }

// Running reports whether the node is running.
func (n *Node) Running() bool { return n.running.Load() }

// Start runs the node until ctx is canceled or a component fails.
// The control server is the only component allowed to fail without
// stopping the node.
func (n *Node) Start(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return fmt.Errorf("node already running")
	}
	defer n.running.Store(false)
	defer func() {
		if err := n.indicators.Close(); err != nil {
			n.log.Error(err, "error releasing indicators")
		}
	}()

	ctx = logr.NewContext(ctx, n.log)
	n.log.Info("starting access point node", "node", n.id.String())

	runnables := []process.Runnable{
		named("tracker", process.RunnableFunc(n.tracker.Start)),
		named("stations", process.RunnableFunc(n.stations.Start)),
		named("ap", process.RunnableFunc(n.ap.Start)),
		n.watchConfig(),
		setupControl(n.cfg, n),
	}

	if n.cfg.HealthService.Enabled {
		run, err := health.New(n.cfg.HealthService.Bind)
		if err != nil {
			return fmt.Errorf("error creating health probe service: %w", err)
		}
		runnables = append(runnables, named("health", process.RunnableFunc(func(ctx context.Context) error {
			logr.FromContextOrDiscard(ctx).Info("health probe service started", "bind", n.cfg.HealthService.Bind)
			return run(ctx, health.Serving(n.Running))
		})))
	}

	return process.New(process.Options{
		AllOrNothing: true,
		Logger:       n.log,
	}, runnables...).Start(ctx)
}

// named runs r with a logger named name.
func named(name string, r process.Runnable) process.Runnable {
	return process.RunnableFunc(func(ctx context.Context) error {
		log := logr.FromContextOrDiscard(ctx).WithName(name)
		return r.Start(logr.NewContext(ctx, log))
	})
}
