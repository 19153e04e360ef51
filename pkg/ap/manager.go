// Package ap is the access point side of the node. It validates the radio
// parameters and turns station notifications from an event source into
// station.ConnectionEvent values fired on the event manager.
package ap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"go.apnode.dev/apnode/pkg/station"
	"go.apnode.dev/apnode/pkg/util/errs"
)

// Source delivers station notifications.
type Source interface {
	// Open attaches to the source. A failure is fatal to the node.
	Open(ctx context.Context) error
	// Run calls emit for every notification, one at a time and in arrival
	// order, until ctx is canceled or the source fails.
	Run(ctx context.Context, emit func(station.ConnectionEvent)) error
	// Close detaches from the source.
	Close() error
}

// NewSource returns the Source selected by c.
func NewSource(c Config, stdin io.Reader) (Source, error) {
	switch c.Source {
	case HostapdSource:
		return NewHostapd(c.CtrlPath()), nil
	case ScriptSource:
		return NewScript(c.Script.Path, stdin), nil
	}
	return nil, fmt.Errorf("%w %q", errs.ErrUnknownSource, c.Source)
}

// Options are the options for a Manager.
type Options struct {
	// Config is the access point config. Required.
	Config *Config
	// Source overrides the source selected by Config.
	Source Source
	// Event receives every station.ConnectionEvent. Required.
	Event event.Manager
}

// Manager is the access point manager.
type Manager struct {
	cfg    Config
	source Source
	event  event.Manager
}

// New validates the access point config and returns a new Manager.
func New(opts Options) (*Manager, error) {
	if opts.Config == nil {
		return nil, errs.ErrMissingConfig
	}
	if opts.Event == nil {
		return nil, errors.New("missing event manager")
	}
	if _, errList := opts.Config.Validate(); len(errList) != 0 {
		return nil, fmt.Errorf("invalid access point config: %w", errors.Join(errList...))
	}
	m := &Manager{
		cfg:    *opts.Config,
		source: opts.Source,
		event:  opts.Event,
	}
	if m.source == nil {
		var err error
		if m.source, err = NewSource(m.cfg, os.Stdin); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Config returns the access point config.
func (m *Manager) Config() Config { return m.cfg }

// Start attaches to the event source and fires station events until ctx is
// canceled. Any error is fatal to the node.
func (m *Manager) Start(ctx context.Context) error {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("access point configured",
		"ssid", m.cfg.SSID,
		"channel", m.cfg.Channel,
		"maxStations", m.cfg.MaxStations,
		"auth", m.cfg.Auth,
		"pmf", m.cfg.PMF,
		"source", m.cfg.Source)

	if err := m.source.Open(ctx); err != nil {
		return fmt.Errorf("error attaching to %s station event source: %w", m.cfg.Source, err)
	}
	defer func() {
		if err := m.source.Close(); err != nil {
			log.Error(err, "error closing station event source")
		}
	}()

	err := m.source.Run(ctx, func(e station.ConnectionEvent) {
		switch e.Kind {
		case station.Joined:
			log.Info("station join", e.LogValues()...)
		case station.Left:
			log.Info("station leave", e.LogValues()...)
		}
		m.event.Fire(&e)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("station event source failed: %w", err)
	}
	return nil
}
