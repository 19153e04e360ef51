// Package tracker turns station join and leave notifications into the
// node's connection count and a timed pulse of the connection indicator.
//
// Leaves are applied immediately. Joins are queued and indicated by a
// single pulse goroutine which owns the indicator line while it runs.
// A join is counted only after its pulse has ended, so a leave that
// arrives during a pulse may make the count transiently negative.
// Negative counts are reported as they are.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"go.apnode.dev/apnode/pkg/indicator"
	"go.apnode.dev/apnode/pkg/station"
)

// Options are the options for a Tracker.
type Options struct {
	// Config is the tracker config. Zero fields use DefaultConfig.
	Config Config
	// Indicator is the connection indicator line. Required.
	Indicator indicator.Output
	// Event receives CountChangedEvent and pulse events.
	// If nil, no events are fired.
	Event event.Manager
	// Logger is used for event handling. Defaults to a discarding logger.
	Logger logr.Logger
}

// Tracker tracks the number of connected stations.
type Tracker struct {
	out   indicator.Output
	event event.Manager
	log   logr.Logger

	count   atomic.Int64
	joins   atomic.Int64
	leaves  atomic.Int64
	pulses  atomic.Int64
	pulsing atomic.Bool
	started atomic.Bool

	hold   atomic.Duration
	policy atomic.String

	mu      sync.Mutex // protects pending
	pending deque.Deque[station.ConnectionEvent]
	wake    chan struct{}
}

// New returns a new Tracker. Its pulse loop must be run with Start.
func New(opts Options) (*Tracker, error) {
	if opts.Indicator == nil {
		return nil, errors.New("missing connection indicator")
	}
	if opts.Event == nil {
		opts.Event = event.Nop
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	t := &Tracker{
		out:   opts.Indicator,
		event: opts.Event,
		log:   opts.Logger,
		wake:  make(chan struct{}, 1),
	}
	t.SetConfig(opts.Config)
	if err := t.initMeter(); err != nil {
		return nil, err
	}
	return t, nil
}

// SetConfig applies c to subsequent pulses. A pulse in progress
// keeps its hold duration.
func (t *Tracker) SetConfig(c Config) {
	if c.HoldDuration <= 0 {
		c.HoldDuration = DefaultConfig.HoldDuration
	}
	if c.Retrigger == "" {
		c.Retrigger = DefaultConfig.Retrigger
	}
	t.hold.Store(c.HoldDuration)
	t.policy.Store(string(c.Retrigger))
}

// Config returns the active config.
func (t *Tracker) Config() Config {
	return Config{
		HoldDuration: t.hold.Load(),
		Retrigger:    Policy(t.policy.Load()),
	}
}

// Count returns the current connection count. It never blocks.
func (t *Tracker) Count() int64 { return t.count.Load() }

// Stats is a snapshot of the tracker's counters.
type Stats struct {
	Connected   int64 `json:"connected"`
	Joins       int64 `json:"joins"`
	Leaves      int64 `json:"leaves"`
	Pulses      int64 `json:"pulses"`
	PulseActive bool  `json:"pulseActive"`
	Pending     int   `json:"pending"`
}

// Stats returns a snapshot of the tracker's counters. The fields are
// loaded independently and are not a consistent cut.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	pending := t.pending.Len()
	t.mu.Unlock()
	return Stats{
		Connected:   t.count.Load(),
		Joins:       t.joins.Load(),
		Leaves:      t.leaves.Load(),
		Pulses:      t.pulses.Load(),
		PulseActive: t.pulsing.Load(),
		Pending:     pending,
	}
}

// Subscribe feeds station events fired on mgr into the tracker.
func (t *Tracker) Subscribe(mgr event.Manager) (unsubscribe func()) {
	return event.Subscribe(mgr, 0, func(e *station.ConnectionEvent) {
		t.OnEvent(*e)
	})
}

// OnEvent accepts a station event. It never blocks on an indication.
func (t *Tracker) OnEvent(e station.ConnectionEvent) {
	switch e.Kind {
	case station.Joined:
		t.joins.Inc()
		t.mu.Lock()
		t.pending.PushBack(e)
		queued := t.pending.Len()
		t.mu.Unlock()
		select {
		case t.wake <- struct{}{}:
		default:
		}
		t.log.V(1).Info("queued join indication", append(e.LogValues(), "queued", queued)...)
	case station.Left:
		t.leaves.Inc()
		n := t.count.Dec()
		t.log.V(1).Info("counted leave", append(e.LogValues(), "count", n)...)
		t.event.Fire(&CountChangedEvent{Count: n, Delta: -1, Cause: e})
	default:
		t.log.Info("ignoring station event of unknown kind", "kind", e.Kind)
	}
}

// Start runs the pulse loop until ctx is canceled.
// Joins still queued or in their hold when ctx is canceled are counted
// without indication so that the count stays equal to joins minus leaves.
func (t *Tracker) Start(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return errors.New("tracker already started")
	}
	t.log.Info("starting connection tracker",
		"hold", t.hold.Load().String(), "retrigger", t.policy.Load())
	defer t.log.Info("stopped connection tracker", "count", t.count.Load())

	for {
		select {
		case <-ctx.Done():
			t.countWithoutIndication(nil)
			return nil
		case <-t.wake:
		}
		for {
			join, ok := t.popFront()
			if !ok {
				break
			}
			if !t.pulse(ctx, join) {
				t.countWithoutIndication(nil)
				return nil
			}
		}
	}
}

func (t *Tracker) popFront() (station.ConnectionEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending.Len() == 0 {
		return station.ConnectionEvent{}, false
	}
	return t.pending.PopFront(), true
}

func (t *Tracker) drain() []station.ConnectionEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	joins := make([]station.ConnectionEvent, 0, t.pending.Len())
	for t.pending.Len() != 0 {
		joins = append(joins, t.pending.PopFront())
	}
	return joins
}

// pulse drives the indicator high for the hold duration, then low,
// then counts the indicated joins. It returns false if ctx was canceled
// during the hold.
func (t *Tracker) pulse(ctx context.Context, first station.ConnectionEvent) bool {
	hold := t.hold.Load()
	policy := Policy(t.policy.Load())
	log := t.log.WithValues("event", first.ID.String())

	ctx, span := tracer.Start(ctx, "tracker.pulse", trace.WithAttributes(
		attribute.String("station.mac", first.Addr.String()),
		attribute.String("event.id", first.ID.String()),
		attribute.String("retrigger", string(policy)),
	))
	defer span.End()

	// Only the extend policy reacts to joins arriving during the hold.
	var retrigger <-chan struct{}
	if policy == ExtendPolicy {
		retrigger = t.wake
	}

	joins := []station.ConnectionEvent{first}
	start := time.Now()
	t.pulsing.Store(true)
	t.out.SetLevel(true)
	t.event.Fire(&PulseStartedEvent{Join: first})
	log.V(1).Info("connection indicator high", "hold", hold.String())

	timer := time.NewTimer(hold)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			t.endPulse(joins, start, true)
			span.AddEvent("interrupted")
			t.countWithoutIndication(joins)
			return false
		case <-retrigger:
			merged := t.drain()
			if len(merged) == 0 {
				continue
			}
			joins = append(joins, merged...)
			timer.Reset(hold)
			log.V(1).Info("extended connection indication", "merged", len(merged), "joins", len(joins))
		case <-timer.C:
			t.endPulse(joins, start, false)
			for _, j := range joins {
				n := t.count.Inc()
				t.event.Fire(&CountChangedEvent{Count: n, Delta: 1, Cause: j})
			}
			span.SetAttributes(attribute.Int("joins", len(joins)))
			log.V(1).Info("connection indicator low", "joins", len(joins), "count", t.count.Load())
			return true
		}
	}
}

func (t *Tracker) endPulse(joins []station.ConnectionEvent, start time.Time, interrupted bool) {
	t.out.SetLevel(false)
	t.pulsing.Store(false)
	t.pulses.Inc()
	t.event.Fire(&PulseEndedEvent{
		Joins:       len(joins),
		Held:        time.Since(start),
		Interrupted: interrupted,
	})
}

// countWithoutIndication counts joins and everything still queued.
func (t *Tracker) countWithoutIndication(joins []station.ConnectionEvent) {
	joins = append(joins, t.drain()...)
	for _, j := range joins {
		n := t.count.Inc()
		t.event.Fire(&CountChangedEvent{Count: n, Delta: 1, Cause: j})
	}
	if len(joins) != 0 {
		t.log.Info("counted joins without indication on shutdown", "joins", len(joins))
	}
}
