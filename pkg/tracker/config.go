package tracker

import (
	"fmt"
	"time"
)

// Policy decides how a join that arrives while a pulse is active is indicated.
type Policy string

const (
	// QueuePolicy gives every join its own full pulse, one after another
	// in arrival order.
	QueuePolicy Policy = "queue"
	// ExtendPolicy merges a join into the active pulse and restarts its hold.
	// The merged joins are counted together when the line goes low.
	ExtendPolicy Policy = "extend"
)

// DefaultConfig is the default tracker configuration.
var DefaultConfig = Config{
	HoldDuration: 3 * time.Second,
	Retrigger:    QueuePolicy,
}

// Config configures the connection indication.
type Config struct {
	// HoldDuration is how long the connection indicator stays high per join.
	HoldDuration time.Duration `json:"holdDuration,omitempty" yaml:"holdDuration,omitempty"`
	// Retrigger is the policy for joins arriving during an active pulse.
	Retrigger Policy `json:"retrigger,omitempty" yaml:"retrigger,omitempty"`
}

// Validate validates the tracker configuration.
func (c Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	if c.HoldDuration <= 0 {
		e("hold duration must be positive, got %s", c.HoldDuration)
	} else if c.HoldDuration > time.Minute {
		w("hold duration %s is unusually long, joins are counted only after their pulse", c.HoldDuration)
	}
	switch c.Retrigger {
	case QueuePolicy:
	case ExtendPolicy:
		w("retrigger policy %q merges overlapping joins into one pulse", ExtendPolicy)
	default:
		e("unknown retrigger policy %q, must be %q or %q", c.Retrigger, QueuePolicy, ExtendPolicy)
	}
	return
}
