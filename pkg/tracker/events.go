package tracker

import (
	"time"

	"go.apnode.dev/apnode/pkg/station"
)

// CountChangedEvent is fired after every change of the connection count.
type CountChangedEvent struct {
	// Count is the count after the change. It may be negative.
	Count int64
	// Delta is +1 for a counted join and -1 for a leave.
	Delta int64
	// Cause is the event that caused the change.
	Cause station.ConnectionEvent
}

// PulseStartedEvent is fired when the connection indicator goes high.
type PulseStartedEvent struct {
	// Join is the join that started the pulse.
	Join station.ConnectionEvent
}

// PulseEndedEvent is fired when the connection indicator goes low,
// before the joins of the pulse are counted.
type PulseEndedEvent struct {
	// Joins is the number of joins indicated by the pulse.
	// It is always 1 with the queue policy.
	Joins int
	// Held is how long the line was high.
	Held time.Duration
	// Interrupted is set if the tracker stopped during the hold.
	Interrupted bool
}
