package indicator

import (
	"sync"

	"go.uber.org/atomic"
)

// Manual holds the on/off state of the manually switched indicator
// and keeps its output line in sync with it.
type Manual struct {
	out Output

	mu sync.Mutex // serializes state and line writes
	on atomic.Bool
}

// NewManual returns a Manual driving out. The initial state is off.
func NewManual(out Output) *Manual {
	return &Manual{out: out}
}

// SetOn records the on state and drives the line high.
func (m *Manual) SetOn() { m.set(true) }

// SetOff records the off state and drives the line low.
func (m *Manual) SetOff() { m.set(false) }

func (m *Manual) set(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on.Store(on)
	m.out.SetLevel(on)
}

// On returns the last written state. It never blocks on a concurrent write.
func (m *Manual) On() bool { return m.on.Load() }
