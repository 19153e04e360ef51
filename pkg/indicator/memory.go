package indicator

import (
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Transition is a recorded level change of a line.
type Transition struct {
	High bool
	At   time.Time
}

// Memory is an in-process Output that records every level it is driven to.
// It is used on hosts without indicator hardware and as a fake in tests.
type Memory struct {
	line Line
	log  logr.Logger

	mu          sync.Mutex
	configured  bool
	high        bool
	transitions []Transition
}

var _ Output = (*Memory)(nil)

// NewMemory returns a Memory output for line.
func NewMemory(line Line, log logr.Logger) *Memory {
	return &Memory{line: line, log: log}
}

func (m *Memory) Configure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configured = true
	m.high = false
	return nil
}

func (m *Memory) SetLevel(high bool) {
	m.mu.Lock()
	m.high = high
	m.transitions = append(m.transitions, Transition{High: high, At: time.Now()})
	m.mu.Unlock()
	m.log.V(1).Info("indicator level changed", "line", m.line, "level", level(high))
}

// Level returns the current level of the line.
func (m *Memory) Level() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.high
}

// Configured reports whether Configure was called.
func (m *Memory) Configured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured
}

// Transitions returns a copy of all recorded level changes.
func (m *Memory) Transitions() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.transitions)
}
