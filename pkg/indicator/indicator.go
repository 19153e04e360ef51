// Package indicator drives the binary output lines used as visual signals.
package indicator

import (
	"fmt"
	"strings"
)

// Output is a single binary output line.
//
// SetLevel is infallible from the caller's point of view. Backends that can
// fail log the failure and keep the last requested level.
type Output interface {
	// Configure prepares the line for output. It is called once at startup
	// and a failure is fatal to the node.
	Configure() error
	// SetLevel drives the line high or low.
	SetLevel(high bool)
}

// Line identifies one of the node's output lines.
type Line uint8

const (
	// ConnectionIndicator pulses when a station joins.
	ConnectionIndicator Line = iota + 1
	// ManualIndicator is switched over the control server.
	ManualIndicator
)

func (l Line) String() string {
	switch l {
	case ConnectionIndicator:
		return "connection"
	case ManualIndicator:
		return "manual"
	}
	return fmt.Sprintf("line(%d)", uint8(l))
}

// Backend names a kind of Output implementation.
type Backend string

const (
	MemoryBackend Backend = "memory"
	SysfsBackend  Backend = "sysfs"
	SerialBackend Backend = "serial"
)

// Backends lists the supported backends.
var Backends = []Backend{MemoryBackend, SysfsBackend, SerialBackend}

// ParseBackend returns the Backend named s.
func ParseBackend(s string) (Backend, bool) {
	for _, b := range Backends {
		if strings.EqualFold(string(b), s) {
			return b, true
		}
	}
	return "", false
}

func level(high bool) string {
	if high {
		return "high"
	}
	return "low"
}
