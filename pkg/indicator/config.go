package indicator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	utilerrs "go.apnode.dev/apnode/pkg/util/errs"
)

// DefaultConfig is the default indicator configuration.
// The pins match the reference board wiring.
var DefaultConfig = Config{
	Backend:    string(MemoryBackend),
	Connection: Pin{Pin: 18},
	Manual:     Pin{Pin: 14},
	Sysfs:      SysfsConfig{Root: DefaultSysfsRoot},
	Serial:     SerialConfig{BaudRate: DefaultBaudRate},
}

// Config selects the output backend and the pin of each line.
type Config struct {
	// Backend is one of memory, sysfs or serial.
	Backend    string       `json:"backend,omitempty" yaml:"backend,omitempty"`
	Connection Pin          `json:"connection,omitempty" yaml:"connection,omitempty"`
	Manual     Pin          `json:"manual,omitempty" yaml:"manual,omitempty"`
	Sysfs      SysfsConfig  `json:"sysfs,omitempty" yaml:"sysfs,omitempty"`
	Serial     SerialConfig `json:"serial,omitempty" yaml:"serial,omitempty"`
}

type Pin struct {
	Pin       int  `json:"pin" yaml:"pin"`
	ActiveLow bool `json:"activeLow,omitempty" yaml:"activeLow,omitempty"`
}

type SysfsConfig struct {
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
}

type SerialConfig struct {
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
	BaudRate int    `json:"baudRate,omitempty" yaml:"baudRate,omitempty"`
}

// Validate validates the indicator configuration.
func (c Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	backend, ok := ParseBackend(c.Backend)
	if !ok {
		e("unknown indicator backend %q, must be one of %v", c.Backend, Backends)
	}
	if c.Connection.Pin < 0 {
		e("connection indicator pin must not be negative, got %d", c.Connection.Pin)
	}
	if c.Manual.Pin < 0 {
		e("manual indicator pin must not be negative, got %d", c.Manual.Pin)
	}
	if c.Connection.Pin == c.Manual.Pin {
		e("connection and manual indicator must use distinct pins, both use %d", c.Manual.Pin)
	}
	switch backend {
	case SerialBackend:
		if strings.TrimSpace(c.Serial.Port) == "" {
			e("serial indicator backend requires a port")
		}
		if c.Serial.BaudRate < 0 {
			e("serial baud rate must not be negative, got %d", c.Serial.BaudRate)
		}
	case MemoryBackend:
		w("indicator backend is %q, no hardware lines will be driven", MemoryBackend)
	}
	return
}

// Set is the pair of lines a node drives.
type Set struct {
	Connection Output
	Manual     Output
	closers    []func() error
}

// Open creates the outputs selected by c. The outputs are not configured yet.
func Open(c Config, log logr.Logger) (*Set, error) {
	backend, ok := ParseBackend(c.Backend)
	if !ok {
		return nil, fmt.Errorf("%w %q", utilerrs.ErrUnknownBackend, c.Backend)
	}
	log = log.WithValues("backend", backend)
	switch backend {
	case MemoryBackend:
		return &Set{
			Connection: NewMemory(ConnectionIndicator, log),
			Manual:     NewMemory(ManualIndicator, log),
		}, nil
	case SysfsBackend:
		conn := NewSysfs(c.Sysfs.Root, c.Connection.Pin, c.Connection.ActiveLow, ConnectionIndicator, log)
		manual := NewSysfs(c.Sysfs.Root, c.Manual.Pin, c.Manual.ActiveLow, ManualIndicator, log)
		return &Set{
			Connection: conn,
			Manual:     manual,
			closers:    []func() error{conn.Close, manual.Close},
		}, nil
	case SerialBackend:
		bridge := NewBridge(c.Serial.Port, c.Serial.BaudRate, log)
		return &Set{
			Connection: bridge.Line(ConnectionIndicator, c.Connection.Pin),
			Manual:     bridge.Line(ManualIndicator, c.Manual.Pin),
			closers:    []func() error{bridge.Close},
		}, nil
	}
	return nil, fmt.Errorf("%w %q", utilerrs.ErrUnknownBackend, c.Backend)
}

// Configure configures both lines.
func (s *Set) Configure() error {
	if err := s.Connection.Configure(); err != nil {
		return fmt.Errorf("error configuring %s indicator: %w", ConnectionIndicator, err)
	}
	if err := s.Manual.Configure(); err != nil {
		return fmt.Errorf("error configuring %s indicator: %w", ManualIndicator, err)
	}
	return nil
}

// Close releases backend resources.
func (s *Set) Close() error {
	var err error
	for _, c := range s.closers {
		err = errors.Join(err, c())
	}
	return err
}
