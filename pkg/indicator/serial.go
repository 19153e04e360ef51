package indicator

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"go.bug.st/serial"
)

// DefaultBaudRate is used when no baud rate is configured.
const DefaultBaudRate = 115200

// Bridge drives lines on a microcontroller attached over a serial port.
// Each level change is sent as a line "L<pin>=<0|1>\n".
//
// All lines of a Bridge share one port which is opened on the first Configure.
type Bridge struct {
	portName string
	mode     *serial.Mode
	log      logr.Logger
	open     func(name string, mode *serial.Mode) (io.WriteCloser, error)

	mu   sync.Mutex
	port io.WriteCloser
}

// NewBridge returns a Bridge for the named serial port.
func NewBridge(portName string, baudRate int, log logr.Logger) *Bridge {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	return &Bridge{
		portName: portName,
		mode:     &serial.Mode{BaudRate: baudRate},
		log:      log,
		open: func(name string, mode *serial.Mode) (io.WriteCloser, error) {
			return serial.Open(name, mode)
		},
	}
}

// Line returns an Output for pin on the bridge.
func (b *Bridge) Line(line Line, pin int) Output {
	return &serialLine{bridge: b, line: line, pin: pin}
}

func (b *Bridge) connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port != nil {
		return nil
	}
	p, err := b.open(b.portName, b.mode)
	if err != nil {
		return fmt.Errorf("error opening serial port %q: %w", b.portName, err)
	}
	b.port = p
	b.log.Info("opened indicator bridge", "port", b.portName, "baudRate", b.mode.BaudRate)
	return nil
}

func (b *Bridge) write(l *serialLine, high bool) {
	v := 0
	if high {
		v = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		b.log.Info("serial port not open, dropping level change", "line", l.line, "pin", l.pin)
		return
	}
	if _, err := fmt.Fprintf(b.port, "L%d=%d\n", l.pin, v); err != nil {
		b.log.Error(err, "error writing to serial port", "line", l.line, "pin", l.pin, "level", level(high))
	}
}

// Close closes the serial port.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	return err
}

type serialLine struct {
	bridge *Bridge
	line   Line
	pin    int
}

func (l *serialLine) Configure() error {
	if err := l.bridge.connect(); err != nil {
		return err
	}
	l.bridge.write(l, false)
	return nil
}

func (l *serialLine) SetLevel(high bool) { l.bridge.write(l, high) }
