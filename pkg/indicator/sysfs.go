package indicator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// DefaultSysfsRoot is the Linux GPIO sysfs class directory.
const DefaultSysfsRoot = "/sys/class/gpio"

// exportWait bounds how long Configure waits for the kernel
// to create the pin directory after an export.
const exportWait = time.Second

// Sysfs drives a GPIO pin through the Linux sysfs interface.
type Sysfs struct {
	root      string
	pin       int
	activeLow bool
	line      Line
	log       logr.Logger

	mu    sync.Mutex
	value *os.File
}

var _ Output = (*Sysfs)(nil)

// NewSysfs returns an Output for pin below root.
// If activeLow is set a high level drives the pin to 0.
func NewSysfs(root string, pin int, activeLow bool, line Line, log logr.Logger) *Sysfs {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &Sysfs{root: root, pin: pin, activeLow: activeLow, line: line, log: log}
}

func (s *Sysfs) dir() string {
	return filepath.Join(s.root, "gpio"+strconv.Itoa(s.pin))
}

// Configure exports the pin if needed, sets it as an output driven low
// and opens its value file.
func (s *Sysfs) Configure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.dir()); errors.Is(err, fs.ErrNotExist) {
		if err = os.WriteFile(filepath.Join(s.root, "export"), []byte(strconv.Itoa(s.pin)), 0); err != nil {
			return fmt.Errorf("error exporting gpio %d: %w", s.pin, err)
		}
		if err = s.awaitExport(); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("error checking gpio %d: %w", s.pin, err)
	}

	// "low" and "high" set the direction to out with an initial level.
	initial := "low"
	if s.activeLow {
		initial = "high"
	}
	if err := os.WriteFile(filepath.Join(s.dir(), "direction"), []byte(initial), 0); err != nil {
		return fmt.Errorf("error setting gpio %d direction: %w", s.pin, err)
	}

	f, err := os.OpenFile(filepath.Join(s.dir(), "value"), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("error opening gpio %d value: %w", s.pin, err)
	}
	if s.value != nil {
		_ = s.value.Close()
	}
	s.value = f
	s.log.V(1).Info("configured gpio", "line", s.line, "pin", s.pin, "activeLow", s.activeLow)
	return nil
}

func (s *Sysfs) awaitExport() error {
	deadline := time.Now().Add(exportWait)
	for {
		if _, err := os.Stat(filepath.Join(s.dir(), "value")); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("gpio %d not available after export", s.pin)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *Sysfs) SetLevel(high bool) {
	v := byte('0')
	if high != s.activeLow {
		v = '1'
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == nil {
		s.log.Info("gpio not configured, dropping level change", "line", s.line, "pin", s.pin)
		return
	}
	if _, err := s.value.WriteAt([]byte{v}, 0); err != nil {
		s.log.Error(err, "error writing gpio value", "line", s.line, "pin", s.pin, "level", level(high))
	}
}

// Close releases the value file. The pin stays exported.
func (s *Sysfs) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == nil {
		return nil
	}
	err := s.value.Close()
	s.value = nil
	return err
}
