package ap

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.apnode.dev/apnode/pkg/util/validation"
)

// DefaultConfig is the default access point configuration.
var DefaultConfig = Config{
	SSID:        "apnode",
	Channel:     6,
	MaxStations: 5,
	Auth:        OpenAuth,
	PMF:         PMFRequired,
	Interface:   "wlan0",
	Source:      HostapdSource,
	Hostapd: HostapdConfig{
		CtrlDir: "/var/run/hostapd",
	},
	Script: ScriptConfig{
		Path: "-",
	},
}

// MaxStationsLimit is the largest station limit the radio supports.
const MaxStationsLimit = 10

const OpenAuth = "open"

const (
	PMFDisabled = "disabled"
	PMFOptional = "optional"
	PMFRequired = "required"
)

// Station event sources.
const (
	HostapdSource = "hostapd"
	ScriptSource  = "script"
)

// Config is the access point configuration. The radio parameters are
// applied by the radio daemon, the node only validates and reports them.
type Config struct {
	SSID        string `json:"ssid,omitempty" yaml:"ssid,omitempty"`
	Channel     int    `json:"channel,omitempty" yaml:"channel,omitempty"`
	MaxStations int    `json:"maxStations,omitempty" yaml:"maxStations,omitempty"`
	// Auth is the authentication mode. Only open is supported.
	Auth string `json:"auth,omitempty" yaml:"auth,omitempty"`
	// PMF is the protected management frames mode.
	PMF string `json:"pmf,omitempty" yaml:"pmf,omitempty"`
	// Interface is the wireless interface the access point runs on.
	Interface string `json:"interface,omitempty" yaml:"interface,omitempty"`

	// Source is where station events come from, hostapd or script.
	Source  string        `json:"source,omitempty" yaml:"source,omitempty"`
	Hostapd HostapdConfig `json:"hostapd,omitempty" yaml:"hostapd,omitempty"`
	Script  ScriptConfig  `json:"script,omitempty" yaml:"script,omitempty"`
}

type HostapdConfig struct {
	// CtrlDir is the hostapd ctrl_interface directory.
	CtrlDir string `json:"ctrlDir,omitempty" yaml:"ctrlDir,omitempty"`
}

type ScriptConfig struct {
	// Path of the event script, "-" reads stdin.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// CtrlPath returns the hostapd control socket of the interface.
func (c Config) CtrlPath() string {
	return filepath.Join(c.Hostapd.CtrlDir, c.Interface)
}

// Validate validates the access point configuration.
func (c Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	if err := validation.ValidSSID(c.SSID); err != nil {
		e("invalid ssid %q: %v", c.SSID, err)
	}
	if err := validation.ValidChannel(c.Channel); err != nil {
		e("invalid channel %d: %v", c.Channel, err)
	}
	if c.MaxStations < 1 {
		e("maxStations must be at least 1, got %d", c.MaxStations)
	} else if c.MaxStations > MaxStationsLimit {
		w("maxStations %d exceeds the radio limit of %d", c.MaxStations, MaxStationsLimit)
	}
	if !strings.EqualFold(c.Auth, OpenAuth) {
		e("unsupported auth mode %q, only %q is supported", c.Auth, OpenAuth)
	}
	switch c.PMF {
	case PMFDisabled, PMFOptional, PMFRequired:
	default:
		e("invalid pmf mode %q", c.PMF)
	}

	switch c.Source {
	case HostapdSource:
		if c.Interface == "" {
			e("interface must not be empty")
		}
		if c.Hostapd.CtrlDir == "" {
			e("hostapd ctrlDir must not be empty")
		}
	case ScriptSource:
		if c.Script.Path == "" {
			e("script path must not be empty, use \"-\" for stdin")
		}
		w("station events are read from script %q, not from the radio", c.Script.Path)
	default:
		e("unknown station event source %q, must be %q or %q", c.Source, HostapdSource, ScriptSource)
	}
	return
}
