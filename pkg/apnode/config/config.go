package config

import (
	"fmt"
	"time"

	"go.apnode.dev/apnode/pkg/ap"
	"go.apnode.dev/apnode/pkg/indicator"
	"go.apnode.dev/apnode/pkg/internal/control"
	"go.apnode.dev/apnode/pkg/telemetry"
	"go.apnode.dev/apnode/pkg/tracker"
	"go.apnode.dev/apnode/pkg/util/validation"
)

// DefaultConfig is a default Config.
var DefaultConfig = Config{
	AccessPoint: ap.DefaultConfig,
	Indicators:  indicator.DefaultConfig,
	Tracker:     tracker.DefaultConfig,
	Control: Control{
		Enabled: true,
		Config:  control.DefaultConfig,
	},
	Stations: Stations{
		TTL: 24 * time.Hour,
	},
	HealthService: HealthService{
		Enabled: false,
		Bind:    "0.0.0.0:9090",
	},
	Telemetry: telemetry.DefaultConfig,
}

// Config is the root configuration of an apnode.
type Config struct {
	// See ap.Config.
	AccessPoint ap.Config `json:"accessPoint,omitempty" yaml:"accessPoint,omitempty"`
	// See indicator.Config.
	Indicators indicator.Config `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	// See tracker.Config.
	Tracker tracker.Config `json:"tracker,omitempty" yaml:"tracker,omitempty"`
	// See Control struct.
	Control Control `json:"control,omitempty" yaml:"control,omitempty"`
	// See Stations struct.
	Stations Stations `json:"stations,omitempty" yaml:"stations,omitempty"`
	// See HealthService struct.
	HealthService HealthService `json:"healthService,omitempty" yaml:"healthService,omitempty"`
	// See telemetry.Config.
	Telemetry telemetry.Config `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// Control is the local HTTP control server.
type Control struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	control.Config `yaml:",inline" mapstructure:",squash"`
}

// Stations configures the registry of associated stations.
type Stations struct {
	// TTL after which a station without a leave notification is forgotten.
	// 0 disables expiry.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// HealthService is a GRPC health probe service for use with Kubernetes pods.
// (https://github.com/grpc-ecosystem/grpc-health-probe)
type HealthService struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Bind    string `json:"bind,omitempty" yaml:"bind,omitempty"`
}

// Validate validates Config.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	if c == nil {
		e("config must not be nil")
		return
	}

	prefixed := func(section string, w, e []error) {
		for _, err := range w {
			warns = append(warns, fmt.Errorf("%s: %w", section, err))
		}
		for _, err := range e {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	w, e2 := c.AccessPoint.Validate()
	prefixed("accessPoint", w, e2)
	w, e2 = c.Indicators.Validate()
	prefixed("indicators", w, e2)
	w, e2 = c.Tracker.Validate()
	prefixed("tracker", w, e2)
	if c.Control.Enabled {
		w, e2 = c.Control.Config.Validate()
		prefixed("control", w, e2)
	}
	w, e2 = c.Telemetry.Validate()
	prefixed("telemetry", w, e2)

	if c.Stations.TTL < 0 {
		e("stations: ttl must not be negative, got %s", c.Stations.TTL)
	}
	if c.HealthService.Enabled {
		if err := validation.ValidHostPort(c.HealthService.Bind); err != nil {
			e("Invalid health probe bind address %q: %v", c.HealthService.Bind, err)
		}
	}
	return
}
