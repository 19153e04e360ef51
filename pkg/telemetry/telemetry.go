// Package telemetry bootstraps OpenTelemetry exporters for the node.
// Instruments use the global providers, which are no-ops until Init
// configured them.
package telemetry

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/honeycombio/otel-config-go/otelconfig"

	"go.apnode.dev/apnode/pkg/version"
)

// DefaultConfig is the default telemetry configuration.
var DefaultConfig = Config{
	Enabled:     false,
	ServiceName: "apnode",
	Endpoint:    "localhost:4317",
	Insecure:    true,
	Metrics:     true,
	Tracing:     true,
}

// Config configures OTLP export of metrics and traces.
// Standard OTEL_* environment variables are honored as well.
type Config struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	// Endpoint is the OTLP gRPC endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	Metrics  bool   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing  bool   `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// Validate validates the telemetry configuration.
func (c Config) Validate() (warns []error, errs []error) {
	if !c.Enabled {
		return
	}
	if c.ServiceName == "" {
		errs = append(errs, fmt.Errorf("telemetry service name must not be empty"))
	}
	if !c.Metrics && !c.Tracing {
		warns = append(warns, fmt.Errorf("telemetry is enabled but neither metrics nor tracing are"))
	}
	return
}

// Init configures the global OpenTelemetry providers.
// The returned cleanup flushes and shuts down exporters.
func Init(ctx context.Context, cfg Config) (cleanup func(), err error) {
	if !cfg.Enabled {
		return func() {}, nil
	}
	opts := []otelconfig.Option{
		otelconfig.WithServiceName(cfg.ServiceName),
		otelconfig.WithServiceVersion(version.String()),
		otelconfig.WithMetricsEnabled(cfg.Metrics),
		otelconfig.WithTracesEnabled(cfg.Tracing),
	}
	if cfg.Endpoint != "" {
		opts = append(opts,
			otelconfig.WithExporterEndpoint(cfg.Endpoint),
			otelconfig.WithExporterInsecure(cfg.Insecure),
		)
	}
	cleanup, err = otelconfig.ConfigureOpenTelemetry(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	logr.FromContextOrDiscard(ctx).Info("telemetry enabled",
		"endpoint", cfg.Endpoint, "metrics", cfg.Metrics, "tracing", cfg.Tracing)
	return cleanup, nil
}
