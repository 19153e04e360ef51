package apnode

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"

	"go.apnode.dev/apnode/pkg/apnode/config"
	"go.apnode.dev/apnode/pkg/internal/reload"
	"go.apnode.dev/apnode/pkg/telemetry"
)

// StartOption is an option for Start.
type StartOption func(o *startOptions)

type startOptions struct {
	conf             *config.Config
	configFile       string
	autoConfigReload bool
}

// WithConfig StartOption sets the config to use.
func WithConfig(c config.Config) StartOption {
	return func(o *startOptions) { o.conf = &c }
}

// WithAutoConfigReload StartOption reloads the config file
// at path when it changes and fires reload.ConfigUpdateEvent.
func WithAutoConfigReload(path string) StartOption {
	return func(o *startOptions) {
		o.configFile = path
		o.autoConfigReload = path != ""
	}
}

// Start validates the config and runs a Node until ctx is canceled.
func Start(ctx context.Context, opts ...StartOption) error {
	var c startOptions
	for _, o := range opts {
		o(&c)
	}
	if c.conf == nil {
		cfg := config.DefaultConfig
		c.conf = &cfg
	}

	log := logr.FromContextOrDiscard(ctx)
	if err := validate(log, c.conf); err != nil {
		return err
	}

	cleanup, err := telemetry.Init(ctx, c.conf.Telemetry)
	if err != nil {
		return fmt.Errorf("error initializing telemetry: %w", err)
	}
	defer cleanup()

	n, err := New(Options{
		Config: c.conf,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("error creating node: %w", err)
	}

	if c.autoConfigReload {
		prev := c.conf
		err = reload.Watch(ctx, c.configFile, func() error {
			v := viper.New()
			v.SetConfigFile(c.configFile)
			next, err := LoadConfig(v)
			if err != nil {
				return err
			}
			if err = validate(log, next); err != nil {
				return err
			}
			reload.FireConfigUpdate(n.Event(), next, prev)
			prev = next
			return nil
		})
		if err != nil {
			return fmt.Errorf("error watching config file %q: %w", c.configFile, err)
		}
	}

	return n.Start(ctx)
}

// validate logs warnings and returns all errors of c.
func validate(log logr.Logger, c *config.Config) error {
	warns, errs := c.Validate()
	for _, w := range warns {
		log.Info("config validation warn", "warn", w.Error())
	}
	if len(errs) != 0 {
		for _, e := range errs {
			log.Info("config validation error", "error", e.Error())
		}
		return fmt.Errorf("config validation error: %w", errors.Join(errs...))
	}
	return nil
}
