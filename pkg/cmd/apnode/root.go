// Package apnode is the command line interface of the access point node.
package apnode

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.apnode.dev/apnode/pkg/apnode"
	"go.apnode.dev/apnode/pkg/util/interrupt"
	"go.apnode.dev/apnode/pkg/version"
)

// Execute runs App() and calls os.Exit when finished.
func Execute() {
	if err := App().Run(os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func App() *cli.App {
	// -v is taken by verbosity
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}

	app := cli.NewApp()
	app.Name = "apnode"
	app.Usage = "apnode is a Wi-Fi access point node with connection indicators."
	app.Description = `An access point node counting the stations associated with it.
Every join pulses the connection indicator, and a small HTTP control
server shows the count and switches the manual indicator.

Visit the status page at http://<bind>/ once the node is running.`
	app.Version = version.String()

	var (
		debug      bool
		configFile string
		verbosity  int
	)
	app.Flags = []cli.Flag{
		cli.VersionFlag,
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage: `config file (default: ./config.yml)
Supports: yaml/yml, json, toml`,
			EnvVars:     []string{"APNODE_CONFIG"},
			Destination: &configFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Usage:       "Enable debug mode and highest log verbosity",
			Destination: &debug,
			EnvVars:     []string{"APNODE_DEBUG"},
		},
		&cli.IntFlag{
			Name:        "verbosity",
			Aliases:     []string{"v"},
			Usage:       "The higher the verbosity the more logs are shown",
			EnvVars:     []string{"APNODE_VERBOSITY"},
			Destination: &verbosity,
		},
	}
	app.Commands = []*cli.Command{
		configCommand(),
		hostapdCommand(),
		statusCommand(),
	}
	app.Action = func(c *cli.Context) error {
		v, err := initViper(c, configFile)
		if err != nil {
			return cli.Exit(err, 1)
		}
		cfg, err := apnode.LoadConfig(v)
		if err != nil {
			return cli.Exit(err, 1)
		}

		if debug {
			verbosity = 10
		}
		log, err := newLogger(debug, verbosity)
		if err != nil {
			return cli.Exit(fmt.Errorf("error creating zap logger: %w", err), 1)
		}
		ctx, stop := interrupt.TerminationContext(logr.NewContext(c.Context, log))
		defer stop()

		log.Info("logging verbosity", "verbosity", verbosity)
		log.Info("using config file", "config", v.ConfigFileUsed())

		if err = apnode.Start(ctx,
			apnode.WithConfig(*cfg),
			apnode.WithAutoConfigReload(v.ConfigFileUsed()),
		); err != nil {
			return cli.Exit(fmt.Errorf("error running apnode: %w", err), 1)
		}
		return nil
	}
	return app
}

func initViper(c *cli.Context, configFile string) (*viper.Viper, error) {
	v := viper.New()
	if c.IsSet("config") {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		// A config file is only required if explicitly set
		if c.IsSet("config") {
			return nil, fmt.Errorf("error reading config file %q: %w", v.ConfigFileUsed(), err)
		}
	}
	return v, nil
}

// newLogger returns a new zap logger with a modified production
// or development default config to ensure human readability.
func newLogger(debug bool, v int) (l logr.Logger, err error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-v))

	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}
