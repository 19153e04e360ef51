package apnode

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"go.apnode.dev/apnode/pkg/apnode/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Output default configuration file",
		Description: `Output the default configuration file to stdout or a file.
You can redirect to a file or use the --write flag:

	apnode config > config.yml
	apnode config --write              # Writes to config.yml
	apnode config --format json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: yaml or json",
				Value:   "yaml",
			},
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Write config to config.yml instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			configBytes, err := defaultConfigBytes(c.String("format"))
			if err != nil {
				return cli.Exit(err, 1)
			}

			if c.Bool("write") {
				outputFile := "config.yml"
				if c.String("format") == "json" {
					outputFile = "config.json"
				}
				err := os.WriteFile(outputFile, configBytes, 0644)
				if err != nil {
					return cli.Exit(fmt.Errorf("error writing config to %q: %w", outputFile, err), 1)
				}
				fmt.Fprintf(c.App.Writer, "Configuration written to %s\n", outputFile)
				return nil
			}

			_, err = c.App.Writer.Write(configBytes)
			if err != nil {
				return cli.Exit(fmt.Errorf("error writing config: %w", err), 1)
			}
			return nil
		},
	}
}

func defaultConfigBytes(format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(config.DefaultConfig)
	case "json":
		b, err := json.MarshalIndent(config.DefaultConfig, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
	return nil, fmt.Errorf("unknown config format: %s (valid formats: yaml, json)", format)
}
