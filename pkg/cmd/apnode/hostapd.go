package apnode

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"go.apnode.dev/apnode/pkg/ap"
	"go.apnode.dev/apnode/pkg/apnode"
)

func hostapdCommand() *cli.Command {
	return &cli.Command{
		Name:  "hostapd",
		Usage: "Output a hostapd.conf for the configured access point",
		Description: `Renders the accessPoint section of the config as a hostapd
configuration file with the control interface the node attaches to.

	apnode -c config.yml hostapd > /etc/hostapd/hostapd.conf`,
		Action: func(c *cli.Context) error {
			v := viper.New()
			if c.IsSet("config") {
				v.SetConfigFile(c.String("config"))
			}
			cfg, err := apnode.LoadConfig(v)
			if err != nil {
				return cli.Exit(err, 1)
			}
			if err = ap.WriteHostapdConf(c.App.Writer, cfg.AccessPoint); err != nil {
				return cli.Exit(fmt.Errorf("error writing hostapd config: %w", err), 1)
			}
			return nil
		},
	}
}
