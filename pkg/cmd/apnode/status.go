package apnode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gookit/color"
	"github.com/urfave/cli/v2"

	"go.apnode.dev/apnode/pkg/internal/control"
	"go.apnode.dev/apnode/pkg/version"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Query the status of a running node",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Control server address of the node",
				Value:   "127.0.0.1:2244",
				EnvVars: []string{"APNODE_STATUS_ADDR"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 5 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw JSON status",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()
			s, raw, err := fetchStatus(ctx, "http://"+c.String("addr")+"/api/status")
			if err != nil {
				return cli.Exit(err, 1)
			}
			if c.Bool("json") {
				_, err = c.App.Writer.Write(raw)
				return err
			}
			printStatus(c.App.Writer, s)
			return nil
		},
	}
}

func fetchStatus(ctx context.Context, url string) (*control.Status, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header = version.UserAgentHeader()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying node: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading status: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("node returned %s", res.Status)
	}
	var s control.Status
	if err = json.Unmarshal(raw, &s); err != nil {
		return nil, nil, fmt.Errorf("error decoding status: %w", err)
	}
	return &s, raw, nil
}

func printStatus(w io.Writer, s *control.Status) {
	onOff := func(on bool) string {
		if on {
			return color.LightGreen.Render("on")
		}
		return color.Gray.Render("off")
	}
	connected := color.LightGreen.Render(s.Connected)
	if s.Connected < 0 {
		connected = color.LightRed.Render(s.Connected)
	}
	fmt.Fprintf(w, "%s %s (%s, up %s)\n", color.OpBold.Render("node"), s.Node, s.Version, s.Uptime)
	fmt.Fprintf(w, "connected devices: %s\n", connected)
	fmt.Fprintf(w, "associated stations: %d\n", s.Stations)
	fmt.Fprintf(w, "joins: %d  leaves: %d  pulses: %d  pending: %d\n", s.Joins, s.Leaves, s.Pulses, s.Pending)
	fmt.Fprintf(w, "connection indicator: %s\n", onOff(s.PulseActive))
	fmt.Fprintf(w, "manual indicator: %s\n", onOff(s.ManualIndicator))
}
