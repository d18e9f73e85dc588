package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/config"
	"github.com/devicelab-dev/contacts-runner/pkg/server"
	"github.com/urfave/cli/v2"
)

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Check that the configured Appium server is reachable and ready",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "appium-url",
			Usage:   "Appium server URL",
			EnvVars: []string{"APPIUM_URL"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "How long to wait for the server to answer",
			Value: 5 * time.Second,
		},
	},
	Action: func(c *cli.Context) error {
		overrides := map[string]string{}
		if c.IsSet("appium-url") {
			overrides[config.KeyServerURL] = c.String("appium-url")
		}
		settings, err := loadSettings(c, overrides)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
		defer cancel()

		w := c.App.Writer
		st, err := server.Ready(ctx, settings.ServerURL)
		if err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", errorStyle.Render("✗"), settings.ServerURL, err)
			return cli.Exit("", 1)
		}
		if !st.Ready {
			fmt.Fprintf(w, "%s %s is not ready: %s\n", errorStyle.Render("✗"), settings.ServerURL, st.Message)
			return cli.Exit("", 1)
		}

		version := st.Version
		if version == "" {
			version = "unknown version"
		}
		fmt.Fprintf(w, "%s %s ready (%s)\n", passStyle.Render("✓"), settings.ServerURL, version)
		return nil
	},
}
