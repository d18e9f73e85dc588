// Package cli provides the command-line interface for contacts-runner.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/devicelab-dev/contacts-runner/pkg/config"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "config/config.properties"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Configuration file (.properties or .yaml)",
		Value:   DefaultConfigFile,
		EnvVars: []string{"CONTACTS_CONFIG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"CONTACTS_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write the run log to this file (default: <report dir>/contacts-runner.log)",
		EnvVars: []string{"CONTACTS_LOG_FILE"},
	},
	&cli.StringFlag{
		Name:  "env-file",
		Usage: "dotenv file with CONTACTS_* overrides (ignored when missing)",
		Value: ".env",
	},
	&cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	},
}

// App builds the CLI application. Output goes to w.
func App(w io.Writer) *cli.App {
	return &cli.App{
		Name:    "contacts-runner",
		Usage:   "Android Contacts UI test suite over Appium",
		Version: Version,
		Description: `contacts-runner drives the Android Contacts app through an Appium
server and writes an HTML report with screenshots.

Examples:
  contacts-runner run
  contacts-runner --config config/ci.yaml run --parallel 2
  contacts-runner run --filter ContactsTest --start-server
  contacts-runner list
  contacts-runner status`,
		Writer:    w,
		ErrWriter: w,
		Flags:     GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") || os.Getenv("NO_COLOR") != "" {
				disableColors()
			}
			logger.SetVerbose(c.Bool("verbose"))
			return config.LoadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			runCommand,
			listCommand,
			statusCommand,
		},
	}
}

// Execute runs the CLI. Exit codes from cli.Exit are applied by urfave/cli.
func Execute() {
	if err := App(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// loadSettings reads --config and applies overrides before deriving settings.
func loadSettings(c *cli.Context, overrides map[string]string) (*config.Settings, error) {
	props, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	for k, v := range overrides {
		props.Set(k, v)
	}
	return props.Settings()
}
