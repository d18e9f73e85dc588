package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/config"
	"github.com/devicelab-dev/contacts-runner/pkg/driver/mock"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/devicelab-dev/contacts-runner/pkg/scenarios"
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
	"github.com/urfave/cli/v2"
)

// LogFileName is the run log written next to the report.
const LogFileName = "contacts-runner.log"

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run the Contacts test scenarios",
	Description: `Run all scenarios, or those whose Class.name contains a --filter value.

The exit code is 1 when any scenario failed or errored.

Examples:
  contacts-runner run
  contacts-runner run --filter ContactsTest --filter Connectivity
  contacts-runner run --parallel 2 --appium-url http://10.0.0.5:4723
  contacts-runner run --start-server
  contacts-runner run --mock`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Number of workers, each with its own session",
		},
		&cli.StringSliceFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Only run scenarios whose Class.name contains this (repeatable)",
		},
		&cli.StringFlag{
			Name:    "appium-url",
			Usage:   "Appium server URL",
			EnvVars: []string{"APPIUM_URL"},
		},
		&cli.BoolFlag{
			Name:  "start-server",
			Usage: "Start a local Appium server for the run",
		},
		&cli.StringFlag{
			Name:  "report-dir",
			Usage: "Report output directory",
		},
		&cli.StringFlag{
			Name:  "fixtures",
			Usage: "Contact fixtures YAML file",
		},
		&cli.BoolFlag{
			Name:  "mock",
			Usage: "Run against the built-in fake device instead of Appium",
		},
	},
	Action: runTests,
}

// runOverrides maps command flags onto configuration keys.
func runOverrides(c *cli.Context) map[string]string {
	o := make(map[string]string)
	if c.IsSet("parallel") {
		o[config.KeyParallel] = strconv.Itoa(c.Int("parallel"))
	}
	if c.IsSet("appium-url") {
		o[config.KeyServerURL] = c.String("appium-url")
	}
	if c.Bool("start-server") {
		o[config.KeyStartServer] = "true"
	}
	if c.IsSet("report-dir") {
		o[config.KeyReportDir] = c.String("report-dir")
	}
	if c.IsSet("fixtures") {
		o[config.KeyFixturesFile] = c.String("fixtures")
	}
	return o
}

func runTests(c *cli.Context) error {
	overrides := runOverrides(c)
	settle := suiteSettle(c.Bool("mock"))

	if c.Bool("mock") {
		srv := mock.NewServer(mock.Config{})
		defer srv.Close()
		overrides[config.KeyServerURL] = srv.URL()
		overrides[config.KeyStartServer] = "false"
		overrides[config.KeyImplicitWait] = "0"
	}

	settings, err := loadSettings(c, overrides)
	if err != nil {
		return err
	}

	logPath := c.String("log-file")
	if logPath == "" {
		if err := os.MkdirAll(settings.ReportDir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		logPath = filepath.Join(settings.ReportDir, LogFileName)
	}
	if err := logger.Init(logPath); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	selected := suite.Filter(scenarios.All(), c.StringSlice("filter")...)
	if len(selected) == 0 {
		return fmt.Errorf("no scenarios match %s", strings.Join(c.StringSlice("filter"), ", "))
	}

	logger.Info("=== Test execution started ===")
	logger.Info("Server: %s (start local: %t)", settings.ServerURL, settings.StartServer)
	logger.Info("Device: %s, app: %s", settings.DeviceName, settings.AppPackage)
	logger.Info("Scenarios: %d, workers: %d", len(selected), settings.Parallel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := c.App.Writer
	pr := &progress{w: w, total: len(selected)}
	runner, err := suite.New(suite.Config{
		Settings:    settings,
		Settle:      settle,
		OnTestStart: pr.onTestStart,
		OnTestEnd:   pr.onTestEnd,
	})
	if err != nil {
		return err
	}

	printBanner(w, settings, len(selected))
	res, err := runner.Run(ctx, selected)
	if err != nil {
		logger.Error("Suite aborted: %v", err)
		return err
	}
	printSummary(w, res)
	logger.Info("=== Test execution finished: %d/%d passed ===", res.Passed, res.Total)

	if code := res.ExitCode(); code != 0 {
		return cli.Exit("", code)
	}
	return nil
}

// suiteSettle disables page settle delays on the fake device.
func suiteSettle(fake bool) time.Duration {
	if fake {
		return -1
	}
	return 0
}

func printBanner(w io.Writer, s *config.Settings, n int) {
	server := s.ServerURL
	if s.StartServer {
		server += " (local)"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("contacts-runner "+Version))
	fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("Server:"), server)
	fmt.Fprintf(w, "  %s %s (%s)\n", dimStyle.Render("Device:"), s.DeviceName, s.AppPackage)
	fmt.Fprintf(w, "  %s %d on %d worker(s)\n", dimStyle.Render("Scenarios:"), n, s.Parallel)
	fmt.Fprintln(w)
}
