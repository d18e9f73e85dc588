// Package suite runs scenarios against the device: one session per worker,
// one shared report, and an optional local Appium server around the run.
package suite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/config"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/fixture"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/devicelab-dev/contacts-runner/pkg/report"
	"github.com/devicelab-dev/contacts-runner/pkg/screenshot"
	"github.com/devicelab-dev/contacts-runner/pkg/server"
	"github.com/devicelab-dev/contacts-runner/pkg/session"
	"github.com/samber/lo"
)

// Config configures a Runner.
type Config struct {
	Settings   *config.Settings
	Factory    session.Factory    // nil uses Appium
	Fixtures   *fixture.Set       // nil loads Settings.FixturesFile
	Reporter   *report.Reporter   // nil builds one from Settings
	Supervisor *server.Supervisor // nil builds one when Settings.StartServer is set

	// Settle overrides the page settle delay. Zero keeps the page default,
	// negative disables it.
	Settle time.Duration

	// Live progress callbacks
	OnTestStart func(owner string, sc Scenario)
	OnTestEnd   func(res core.TestResult)
}

// Result is the outcome of a suite run.
type Result struct {
	*core.RunResult
}

// Failures returns the failed and errored tests.
func (r *Result) Failures() []core.TestResult {
	return lo.Filter(r.Tests, func(t core.TestResult, _ int) bool {
		return t.Status.IsFailure()
	})
}

// Runner orchestrates scenario execution.
type Runner struct {
	cfg        Config
	settings   *config.Settings
	registry   *session.Registry
	reporter   *report.Reporter
	shots      *screenshot.Capturer
	fixtures   *fixture.Set
	supervisor *server.Supervisor
}

// workItem is a scenario and its index in the run order.
type workItem struct {
	scenario Scenario
	index    int
}

// New creates a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Settings == nil {
		return nil, core.ErrMissingRequired.WithMessage("suite: settings are required")
	}
	settings := *cfg.Settings

	fixtures := cfg.Fixtures
	if fixtures == nil {
		var err error
		if fixtures, err = fixture.Load(settings.FixturesFile); err != nil {
			return nil, err
		}
	}

	reporter := cfg.Reporter
	if reporter == nil {
		sys := report.DefaultSystemInfo(settings.Tester)
		sys.Device = settings.DeviceName
		sys.AppPackage = settings.AppPackage
		reporter = report.New(report.Options{
			Dir:              settings.ReportDir,
			Allure:           settings.ReportAllure,
			EmbedScreenshots: settings.EmbedScreenshots,
			System:           sys,
		})
	}

	supervisor := cfg.Supervisor
	if supervisor == nil && settings.StartServer {
		supervisor = server.New(server.OptionsFromSettings(&settings))
	}

	return &Runner{
		cfg:        cfg,
		settings:   &settings,
		registry:   session.NewRegistry(cfg.Factory),
		reporter:   reporter,
		shots:      screenshot.New(settings.ScreenshotDir, reporter),
		fixtures:   fixtures,
		supervisor: supervisor,
	}, nil
}

// Reporter returns the run's reporting sink.
func (r *Runner) Reporter() *report.Reporter {
	return r.reporter
}

// Registry returns the run's session registry.
func (r *Runner) Registry() *session.Registry {
	return r.registry
}

// Run executes scenarios and writes the report. Teardown (sessions, local
// server, report) happens even when the suite could not start.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (res *Result, err error) {
	start := time.Now()

	defer func() {
		path, ferr := r.afterSuite()
		if res != nil {
			res.ReportPath = path
		}
		if err == nil && ferr != nil {
			err = ferr
		}
	}()

	if serr := r.beforeSuite(ctx); serr != nil {
		return nil, fmt.Errorf("before suite: %w", serr)
	}

	tests := r.executeScenarios(ctx, scenarios)
	return &Result{RunResult: core.NewRunResult(tests, time.Since(start))}, nil
}

func (r *Runner) beforeSuite(ctx context.Context) error {
	if r.supervisor == nil {
		logger.Info("Using Appium server at %s", r.settings.ServerURL)
		return nil
	}
	if err := r.supervisor.Start(ctx); err != nil {
		return err
	}
	r.settings.ServerURL = r.supervisor.URL()
	return nil
}

func (r *Runner) afterSuite() (string, error) {
	if err := r.registry.DestroyAll(); err != nil {
		logger.Warn("Closing remaining sessions: %v", err)
	}
	if r.supervisor != nil {
		if err := r.supervisor.Stop(); err != nil {
			logger.Warn("Stopping Appium server: %v", err)
		}
	}

	path, err := r.reporter.Flush()
	if err != nil {
		logger.Error("Writing report failed: %v", err)
		return "", fmt.Errorf("write report: %w", err)
	}
	logger.Info("Report written to %s", path)
	return path, nil
}

// executeScenarios runs scenarios on Settings.Parallel workers pulling from
// one queue. Results keep the scenario order.
func (r *Runner) executeScenarios(ctx context.Context, scenarios []Scenario) []core.TestResult {
	results := make([]core.TestResult, len(scenarios))
	if len(scenarios) == 0 {
		return results
	}

	workers := r.settings.Parallel
	if workers < 1 {
		workers = 1
	}
	if workers > len(scenarios) {
		workers = len(scenarios)
	}

	queue := make(chan workItem, len(scenarios))
	for i, sc := range scenarios {
		queue <- workItem{scenario: sc, index: i}
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		owner := fmt.Sprintf("worker-%d", i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				if ctx.Err() != nil {
					results[item.index] = skipped(owner, item.scenario, ctx.Err())
					continue
				}
				results[item.index] = r.execute(ctx, owner, item.scenario)
			}
		}()
	}
	wg.Wait()
	return results
}

func skipped(owner string, sc Scenario, cause error) core.TestResult {
	return core.TestResult{
		Name:      sc.Name,
		Class:     sc.Class,
		Owner:     owner,
		Priority:  sc.Priority,
		Status:    core.StatusSkipped,
		Error:     cause.Error(),
		StartTime: time.Now(),
	}
}

// execute runs one scenario in its own session and report group.
func (r *Runner) execute(ctx context.Context, owner string, sc Scenario) (res core.TestResult) {
	start := time.Now()
	res = core.TestResult{
		Name:      sc.Name,
		Class:     sc.Class,
		Owner:     owner,
		Priority:  sc.Priority,
		StartTime: start,
	}

	if r.cfg.OnTestStart != nil {
		r.cfg.OnTestStart(owner, sc)
	}
	defer func() {
		res.Duration = time.Since(start)
		if r.cfg.OnTestEnd != nil {
			r.cfg.OnTestEnd(res)
		}
	}()

	logger.Info("[%s] Starting %s", owner, sc.FullName())
	r.reporter.CreateTest(owner, sc.FullName())
	if sc.Description != "" {
		r.reporter.Info(owner, sc.Description)
	}

	sess, err := r.registry.Create(ctx, owner, r.settings)
	if err != nil {
		r.reporter.Fail(owner, "Session could not be created: "+err.Error())
		res.Status = core.StatusErrored
		res.Category = core.CategoryOf(err)
		res.Error = err.Error()
		r.reporter.EndTest(owner, res.Status)
		return res
	}

	t := newT(ctx, r, owner, sc, sess)
	t.run(sc.Func)

	res.Status = t.status()
	res.Error = t.failureMessage()
	res.Category = t.category()

	r.captureArtifacts(t, sess.Driver, res.Status)
	switch {
	case res.Status.IsFailure():
		r.reporter.Fail(owner, "Test failed: "+res.Error)
	case res.Status == core.StatusPassed:
		r.reporter.Pass(owner, "Test passed")
	}
	res.Screenshots = t.Screenshots()

	r.reporter.EndTest(owner, res.Status)
	if err := r.registry.Destroy(owner); err != nil {
		logger.Warn("[%s] Closing session: %v", owner, err)
	}
	logger.Info("[%s] %s %s", owner, sc.FullName(), res.Status)
	return res
}

// captureArtifacts takes the end-of-scenario screenshot and page source the
// artifact settings ask for.
func (r *Runner) captureArtifacts(t *T, drv core.Driver, status core.TestStatus) {
	art := r.settings.Artifacts
	if art.ShouldCapture(status) {
		take := r.shots.TakePass
		if status.IsFailure() {
			take = r.shots.TakeFailure
		}
		if path, err := take(t.owner, drv, t.scenario.Name); err != nil {
			logger.Warn("[%s] %s screenshot: %v", t.owner, status, err)
		} else {
			t.addScreenshot(path)
		}
	}
	if art.PageSource && status.IsFailure() {
		if path, err := r.shots.SavePageSource(drv, t.scenario.Name+core.SuffixFailure); err != nil {
			logger.Warn("[%s] page source: %v", t.owner, err)
		} else {
			t.Log("Page source saved: %s", path)
		}
	}
}
