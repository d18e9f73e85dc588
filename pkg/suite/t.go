package suite

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/fixture"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/devicelab-dev/contacts-runner/pkg/pages"
	"github.com/devicelab-dev/contacts-runner/pkg/report"
	"github.com/devicelab-dev/contacts-runner/pkg/session"
)

// T is the handle passed to a scenario. It satisfies testify's
// require.TestingT, so require/assert work directly against it.
//
// FailNow and Skip stop the scenario goroutine and must be called from it.
type T struct {
	ctx      context.Context
	runner   *Runner
	owner    string
	scenario Scenario
	session  *session.Session
	scope    *report.Scope

	mu       sync.Mutex
	failed   bool
	errored  bool
	skipped  bool
	messages []string
	cause    error
	shots    []string
	page     *pages.ContactsPage
}

func newT(ctx context.Context, r *Runner, owner string, sc Scenario, sess *session.Session) *T {
	return &T{
		ctx:      ctx,
		runner:   r,
		owner:    owner,
		scenario: sc,
		session:  sess,
		scope:    r.reporter.Scope(owner),
	}
}

// run executes fn on its own goroutine and waits for it. FailNow/Skip end
// the goroutine via runtime.Goexit; panics are recorded as errors.
func (t *T) run(fn Func) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				logger.Debug("panic in %s: %v\n%s", t.scenario.FullName(), rec, debug.Stack())
				t.mu.Lock()
				t.errored = true
				t.mu.Unlock()
				t.record(fmt.Sprintf("panic: %v", rec))
			}
		}()
		if fn == nil {
			t.Errorf("scenario %s has no body", t.scenario.FullName())
			return
		}
		fn(t)
	}()
	<-done
}

// Errorf records a failure and continues.
func (t *T) Errorf(format string, args ...interface{}) {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
	t.record(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (t *T) record(msg string) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	logger.Error("[%s] %s: %s", t.owner, t.scenario.FullName(), msg)
	t.scope.Fail(msg)
}

// FailNow marks the scenario failed and stops it.
func (t *T) FailNow() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
	runtime.Goexit()
}

// Fatal records err as the failure cause and stops the scenario.
func (t *T) Fatal(err error) {
	t.mu.Lock()
	if t.cause == nil {
		t.cause = err
	}
	t.mu.Unlock()
	t.Errorf("%v", err)
	t.FailNow()
}

// Fatalf is Errorf followed by FailNow.
func (t *T) Fatalf(format string, args ...interface{}) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Skip marks the scenario skipped and stops it.
func (t *T) Skip(reason string) {
	t.mu.Lock()
	t.skipped = true
	t.mu.Unlock()
	t.runner.reporter.Log(t.owner, report.LevelSkip, reason)
	runtime.Goexit()
}

// Helper is a no-op; it lets testify treat T as a helper-aware TestingT.
func (t *T) Helper() {}

// Failed reports whether the scenario has failed so far.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed || t.errored
}

// Log writes an info entry to the report.
func (t *T) Log(format string, args ...interface{}) {
	t.scope.Info(fmt.Sprintf(format, args...))
}

// Pass writes a pass entry to the report.
func (t *T) Pass(format string, args ...interface{}) {
	t.scope.Pass(fmt.Sprintf(format, args...))
}

// Warning writes a warning entry to the report.
func (t *T) Warning(format string, args ...interface{}) {
	t.scope.Warning(fmt.Sprintf(format, args...))
}

// Screenshot captures label and attaches it to the report. A capture error
// is reported as a warning and yields "".
func (t *T) Screenshot(label string) string {
	path, err := t.runner.shots.Take(t.owner, t.Driver(), label)
	return t.screenshotDone(label, path, err)
}

// PassScreenshot captures <label>_PASS.
func (t *T) PassScreenshot(label string) string {
	path, err := t.runner.shots.TakePass(t.owner, t.Driver(), label)
	return t.screenshotDone(label, path, err)
}

// FailureScreenshot captures <label>_FAILURE.
func (t *T) FailureScreenshot(label string) string {
	path, err := t.runner.shots.TakeFailure(t.owner, t.Driver(), label)
	return t.screenshotDone(label, path, err)
}

func (t *T) screenshotDone(label, path string, err error) string {
	if err != nil {
		t.scope.Warning(fmt.Sprintf("Screenshot %s failed: %v", label, err))
		return ""
	}
	t.addScreenshot(path)
	return path
}

func (t *T) addScreenshot(path string) {
	t.mu.Lock()
	t.shots = append(t.shots, path)
	t.mu.Unlock()
}

// Screenshots returns the paths captured so far.
func (t *T) Screenshots() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.shots...)
}

// Session returns the scenario's session.
func (t *T) Session() *session.Session { return t.session }

// Driver returns the scenario's device driver.
func (t *T) Driver() core.Driver {
	if t.session == nil {
		return nil
	}
	return t.session.Driver
}

// Page returns the contacts page bound to this scenario's session and report group.
func (t *T) Page() *pages.ContactsPage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.page == nil {
		t.page = pages.NewContactsPage(t.Driver(), t.scope)
		switch s := t.runner.cfg.Settle; {
		case s < 0:
			t.page.Settle = 0
		case s > 0:
			t.page.Settle = s
		}
	}
	return t.page
}

// Settle waits for the page settle delay. A cancelled run skips the rest of
// the scenario.
func (t *T) Settle() {
	p := t.Page()
	if err := p.Pause(t.ctx, p.Settle); err != nil {
		if t.ctx.Err() != nil {
			t.Skip("Run cancelled: " + err.Error())
		}
		t.scope.Warning("Settle interrupted: " + err.Error())
	}
}

// Fixtures returns the run's contact fixtures.
func (t *T) Fixtures() *fixture.Set { return t.runner.fixtures }

// Contact returns the named fixture or stops the scenario.
func (t *T) Contact(name string) pages.Contact {
	c, err := t.runner.fixtures.Contact(name)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// Context is cancelled when the run is.
func (t *T) Context() context.Context { return t.ctx }

// Name returns Class.Name.
func (t *T) Name() string { return t.scenario.FullName() }

// Owner returns the worker running the scenario.
func (t *T) Owner() string { return t.owner }

// Reporter returns the report sink bound to this scenario.
func (t *T) Reporter() *report.Scope { return t.scope }

// Deadline lets scenarios bound their own waits by the run deadline.
func (t *T) Deadline() (time.Time, bool) { return t.ctx.Deadline() }

func (t *T) status() core.TestStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.errored:
		return core.StatusErrored
	case t.failed:
		return core.StatusFailed
	case t.skipped:
		return core.StatusSkipped
	default:
		return core.StatusPassed
	}
}

func (t *T) failureMessage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.failed && !t.errored {
		return ""
	}
	if len(t.messages) == 0 {
		return "test failed"
	}
	return t.messages[0]
}

func (t *T) category() core.ErrorCategory {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.failed && !t.errored {
		return core.ErrCategoryNone
	}
	var ee *core.ExecutionError
	if errors.As(t.cause, &ee) {
		return ee.Category
	}
	if t.errored {
		return core.ErrCategoryNone
	}
	return core.ErrCategoryAssertion
}
