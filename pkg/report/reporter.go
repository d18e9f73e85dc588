package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/google/uuid"
)

// File naming.
const (
	FilePrefix    = "ContactsReport_"
	TimestampFmt  = "2006-01-02_15-04-05"
	JSONFileName  = "report.json"
	AllureDirName = "allure-results"
)

// Options configures a Reporter.
type Options struct {
	Dir              string
	Title            string // default "Contacts Test Report"
	Allure           bool
	EmbedScreenshots bool
	System           SystemInfo
	Now              func() time.Time // default time.Now
}

// Reporter is the run-wide reporting sink. Each owner (worker) has at most
// one open group; calls for an owner without an open group are ignored.
type Reporter struct {
	opts    Options
	started time.Time

	mu     sync.Mutex
	groups []*TestGroup
	open   map[string]*TestGroup

	flushOnce sync.Once
	path      string
	flushErr  error
}

// New creates a Reporter. Nothing is written until Flush.
func New(opts Options) *Reporter {
	if opts.Title == "" {
		opts.Title = "Contacts Test Report"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.System.Platform == "" {
		opts.System = DefaultSystemInfo(opts.System.Tester)
	}
	return &Reporter{
		opts:    opts,
		started: opts.Now(),
		open:    make(map[string]*TestGroup),
	}
}

// Path is where Flush writes (or wrote) the HTML report.
func (r *Reporter) Path() string {
	return filepath.Join(r.opts.Dir, FilePrefix+r.started.Format(TimestampFmt)+".html")
}

// CreateTest opens a group for owner. A group still open for the same owner
// is closed as errored first.
func (r *Reporter) CreateTest(owner, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.Now()
	if prev, ok := r.open[owner]; ok {
		prev.Status = core.StatusErrored
		prev.EndTime = &now
	}
	g := &TestGroup{
		ID:        uuid.NewString(),
		Name:      name,
		Owner:     owner,
		Status:    core.StatusRunning,
		StartTime: now,
	}
	r.groups = append(r.groups, g)
	r.open[owner] = g
	logger.Info("[%s] test started: %s", owner, name)
}

// Log appends an entry to the owner's open group.
func (r *Reporter) Log(owner string, level Level, msg string) {
	r.append(owner, level, msg, "")
}

// Info appends an informational entry.
func (r *Reporter) Info(owner, msg string) { r.Log(owner, LevelInfo, msg) }

// Pass appends a passed check.
func (r *Reporter) Pass(owner, msg string) { r.Log(owner, LevelPass, msg) }

// Fail appends a failure entry; the last one becomes the group's FailureMessage.
func (r *Reporter) Fail(owner, msg string) { r.Log(owner, LevelFail, msg) }

// Warning appends a warning; it does not change the group's status.
func (r *Reporter) Warning(owner, msg string) { r.Log(owner, LevelWarning, msg) }

// AttachScreenshot records a screenshot entry. It reports whether a group
// was open to receive it.
func (r *Reporter) AttachScreenshot(owner, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return r.append(owner, LevelInfo, "Screenshot: "+filepath.Base(path), abs)
}

func (r *Reporter) append(owner string, level Level, msg, screenshot string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.open[owner]
	if !ok {
		return false
	}
	g.Entries = append(g.Entries, Entry{
		Test:       g.Name,
		Timestamp:  r.opts.Now(),
		Level:      level,
		Message:    msg,
		Screenshot: screenshot,
	})

	switch level {
	case LevelFail:
		logger.Error("[%s] %s: %s", owner, g.Name, msg)
	case LevelWarning:
		logger.Warn("[%s] %s: %s", owner, g.Name, msg)
	default:
		logger.Info("[%s] %s: %s", owner, g.Name, msg)
	}
	return true
}

// EndTest closes the owner's group with a terminal status.
func (r *Reporter) EndTest(owner string, status core.TestStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.open[owner]
	if !ok {
		return
	}
	now := r.opts.Now()
	g.Status = status
	g.EndTime = &now
	delete(r.open, owner)
	logger.Info("[%s] test finished: %s (%s)", owner, g.Name, status)
}

// HasOpenTest reports whether owner has an open group.
func (r *Reporter) HasOpenTest(owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.open[owner]
	return ok
}

// Groups returns a snapshot of all groups in creation order.
func (r *Reporter) Groups() []TestGroup {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TestGroup, len(r.groups))
	for i, g := range r.groups {
		out[i] = *g
		out[i].Entries = append([]Entry(nil), g.Entries...)
	}
	return out
}

// Scope binds the reporter to one owner.
func (r *Reporter) Scope(owner string) *Scope {
	return &Scope{r: r, owner: owner}
}

// Scope is a Reporter bound to one owner. Page objects log through it.
type Scope struct {
	r     *Reporter
	owner string
}

// Owner returns the worker the scope writes for.
func (s *Scope) Owner() string { return s.owner }

// Info appends an informational entry to the owner's open group.
func (s *Scope) Info(msg string) { s.r.Info(s.owner, msg) }

// Pass appends a passed check to the owner's open group.
func (s *Scope) Pass(msg string) { s.r.Pass(s.owner, msg) }

// Fail appends a failure to the owner's open group.
func (s *Scope) Fail(msg string) { s.r.Fail(s.owner, msg) }

// Warning appends a warning to the owner's open group.
func (s *Scope) Warning(msg string) { s.r.Warning(s.owner, msg) }

// Flush writes the report once. Later calls return the first result.
func (r *Reporter) Flush() (string, error) {
	r.flushOnce.Do(func() {
		r.path, r.flushErr = r.write()
	})
	return r.path, r.flushErr
}

func (r *Reporter) write() (string, error) {
	if r.opts.Dir == "" {
		return "", errors.New("report directory not configured")
	}
	if err := os.MkdirAll(r.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	snapshot := r.Groups()
	groups := make([]*TestGroup, len(snapshot))
	for i := range snapshot {
		groups[i] = &snapshot[i]
	}

	generated := r.opts.Now()
	path := r.Path()

	html, err := renderHTML(buildHTMLData(groups, r.opts, r.started, generated))
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	if err := atomicWrite(path, []byte(html)); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}

	if err := r.writeJSON(groups, generated); err != nil {
		return path, err
	}

	if r.opts.Allure {
		if err := writeAllure(filepath.Join(r.opts.Dir, AllureDirName), groups, r.opts.System); err != nil {
			return path, err
		}
	}

	logger.Info("report written to %s (%d tests)", path, len(groups))
	return path, nil
}

func (r *Reporter) writeJSON(groups []*TestGroup, generated time.Time) error {
	doc := jsonReport{
		Title:       r.opts.Title,
		GeneratedAt: generated,
		StartTime:   r.started,
		System:      r.opts.System,
		Summary:     summarize(groups),
	}
	for _, g := range groups {
		doc.Tests = append(doc.Tests, jsonGroup{
			TestGroup:  g,
			StatusName: g.Status.String(),
			DurationMs: g.Duration().Milliseconds(),
		})
	}
	data, err := json.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := atomicWrite(filepath.Join(r.opts.Dir, JSONFileName), data); err != nil {
		return fmt.Errorf("write %s: %w", JSONFileName, err)
	}
	return nil
}

// atomicWrite writes through a temp file so readers never see a partial file.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
