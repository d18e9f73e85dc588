// Package screenshot saves device screenshots under a fixed directory and
// attaches them to the owner's open report group.
package screenshot

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/devicelab-dev/contacts-runner/pkg/report"
)

// TimestampFmt is the file name timestamp layout.
const TimestampFmt = "2006-01-02_15-04-05"

// Source is the part of core.Driver a capture needs.
type Source interface {
	Screenshot() ([]byte, error)
}

// Attacher receives saved screenshots. *report.Reporter implements it.
type Attacher interface {
	AttachScreenshot(owner, path string) bool
}

var _ Attacher = (*report.Reporter)(nil)

// Capturer writes <dir>/<label>_<timestamp>.png.
type Capturer struct {
	Dir      string
	Attacher Attacher         // optional
	Now      func() time.Time // default time.Now
}

// New returns a Capturer writing into dir.
func New(dir string, attacher Attacher) *Capturer {
	return &Capturer{Dir: dir, Attacher: attacher}
}

// Take captures the screen and returns the saved path. The file is attached
// to the owner's report group only if one is open.
func (c *Capturer) Take(owner string, src Source, label string) (string, error) {
	if src == nil {
		return "", core.ErrNoSession.WithMessage("cannot take screenshot: no active session")
	}

	data, err := src.Screenshot()
	if err != nil {
		return "", fmt.Errorf("capture screenshot %q: %w", label, err)
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	path := filepath.Join(c.Dir, FileName(label, now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	logger.Info("screenshot saved: %s", path)

	if c.Attacher != nil && !c.Attacher.AttachScreenshot(owner, path) {
		logger.Debug("no open report group for %s; screenshot not attached", owner)
	}
	return path, nil
}

// TakeFailure captures <label>_FAILURE.
func (c *Capturer) TakeFailure(owner string, src Source, label string) (string, error) {
	return c.Take(owner, src, label+core.SuffixFailure)
}

// TakePass captures <label>_PASS.
func (c *Capturer) TakePass(owner string, src Source, label string) (string, error) {
	return c.Take(owner, src, label+core.SuffixPass)
}

// Hierarchy is the part of core.Driver a page source dump needs.
type Hierarchy interface {
	Source() (string, error)
}

// SavePageSource writes the current UI hierarchy to <dir>/<label>_<timestamp>.xml.
// Page sources are not attached to the report.
func (c *Capturer) SavePageSource(src Hierarchy, label string) (string, error) {
	if src == nil {
		return "", core.ErrNoSession.WithMessage("cannot dump page source: no active session")
	}
	xml, err := src.Source()
	if err != nil {
		return "", fmt.Errorf("page source %q: %w", label, err)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	name := strings.TrimSuffix(FileName(label, now()), ".png") + ".xml"
	path := filepath.Join(c.Dir, name)
	if err := os.WriteFile(path, []byte(xml), 0o644); err != nil {
		return "", fmt.Errorf("write page source: %w", err)
	}
	logger.Debug("page source saved: %s", path)
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Sanitize makes label safe for a file name.
func Sanitize(label string) string {
	s := strings.Trim(unsafeChars.ReplaceAllString(label, "_"), "_.")
	if s == "" {
		return "screenshot"
	}
	return s
}

// FileName is <label>_<timestamp>.png.
func FileName(label string, t time.Time) string {
	return Sanitize(label) + "_" + t.Format(TimestampFmt) + ".png"
}
