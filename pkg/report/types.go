// Package report collects per-test log entries and renders them as an HTML
// report, a JSON twin and, optionally, Allure results.
package report

import (
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
)

// Level is the severity of a report entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelPass    Level = "pass"
	LevelFail    Level = "fail"
	LevelWarning Level = "warning"
	LevelSkip    Level = "skip"
)

// Entry is one line of a test group. Entries are never mutated after append.
type Entry struct {
	Test       string    `json:"test"`
	Timestamp  time.Time `json:"timestamp"`
	Level      Level     `json:"level"`
	Message    string    `json:"message"`
	Screenshot string    `json:"screenshot,omitempty"` // absolute path
}

// TestGroup holds the entries of one test.
type TestGroup struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Owner     string          `json:"owner"`
	Status    core.TestStatus `json:"-"`
	StartTime time.Time       `json:"startTime"`
	EndTime   *time.Time      `json:"endTime,omitempty"`
	Entries   []Entry         `json:"entries"`
}

// Duration is zero while the group is still open.
func (g *TestGroup) Duration() time.Duration {
	if g.EndTime == nil {
		return 0
	}
	return g.EndTime.Sub(g.StartTime)
}

// FailureMessage returns the last fail entry, if any.
func (g *TestGroup) FailureMessage() string {
	for i := len(g.Entries) - 1; i >= 0; i-- {
		if g.Entries[i].Level == LevelFail {
			return g.Entries[i].Message
		}
	}
	return ""
}

// SystemInfo is rendered in the report header.
type SystemInfo struct {
	Platform       string `json:"platform"`
	AutomationTool string `json:"automationTool"`
	Framework      string `json:"framework"`
	Tester         string `json:"tester"`
	Device         string `json:"device,omitempty"`
	AppPackage     string `json:"appPackage,omitempty"`
}

// DefaultSystemInfo returns the stock header values.
func DefaultSystemInfo(tester string) SystemInfo {
	return SystemInfo{
		Platform:       "Android",
		AutomationTool: "Appium",
		Framework:      "contacts-runner",
		Tester:         tester,
	}
}

// Summary counts groups by outcome.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Running int `json:"running"`
}

func summarize(groups []*TestGroup) Summary {
	s := Summary{Total: len(groups)}
	for _, g := range groups {
		switch {
		case g.Status == core.StatusPassed:
			s.Passed++
		case g.Status.IsFailure():
			s.Failed++
		case g.Status == core.StatusSkipped:
			s.Skipped++
		default:
			s.Running++
		}
	}
	return s
}

// jsonGroup is the report.json shape of a group.
type jsonGroup struct {
	*TestGroup
	StatusName string `json:"status"`
	DurationMs int64  `json:"durationMs"`
}

type jsonReport struct {
	Title       string      `json:"title"`
	GeneratedAt time.Time   `json:"generatedAt"`
	StartTime   time.Time   `json:"startTime"`
	System      SystemInfo  `json:"system"`
	Summary     Summary     `json:"summary"`
	Tests       []jsonGroup `json:"tests"`
}
