package core

import (
	"time"
)

// TestResult captures the outcome of one scenario run
type TestResult struct {
	Name     string `json:"name"`
	Class    string `json:"class"`
	Owner    string `json:"owner"` // worker that ran it
	Priority int    `json:"priority"`

	Status   TestStatus    `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`
	Error    string        `json:"error,omitempty"`

	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	Screenshots []string `json:"screenshots,omitempty"`
}

// RunResult aggregates all scenario results of one suite run
type RunResult struct {
	Tests      []TestResult  `json:"tests"`
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
	ReportPath string        `json:"reportPath,omitempty"`
}

// NewRunResult builds the summary counts from individual results.
func NewRunResult(tests []TestResult, duration time.Duration) *RunResult {
	r := &RunResult{
		Tests:    tests,
		Total:    len(tests),
		Duration: duration,
	}
	for _, t := range tests {
		switch {
		case t.Status == StatusPassed:
			r.Passed++
		case t.Status.IsFailure():
			r.Failed++
		case t.Status == StatusSkipped:
			r.Skipped++
		}
	}
	return r
}

// Success returns true when no scenario failed or errored.
func (r *RunResult) Success() bool {
	return r.Failed == 0
}

// ExitCode follows the test-runner convention: 0 on success, 1 on any failure.
func (r *RunResult) ExitCode() int {
	if r.Success() {
		return 0
	}
	return 1
}
