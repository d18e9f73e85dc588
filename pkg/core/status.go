package core

// TestStatus represents the execution status of a scenario
type TestStatus int

const (
	StatusPending TestStatus = iota // Not yet started
	StatusRunning                   // Currently executing
	StatusPassed                    // Completed successfully
	StatusFailed                    // Assertion failed (expected behavior didn't occur)
	StatusErrored                   // Unexpected error (session, backend, crash)
	StatusSkipped                   // Filtered out or suite aborted before it ran
)

// String returns the string representation of TestStatus
func (s TestStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s TestStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsFailure returns true for failed and errored tests
func (s TestStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusErrored
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone        ErrorCategory = iota // No error
	ErrCategoryAssertion                        // Element not found, visibility check failed
	ErrCategoryTimeout                          // Operation timed out
	ErrCategoryConnection                       // Device/server connection lost
	ErrCategorySession                          // Session could not be created
	ErrCategoryBackend                          // Local Appium server could not start
	ErrCategoryInteraction                      // Element found but tap/type failed
	ErrCategoryConfig                           // Invalid configuration, missing required field
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategorySession:
		return "session"
	case ErrCategoryBackend:
		return "backend"
	case ErrCategoryInteraction:
		return "interaction"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}
