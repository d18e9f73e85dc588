package core

import (
	"errors"
	"fmt"
	"strings"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, session_init, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExecutionError carrying the same code, so derived copies
// (WithCause, WithMessage, WithDetails) still satisfy errors.Is(err, ErrX).
func (e *ExecutionError) Is(target error) bool {
	var t *ExecutionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors (like Appium W3C error codes)
var (
	// Session lifecycle
	ErrSessionInit = &ExecutionError{
		Category: ErrCategorySession,
		Code:     "session_init",
		Message:  "session initialization failed",
	}
	ErrNoSession = &ExecutionError{
		Category: ErrCategorySession,
		Code:     "no_session",
		Message:  "no active session",
	}

	// Local Appium server
	ErrBackendStart = &ExecutionError{
		Category: ErrCategoryBackend,
		Code:     "backend_start",
		Message:  "appium server failed to start",
	}

	// Element resolution and interaction
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrInteraction = &ExecutionError{
		Category: ErrCategoryInteraction,
		Code:     "interaction_failed",
		Message:  "element interaction failed",
	}

	// Connection errors
	ErrServerUnreachable = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "server_unreachable",
		Message:  "could not connect to automation server",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingRequired = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_required",
		Message:  "missing required field",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// ElementNotFound builds the error raised when every locator of a logical
// element failed. The message names each locator in the order tried.
func ElementNotFound(name string, tried []string) *ExecutionError {
	msg := fmt.Sprintf("element not found: %s (tried %s)", name, strings.Join(tried, ", "))
	return ErrElementNotFound.WithMessage(msg).WithDetails(map[string]interface{}{
		"element":  name,
		"locators": tried,
	})
}

// Interaction builds the error raised when a resolved element rejected an action.
func Interaction(action, target string, cause error) *ExecutionError {
	return ErrInteraction.
		WithMessage(fmt.Sprintf("%s on %s failed", action, target)).
		WithDetails(map[string]interface{}{"action": action, "element": target}).
		WithCause(cause)
}

// CategoryOf returns the category of err, or ErrCategoryNone when err is not
// an ExecutionError.
func CategoryOf(err error) ErrorCategory {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ErrCategoryNone
}
