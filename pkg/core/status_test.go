package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTestStatus_String(t *testing.T) {
	tests := []struct {
		status TestStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusErrored, "errored"},
		{StatusSkipped, "skipped"},
		{TestStatus(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestTestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusPassed.IsTerminal())
	assert.True(t, StatusErrored.IsTerminal())
}

func TestErrorCategory_String(t *testing.T) {
	assert.Equal(t, "session", ErrCategorySession.String())
	assert.Equal(t, "backend", ErrCategoryBackend.String())
	assert.Equal(t, "interaction", ErrCategoryInteraction.String())
	assert.Equal(t, "unknown", ErrorCategory(99).String())
}

func TestArtifactConfig_ShouldCapture(t *testing.T) {
	cfg := DefaultArtifactConfig()
	assert.True(t, cfg.ShouldCapture(StatusFailed))
	assert.True(t, cfg.ShouldCapture(StatusErrored))
	assert.False(t, cfg.ShouldCapture(StatusPassed))
	assert.False(t, cfg.ShouldCapture(StatusSkipped))

	cfg.CaptureOnSuccess = true
	assert.True(t, cfg.ShouldCapture(StatusPassed))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, ContentTypePNG, ContentTypeFor(".png"))
	assert.Equal(t, ContentTypeJPEG, ContentTypeFor(".jpeg"))
	assert.Equal(t, ContentTypeText, ContentTypeFor(".xml"))
}

func TestNewRunResult(t *testing.T) {
	r := NewRunResult([]TestResult{
		{Name: "a", Status: StatusPassed},
		{Name: "b", Status: StatusFailed},
		{Name: "c", Status: StatusErrored},
		{Name: "d", Status: StatusSkipped},
	}, time.Second)

	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 1, r.Passed)
	assert.Equal(t, 2, r.Failed)
	assert.Equal(t, 1, r.Skipped)
	assert.False(t, r.Success())
	assert.Equal(t, 1, r.ExitCode())

	ok := NewRunResult([]TestResult{{Status: StatusPassed}}, 0)
	assert.Equal(t, 0, ok.ExitCode())
}
