package core

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeJPEG = "image/jpeg"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Screenshot label suffixes
const (
	SuffixFailure = "_FAILURE"
	SuffixPass    = "_PASS"
)

// ArtifactConfig controls what the runner captures when a scenario ends.
type ArtifactConfig struct {
	CaptureOnFailure bool // <scenario>_FAILURE screenshot
	CaptureOnSuccess bool // <scenario>_PASS screenshot
	PageSource       bool // UI hierarchy dump next to the failure screenshot
}

// DefaultArtifactConfig captures failures only.
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		CaptureOnSuccess: false,
	}
}

// ShouldCapture reports whether a screenshot is wanted for a scenario ending in status.
func (c ArtifactConfig) ShouldCapture(status TestStatus) bool {
	switch status {
	case StatusFailed, StatusErrored:
		return c.CaptureOnFailure
	case StatusPassed:
		return c.CaptureOnSuccess
	default:
		return false
	}
}

// ContentTypeFor maps a file extension to its content type.
func ContentTypeFor(ext string) string {
	switch ext {
	case ".png":
		return ContentTypePNG
	case ".jpg", ".jpeg":
		return ContentTypeJPEG
	case ".json":
		return ContentTypeJSON
	default:
		return ContentTypeText
	}
}
