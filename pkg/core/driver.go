// Package core provides the execution model types for contacts-runner.
package core

import (
	"time"
)

// Driver defines the device operations page objects and scenarios rely on.
// Implementations: appium (W3C WebDriver over HTTP).
// Element handles are opaque IDs returned by FindElement/FindElements.
type Driver interface {
	// Element lookup; honours the session's implicit wait
	FindElement(strategy, value string) (string, error)
	FindElements(strategy, value string) ([]string, error)

	// Element queries
	ElementText(elementID string) (string, error)
	ElementAttribute(elementID, name string) (string, error)
	ElementDisplayed(elementID string) (bool, error)
	ElementEnabled(elementID string) (bool, error)

	// Element actions
	Click(elementID string) error
	Clear(elementID string) error
	TypeInto(elementID, text string) error

	// Device and app state
	Back() error
	HideKeyboard() error
	IsKeyboardShown() (bool, error)
	CurrentActivity() (string, error)
	Orientation() (string, error)
	WindowSize() (int, int, error)

	// Artifacts
	Screenshot() ([]byte, error)
	Source() (string, error)

	SetImplicitWait(timeout time.Duration) error

	// Platform info captured at session creation
	PlatformInfo() *PlatformInfo

	// Close ends the remote session
	Close() error
}

// PlatformInfo contains device and platform details
type PlatformInfo struct {
	Platform     string `json:"platform"`               // android
	OSVersion    string `json:"osVersion"`              // e.g. "14"
	DeviceName   string `json:"deviceName"`             // e.g. "emulator-5554"
	DeviceID     string `json:"deviceId"`               // udid
	ScreenWidth  int    `json:"screenWidth,omitempty"`  // Screen width in pixels
	ScreenHeight int    `json:"screenHeight,omitempty"` // Screen height in pixels
	AppID        string `json:"appId,omitempty"`        // Package name
	Activity     string `json:"activity,omitempty"`     // Launch activity
}
