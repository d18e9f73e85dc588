package appium

import (
	"context"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
)

// Driver implements core.Driver using an Appium server.
type Driver struct {
	client *Client
	info   *core.PlatformInfo
}

// NewDriver opens a session on serverURL with the given capabilities.
func NewDriver(ctx context.Context, serverURL string, capabilities map[string]interface{}) (*Driver, error) {
	client := NewClient(serverURL)

	if err := client.Connect(ctx, capabilities); err != nil {
		return nil, err
	}

	w, h := client.ScreenSize()
	info := &core.PlatformInfo{
		Platform:     client.Platform(),
		OSVersion:    client.osVersion,
		DeviceID:     client.deviceID,
		ScreenWidth:  w,
		ScreenHeight: h,
	}
	info.DeviceName, _ = capabilities["appium:deviceName"].(string)
	info.AppID, _ = capabilities["appium:appPackage"].(string)
	info.Activity, _ = capabilities["appium:appActivity"].(string)

	return &Driver{client: client, info: info}, nil
}

// Client exposes the underlying HTTP client.
func (d *Driver) Client() *Client {
	return d.client
}

// SessionID returns the remote session ID.
func (d *Driver) SessionID() string {
	return d.client.SessionID()
}

// Close ends the remote session.
func (d *Driver) Close() error {
	return d.client.Disconnect()
}

// FindElement implements core.Driver.
func (d *Driver) FindElement(strategy, value string) (string, error) {
	return d.client.FindElement(strategy, value)
}

// FindElements implements core.Driver.
func (d *Driver) FindElements(strategy, value string) ([]string, error) {
	return d.client.FindElements(strategy, value)
}

// ElementText implements core.Driver.
func (d *Driver) ElementText(elementID string) (string, error) {
	return d.client.GetElementText(elementID)
}

// ElementAttribute implements core.Driver.
func (d *Driver) ElementAttribute(elementID, name string) (string, error) {
	return d.client.GetElementAttribute(elementID, name)
}

// ElementDisplayed implements core.Driver.
func (d *Driver) ElementDisplayed(elementID string) (bool, error) {
	return d.client.IsElementDisplayed(elementID)
}

// ElementEnabled implements core.Driver.
func (d *Driver) ElementEnabled(elementID string) (bool, error) {
	return d.client.IsElementEnabled(elementID)
}

// Click implements core.Driver.
func (d *Driver) Click(elementID string) error {
	return d.client.ClickElement(elementID)
}

// Clear implements core.Driver.
func (d *Driver) Clear(elementID string) error {
	return d.client.ClearElement(elementID)
}

// TypeInto implements core.Driver.
func (d *Driver) TypeInto(elementID, text string) error {
	return d.client.SendKeysToElement(elementID, text)
}

// Back implements core.Driver.
func (d *Driver) Back() error {
	return d.client.Back()
}

// HideKeyboard implements core.Driver.
func (d *Driver) HideKeyboard() error {
	return d.client.HideKeyboard()
}

// IsKeyboardShown implements core.Driver.
func (d *Driver) IsKeyboardShown() (bool, error) {
	return d.client.IsKeyboardShown()
}

// CurrentActivity implements core.Driver.
func (d *Driver) CurrentActivity() (string, error) {
	return d.client.CurrentActivity()
}

// Orientation implements core.Driver.
func (d *Driver) Orientation() (string, error) {
	return d.client.GetOrientation()
}

// WindowSize implements core.Driver. Falls back to the size captured at connect.
func (d *Driver) WindowSize() (int, int, error) {
	w, h, err := d.client.WindowRect()
	if err != nil {
		if cw, ch := d.client.ScreenSize(); cw > 0 && ch > 0 {
			return cw, ch, nil
		}
		return 0, 0, err
	}
	return w, h, nil
}

// Screenshot implements core.Driver.
func (d *Driver) Screenshot() ([]byte, error) {
	return d.client.Screenshot()
}

// Source implements core.Driver.
func (d *Driver) Source() (string, error) {
	return d.client.Source()
}

// SetImplicitWait implements core.Driver.
func (d *Driver) SetImplicitWait(timeout time.Duration) error {
	return d.client.SetImplicitWait(timeout)
}

// PlatformInfo implements core.Driver.
func (d *Driver) PlatformInfo() *core.PlatformInfo {
	return d.info
}

var _ core.Driver = (*Driver)(nil)
