// Package appium implements core.Driver using an Appium server via the W3C WebDriver protocol.
package appium

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
)

// W3C WebDriver element identifier key (standard constant)
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// W3C error codes the runner distinguishes.
const (
	ErrCodeNoSuchElement  = "no such element"
	ErrCodeStaleElement   = "stale element reference"
	ErrCodeInvalidSession = "invalid session id"
)

// WebDriverError is an error payload returned by the server.
type WebDriverError struct {
	HTTPStatus int
	Code       string // W3C error code, e.g. "no such element"
	Message    string
}

func (e *WebDriverError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNoSuchElement reports whether err is a W3C "no such element" error.
func IsNoSuchElement(err error) bool {
	var wd *WebDriverError
	return errors.As(err, &wd) && wd.Code == ErrCodeNoSuchElement
}

// ServerStatus is the value of GET /status.
type ServerStatus struct {
	Ready   bool
	Message string
	Version string
}

// Client handles HTTP communication with the Appium server.
type Client struct {
	serverURL string
	sessionID string
	client    *http.Client
	platform  string // android
	osVersion string
	deviceID  string
	screenW   int
	screenH   int
}

// NewClient creates a new Appium client.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Minute, // session creation installs the UiAutomator2 server
		},
	}
}

// ServerURL returns the endpoint the client talks to.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// SessionID returns the remote session ID, empty when not connected.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Status queries GET /status. It does not need a session.
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	resp, err := c.requestContext(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return nil, err
	}
	st := &ServerStatus{}
	if value, ok := resp["value"].(map[string]interface{}); ok {
		st.Ready, _ = value["ready"].(bool)
		st.Message, _ = value["message"].(string)
		if build, ok := value["build"].(map[string]interface{}); ok {
			st.Version, _ = build["version"].(string)
		}
	}
	return st, nil
}

// Connect creates a new session with the given capabilities.
func (c *Client) Connect(ctx context.Context, capabilities map[string]interface{}) error {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": capabilities,
			"firstMatch":  []interface{}{map[string]interface{}{}},
		},
	}

	resp, err := c.requestContext(ctx, http.MethodPost, "/session", body)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid session response")
	}

	c.sessionID, _ = value["sessionId"].(string)
	if c.sessionID == "" {
		return fmt.Errorf("no session ID in response")
	}

	if caps, ok := value["capabilities"].(map[string]interface{}); ok {
		if platform, ok := caps["platformName"].(string); ok {
			c.platform = strings.ToLower(platform)
		}
		c.osVersion, _ = caps["platformVersion"].(string)
		if c.osVersion == "" {
			c.osVersion, _ = caps["appium:platformVersion"].(string)
		}
		c.deviceID, _ = caps["deviceUDID"].(string)
		if c.deviceID == "" {
			c.deviceID, _ = caps["appium:udid"].(string)
		}
	}

	c.fetchScreenSize()

	// Driver settings passed as a capability are applied right away so the
	// first lookup already runs with them.
	if settings, ok := capabilities["appium:settings"].(map[string]interface{}); ok && len(settings) > 0 {
		_ = c.SetSettings(settings)
	}

	return nil
}

// Disconnect closes the session.
func (c *Client) Disconnect() error {
	if c.sessionID == "" {
		return nil
	}
	_, err := c.delete(c.sessionPath())
	c.sessionID = ""
	return err
}

// Platform returns the platform reported by the server (android).
func (c *Client) Platform() string {
	return c.platform
}

// ScreenSize returns the screen dimensions.
func (c *Client) ScreenSize() (int, int) {
	return c.screenW, c.screenH
}

func (c *Client) fetchScreenSize() {
	w, h, err := c.WindowRect()
	if err != nil {
		return
	}
	c.screenW, c.screenH = w, h
}

// WindowRect returns the current window width and height.
func (c *Client) WindowRect() (int, int, error) {
	resp, err := c.get(c.sessionPath() + "/window/rect")
	if err != nil {
		return 0, 0, err
	}
	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return 0, 0, fmt.Errorf("invalid window rect response")
	}
	w, _ := value["width"].(float64)
	h, _ := value["height"].(float64)
	return int(w), int(h), nil
}

// Element Operations

// FindElement finds a single element.
func (c *Client) FindElement(strategy, value string) (string, error) {
	body := map[string]interface{}{
		"using": strategy,
		"value": value,
	}

	resp, err := c.post(c.sessionPath()+"/element", body)
	if err != nil {
		return "", err
	}

	elemValue, ok := resp["value"].(map[string]interface{})
	if !ok {
		return "", &WebDriverError{Code: ErrCodeNoSuchElement, Message: "empty element response"}
	}

	id := extractElementID(elemValue)
	if id == "" {
		return "", &WebDriverError{Code: ErrCodeNoSuchElement, Message: "no element id in response"}
	}
	return id, nil
}

// FindElements finds multiple elements. No match is an empty slice, not an error.
func (c *Client) FindElements(strategy, value string) ([]string, error) {
	body := map[string]interface{}{
		"using": strategy,
		"value": value,
	}

	resp, err := c.post(c.sessionPath()+"/elements", body)
	if err != nil {
		return nil, err
	}

	values, ok := resp["value"].([]interface{})
	if !ok {
		return nil, nil
	}

	var ids []string
	for _, v := range values {
		if elem, ok := v.(map[string]interface{}); ok {
			if id := extractElementID(elem); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ClickElement clicks an element using the WebDriver standard endpoint.
func (c *Client) ClickElement(elementID string) error {
	_, err := c.post(c.elementPath(elementID)+"/click", map[string]interface{}{})
	return err
}

// ClearElement clears an element's text.
func (c *Client) ClearElement(elementID string) error {
	_, err := c.post(c.elementPath(elementID)+"/clear", map[string]interface{}{})
	return err
}

// SendKeysToElement types text into an element.
func (c *Client) SendKeysToElement(elementID, text string) error {
	chars := make([]string, 0, len(text))
	for _, ch := range text {
		chars = append(chars, string(ch))
	}
	_, err := c.post(c.elementPath(elementID)+"/value", map[string]interface{}{
		"text":  text,
		"value": chars,
	})
	return err
}

// GetElementText returns an element's text.
func (c *Client) GetElementText(elementID string) (string, error) {
	resp, err := c.get(c.elementPath(elementID) + "/text")
	if err != nil {
		return "", err
	}
	text, _ := resp["value"].(string)
	return text, nil
}

// GetElementAttribute returns an element's attribute value.
func (c *Client) GetElementAttribute(elementID, name string) (string, error) {
	resp, err := c.get(c.elementPath(elementID) + "/attribute/" + name)
	if err != nil {
		return "", err
	}
	switch v := resp["value"].(type) {
	case string:
		return v, nil
	case bool:
		return fmt.Sprint(v), nil
	default:
		return "", nil
	}
}

// IsElementDisplayed checks if element is visible.
func (c *Client) IsElementDisplayed(elementID string) (bool, error) {
	resp, err := c.get(c.elementPath(elementID) + "/displayed")
	if err != nil {
		return false, err
	}
	displayed, _ := resp["value"].(bool)
	return displayed, nil
}

// IsElementEnabled checks if element is enabled.
func (c *Client) IsElementEnabled(elementID string) (bool, error) {
	resp, err := c.get(c.elementPath(elementID) + "/enabled")
	if err != nil {
		return false, err
	}
	enabled, _ := resp["value"].(bool)
	return enabled, nil
}

// Device

// Back navigates back (hardware back on Android).
func (c *Client) Back() error {
	_, err := c.post(c.sessionPath()+"/back", map[string]interface{}{})
	return err
}

// HideKeyboard hides the on-screen keyboard.
func (c *Client) HideKeyboard() error {
	_, err := c.post(c.sessionPath()+"/appium/device/hide_keyboard", map[string]interface{}{})
	return err
}

// IsKeyboardShown reports whether the soft keyboard is visible.
func (c *Client) IsKeyboardShown() (bool, error) {
	resp, err := c.get(c.sessionPath() + "/appium/device/is_keyboard_shown")
	if err != nil {
		return false, err
	}
	shown, _ := resp["value"].(bool)
	return shown, nil
}

// CurrentActivity returns the foreground Android activity.
func (c *Client) CurrentActivity() (string, error) {
	resp, err := c.get(c.sessionPath() + "/appium/device/current_activity")
	if err != nil {
		return "", err
	}
	activity, _ := resp["value"].(string)
	return activity, nil
}

// Screen Operations

// Screenshot returns a screenshot as PNG bytes.
func (c *Client) Screenshot() ([]byte, error) {
	resp, err := c.get(c.sessionPath() + "/screenshot")
	if err != nil {
		return nil, err
	}
	encoded, ok := resp["value"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid screenshot response")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Source returns the page source XML.
func (c *Client) Source() (string, error) {
	resp, err := c.get(c.sessionPath() + "/source")
	if err != nil {
		return "", err
	}
	source, _ := resp["value"].(string)
	return source, nil
}

// GetOrientation returns the current orientation (portrait/landscape).
func (c *Client) GetOrientation() (string, error) {
	resp, err := c.get(c.sessionPath() + "/orientation")
	if err != nil {
		return "", err
	}
	orientation, _ := resp["value"].(string)
	return strings.ToLower(orientation), nil
}

// Timeouts

// SetImplicitWait sets the implicit wait timeout.
func (c *Client) SetImplicitWait(timeout time.Duration) error {
	_, err := c.post(c.sessionPath()+"/timeouts", map[string]interface{}{
		"implicit": timeout.Milliseconds(),
	})
	return err
}

// SetSettings updates Appium driver settings.
// For Android UiAutomator2: waitForIdleTimeout, waitForSelectorTimeout
func (c *Client) SetSettings(settings map[string]interface{}) error {
	_, err := c.post(c.sessionPath()+"/appium/settings", map[string]interface{}{
		"settings": settings,
	})
	return err
}

// HTTP Helpers

func (c *Client) sessionPath() string {
	return "/session/" + c.sessionID
}

func (c *Client) elementPath(elementID string) string {
	return c.sessionPath() + "/element/" + elementID
}

func (c *Client) get(path string) (map[string]interface{}, error) {
	return c.requestContext(context.Background(), http.MethodGet, path, nil)
}

func (c *Client) post(path string, body interface{}) (map[string]interface{}, error) {
	return c.requestContext(context.Background(), http.MethodPost, path, body)
}

func (c *Client) delete(path string) (map[string]interface{}, error) {
	return c.requestContext(context.Background(), http.MethodDelete, path, nil)
}

func (c *Client) requestContext(ctx context.Context, method, path string, body interface{}) (map[string]interface{}, error) {
	url := c.serverURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.ErrServerUnreachable.
			WithMessage("could not connect to " + c.serverURL).
			WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response (HTTP %d): %w", resp.StatusCode, err)
	}

	// W3C error payload
	if errValue, ok := result["value"].(map[string]interface{}); ok {
		if errType, ok := errValue["error"].(string); ok && errType != "" {
			msg, _ := errValue["message"].(string)
			return result, &WebDriverError{HTTPStatus: resp.StatusCode, Code: errType, Message: msg}
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return result, &WebDriverError{HTTPStatus: resp.StatusCode, Code: "unknown error", Message: http.StatusText(resp.StatusCode)}
	}

	return result, nil
}

func extractElementID(value map[string]interface{}) string {
	// W3C format
	if id, ok := value[w3cElementKey].(string); ok {
		return id
	}
	// Legacy format
	if id, ok := value["ELEMENT"].(string); ok {
		return id
	}
	return ""
}
