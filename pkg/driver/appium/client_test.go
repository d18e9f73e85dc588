package appium

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
)

// writeJSON encodes data as JSON to the response writer.
func writeJSON(w http.ResponseWriter, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// readBody decodes a JSON request body.
func readBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode body %q: %v", data, err)
	}
	return body
}

func newSessionClient(serverURL string) *Client {
	client := NewClient(serverURL)
	client.sessionID = "test-session"
	return client
}

func TestClient_Connect(t *testing.T) {
	var gotCaps map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" && r.Method == "POST" {
			body := readBody(t, r)
			caps, _ := body["capabilities"].(map[string]interface{})
			gotCaps, _ = caps["alwaysMatch"].(map[string]interface{})
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"sessionId": "test-session-123",
					"capabilities": map[string]interface{}{
						"platformName":    "Android",
						"platformVersion": "14",
						"deviceUDID":      "emulator-5554",
					},
				},
			})
			return
		}
		if r.URL.Path == "/session/test-session-123/window/rect" {
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"width":  1080.0,
					"height": 1920.0,
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	err := client.Connect(context.Background(), map[string]interface{}{
		"platformName":      "Android",
		"appium:appPackage": "com.google.android.contacts",
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if client.SessionID() != "test-session-123" {
		t.Errorf("Expected sessionID 'test-session-123', got '%s'", client.SessionID())
	}
	if client.Platform() != "android" {
		t.Errorf("Expected platform 'android', got '%s'", client.Platform())
	}
	if client.osVersion != "14" || client.deviceID != "emulator-5554" {
		t.Errorf("Expected version 14 on emulator-5554, got %q on %q", client.osVersion, client.deviceID)
	}
	if gotCaps["appium:appPackage"] != "com.google.android.contacts" {
		t.Errorf("Capabilities not sent under alwaysMatch: %v", gotCaps)
	}

	w, h := client.ScreenSize()
	if w != 1080 || h != 1920 {
		t.Errorf("Expected screen size 1080x1920, got %dx%d", w, h)
	}
}

func TestClient_ConnectError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]interface{}{
			"value": map[string]interface{}{
				"error":   "session not created",
				"message": "Could not find a connected Android device",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Connect(context.Background(), map[string]interface{}{"platformName": "Android"})
	if err == nil {
		t.Fatal("Expected error")
	}
	var wd *WebDriverError
	if !errors.As(err, &wd) || wd.Code != "session not created" {
		t.Errorf("Expected WebDriverError 'session not created', got %v", err)
	}
	if client.SessionID() != "" {
		t.Errorf("Expected no session ID, got %q", client.SessionID())
	}
}

func TestClient_ConnectAppliesSettings(t *testing.T) {
	var settings map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session":
			writeJSON(w, map[string]interface{}{"value": map[string]interface{}{"sessionId": "s1"}})
		case "/session/s1/appium/settings":
			body := readBody(t, r)
			settings, _ = body["settings"].(map[string]interface{})
			writeJSON(w, map[string]interface{}{"value": nil})
		default:
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]interface{}{"value": map[string]interface{}{"error": "unknown command", "message": r.URL.Path}})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Connect(context.Background(), map[string]interface{}{
		"appium:settings": map[string]interface{}{"waitForIdleTimeout": 0},
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if _, ok := settings["waitForIdleTimeout"]; !ok {
		t.Errorf("Expected settings to be applied, got %v", settings)
	}
}

func TestClient_Disconnect(t *testing.T) {
	deleteCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session" && r.Method == "DELETE" {
			deleteCalled = true
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newSessionClient(server.URL)
	if err := client.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if !deleteCalled {
		t.Error("Expected DELETE to be called")
	}
	if client.SessionID() != "" {
		t.Error("Expected session ID to be cleared")
	}

	// second disconnect is a no-op
	deleteCalled = false
	if err := client.Disconnect(); err != nil || deleteCalled {
		t.Errorf("Expected no-op disconnect, err=%v called=%v", err, deleteCalled)
	}
}

func TestClient_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/status" {
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"ready":   true,
					"message": "The server is ready to accept new connections",
					"build":   map[string]interface{}{"version": "2.11.0"},
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	st, err := NewClient(server.URL).Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !st.Ready || st.Version != "2.11.0" {
		t.Errorf("Unexpected status: %+v", st)
	}
}

func TestClient_ServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url).Status(context.Background())
	if !errors.Is(err, core.ErrServerUnreachable) {
		t.Errorf("Expected ErrServerUnreachable, got %v", err)
	}
}

func TestClient_FindElement(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/element" && r.Method == "POST" {
			body = readBody(t, r)
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					w3cElementKey: "elem-123",
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newSessionClient(server.URL)
	elemID, err := client.FindElement("id", "com.google.android.contacts:id/floating_action_button")
	if err != nil {
		t.Fatalf("FindElement failed: %v", err)
	}
	if elemID != "elem-123" {
		t.Errorf("Expected 'elem-123', got '%s'", elemID)
	}
	if body["using"] != "id" || body["value"] != "com.google.android.contacts:id/floating_action_button" {
		t.Errorf("Unexpected find body: %v", body)
	}
}

func TestClient_FindElementNoSuchElement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{
			"value": map[string]interface{}{
				"error":   "no such element",
				"message": "An element could not be located on the page using the given search parameters.",
			},
		})
	}))
	defer server.Close()

	client := newSessionClient(server.URL)
	_, err := client.FindElement("xpath", "//android.widget.Button")
	if !IsNoSuchElement(err) {
		t.Errorf("Expected no such element error, got %v", err)
	}
}

func TestClient_FindElements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/elements" {
			writeJSON(w, map[string]interface{}{
				"value": []interface{}{
					map[string]interface{}{w3cElementKey: "elem-1"},
					map[string]interface{}{w3cElementKey: "elem-2"},
					map[string]interface{}{"ELEMENT": "elem-3"},
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newSessionClient(server.URL)
	ids, err := client.FindElements("class name", "android.widget.TextView")
	if err != nil {
		t.Fatalf("FindElements failed: %v", err)
	}
	if len(ids) != 3 || ids[2] != "elem-3" {
		t.Errorf("Expected 3 elements, got %v", ids)
	}
}

func TestClient_SendKeysToElement(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/element/e1/value" && r.Method == "POST" {
			body = readBody(t, r)
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newSessionClient(server.URL)
	if err := client.SendKeysToElement("e1", "Jane"); err != nil {
		t.Fatalf("SendKeysToElement failed: %v", err)
	}
	if body["text"] != "Jane" {
		t.Errorf("Expected text 'Jane', got %v", body["text"])
	}
	if chars, _ := body["value"].([]interface{}); len(chars) != 4 {
		t.Errorf("Expected 4 key values, got %v", body["value"])
	}
}

func TestClient_ElementActions(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/session/test-session/element/e1/text":
			writeJSON(w, map[string]interface{}{"value": "Contacts"})
		case "/session/test-session/element/e1/attribute/clickable":
			writeJSON(w, map[string]interface{}{"value": true})
		case "/session/test-session/element/e1/displayed", "/session/test-session/element/e1/enabled":
			writeJSON(w, map[string]interface{}{"value": true})
		default:
			writeJSON(w, map[string]interface{}{"value": nil})
		}
	}))
	defer server.Close()

	client := newSessionClient(server.URL)
	if err := client.ClickElement("e1"); err != nil {
		t.Fatalf("ClickElement failed: %v", err)
	}
	if err := client.ClearElement("e1"); err != nil {
		t.Fatalf("ClearElement failed: %v", err)
	}
	text, _ := client.GetElementText("e1")
	if text != "Contacts" {
		t.Errorf("Expected text 'Contacts', got %q", text)
	}
	attr, _ := client.GetElementAttribute("e1", "clickable")
	if attr != "true" {
		t.Errorf("Expected clickable 'true', got %q", attr)
	}
	displayed, _ := client.IsElementDisplayed("e1")
	enabled, _ := client.IsElementEnabled("e1")
	if !displayed || !enabled {
		t.Errorf("Expected displayed and enabled, got %v %v", displayed, enabled)
	}

	want := []string{
		"POST /session/test-session/element/e1/click",
		"POST /session/test-session/element/e1/clear",
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("request %d = %q, want %q", i, paths[i], p)
		}
	}
}

func TestClient_DeviceCommands(t *testing.T) {
	var backCalled, hideCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/test-session/back":
			backCalled = true
			writeJSON(w, map[string]interface{}{"value": nil})
		case "/session/test-session/appium/device/hide_keyboard":
			hideCalled = true
			writeJSON(w, map[string]interface{}{"value": true})
		case "/session/test-session/appium/device/is_keyboard_shown":
			writeJSON(w, map[string]interface{}{"value": true})
		case "/session/test-session/appium/device/current_activity":
			writeJSON(w, map[string]interface{}{"value": ".activities.PeopleActivity"})
		case "/session/test-session/orientation":
			writeJSON(w, map[string]interface{}{"value": "PORTRAIT"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newSessionClient(server.URL)
	if err := client.Back(); err != nil || !backCalled {
		t.Errorf("Back: err=%v called=%v", err, backCalled)
	}
	if err := client.HideKeyboard(); err != nil || !hideCalled {
		t.Errorf("HideKeyboard: err=%v called=%v", err, hideCalled)
	}
	if shown, _ := client.IsKeyboardShown(); !shown {
		t.Error("Expected keyboard shown")
	}
	if act, _ := client.CurrentActivity(); act != ".activities.PeopleActivity" {
		t.Errorf("Unexpected activity %q", act)
	}
	if o, _ := client.GetOrientation(); o != "portrait" {
		t.Errorf("Expected 'portrait', got %q", o)
	}
}

func TestClient_Screenshot(t *testing.T) {
	pngData := []byte{0x89, 0x50, 0x4E, 0x47}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/screenshot" {
			writeJSON(w, map[string]interface{}{
				"value": base64.StdEncoding.EncodeToString(pngData),
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newSessionClient(server.URL)
	data, err := client.Screenshot()
	if err != nil {
		t.Fatalf("Screenshot failed: %v", err)
	}
	if string(data) != string(pngData) {
		t.Errorf("Screenshot data mismatch")
	}
}

func TestClient_Source(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/source" {
			writeJSON(w, map[string]interface{}{"value": "<hierarchy/>"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source, err := newSessionClient(server.URL).Source()
	if err != nil {
		t.Fatalf("Source failed: %v", err)
	}
	if source != "<hierarchy/>" {
		t.Errorf("Unexpected source %q", source)
	}
}

func TestClient_SetImplicitWait(t *testing.T) {
	var implicit float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/timeouts" {
			body := readBody(t, r)
			implicit, _ = body["implicit"].(float64)
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if err := newSessionClient(server.URL).SetImplicitWait(10 * time.Second); err != nil {
		t.Fatalf("SetImplicitWait failed: %v", err)
	}
	if implicit != 10000 {
		t.Errorf("Expected implicit 10000ms, got %v", implicit)
	}
}

func TestClient_HTTPErrorWithoutPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		writeJSON(w, map[string]interface{}{"value": nil})
	}))
	defer server.Close()

	err := newSessionClient(server.URL).Back()
	var wd *WebDriverError
	if !errors.As(err, &wd) || wd.HTTPStatus != http.StatusBadGateway {
		t.Errorf("Expected WebDriverError with HTTP 502, got %v", err)
	}
}

func TestExtractElementID(t *testing.T) {
	tests := []struct {
		name  string
		value map[string]interface{}
		want  string
	}{
		{"w3c", map[string]interface{}{w3cElementKey: "a"}, "a"},
		{"legacy", map[string]interface{}{"ELEMENT": "b"}, "b"},
		{"empty", map[string]interface{}{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractElementID(tt.value); got != tt.want {
				t.Errorf("extractElementID() = %q, want %q", got, tt.want)
			}
		})
	}
}
