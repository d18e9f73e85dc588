// Package mock provides an in-memory Appium backend for testing without a real device.
//
// Server speaks the subset of W3C WebDriver + Appium endpoints used by the
// appium client and renders a small model of the Google Contacts app: the
// contact list, the editor, the discard dialog, search and contact details.
package mock

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// 1x1 transparent PNG
const pngPixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// Config configures mock backend behavior.
type Config struct {
	// HideResourceIDs strips resource-ids so id locators miss and fallbacks run.
	HideResourceIDs bool
	// FailSessions rejects every POST /session.
	FailSessions bool
	// FailClickOn makes clicks on elements with this text, content-desc or
	// resource-id suffix fail after the element was found.
	FailClickOn []string
	// Contacts seeds the address book.
	Contacts []Contact

	PlatformVersion string
	DeviceID        string
	ScreenWidth     int
	ScreenHeight    int
}

type session struct {
	id       string
	caps     map[string]interface{}
	app      appState
	implicit time.Duration
	settings map[string]interface{}
	elements map[string]string // element id -> node key
}

// Server is a fake Appium server backed by httptest.
type Server struct {
	cfg  Config
	http *httptest.Server

	mu       sync.Mutex
	contacts []Contact
	sessions map[string]*session
	created  int
	elemSeq  int
}

// NewServer starts a fake backend listening on a loopback port.
func NewServer(cfg Config) *Server {
	if cfg.PlatformVersion == "" {
		cfg.PlatformVersion = "14"
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = "emulator-5554"
	}
	if cfg.ScreenWidth == 0 || cfg.ScreenHeight == 0 {
		cfg.ScreenWidth, cfg.ScreenHeight = 1080, 2400
	}
	s := &Server{
		cfg:      cfg,
		contacts: append([]Contact(nil), cfg.Contacts...),
		sessions: make(map[string]*session),
	}
	s.http = httptest.NewServer(s.Handler())
	return s
}

// URL returns the base URL of the fake server.
func (s *Server) URL() string {
	return s.http.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.http.Close()
}

// Contacts returns a copy of the address book.
func (s *Server) Contacts() []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Contact(nil), s.contacts...)
}

// ActiveSessions returns the number of open sessions.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SessionsCreated returns how many sessions were opened in total.
func (s *Server) SessionsCreated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// Handler returns the HTTP routes of the fake server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /session", s.handleNewSession)
	mux.HandleFunc("DELETE /session/{sid}", s.withSession(s.handleDeleteSession))

	mux.HandleFunc("POST /session/{sid}/timeouts", s.withSession(s.handleTimeouts))
	mux.HandleFunc("POST /session/{sid}/appium/settings", s.withSession(s.handleSettings))
	mux.HandleFunc("GET /session/{sid}/window/rect", s.withSession(s.handleWindowRect))
	mux.HandleFunc("GET /session/{sid}/orientation", s.withSession(func(w http.ResponseWriter, _ *http.Request, _ *session) {
		writeValue(w, "PORTRAIT")
	}))
	mux.HandleFunc("POST /session/{sid}/back", s.withSession(func(w http.ResponseWriter, _ *http.Request, sess *session) {
		s.back(&sess.app)
		writeValue(w, nil)
	}))
	mux.HandleFunc("GET /session/{sid}/appium/device/current_activity", s.withSession(func(w http.ResponseWriter, _ *http.Request, sess *session) {
		writeValue(w, sess.app.screen.activity())
	}))
	mux.HandleFunc("GET /session/{sid}/appium/device/is_keyboard_shown", s.withSession(func(w http.ResponseWriter, _ *http.Request, sess *session) {
		writeValue(w, sess.app.keyboard)
	}))
	mux.HandleFunc("POST /session/{sid}/appium/device/hide_keyboard", s.withSession(s.handleHideKeyboard))
	mux.HandleFunc("GET /session/{sid}/screenshot", s.withSession(func(w http.ResponseWriter, _ *http.Request, _ *session) {
		writeValue(w, pngPixel)
	}))
	mux.HandleFunc("GET /session/{sid}/source", s.withSession(func(w http.ResponseWriter, _ *http.Request, sess *session) {
		writeValue(w, pageSource(s.render(&sess.app)))
	}))

	mux.HandleFunc("POST /session/{sid}/element", s.withSession(s.handleFindElement))
	mux.HandleFunc("POST /session/{sid}/elements", s.withSession(s.handleFindElements))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/click", s.withElement(s.handleClick))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/clear", s.withElement(func(w http.ResponseWriter, _ *http.Request, sess *session, n *node) {
		if err := s.clear(&sess.app, n); err != nil {
			writeError(w, http.StatusBadRequest, "invalid element state", err.Error())
			return
		}
		writeValue(w, nil)
	}))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/value", s.withElement(s.handleValue))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/text", s.withElement(func(w http.ResponseWriter, _ *http.Request, _ *session, n *node) {
		writeValue(w, n.text)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/attribute/{name}", s.withElement(func(w http.ResponseWriter, r *http.Request, _ *session, n *node) {
		if v, ok := n.attr(r.PathValue("name")); ok {
			writeValue(w, v)
			return
		}
		writeValue(w, nil)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/displayed", s.withElement(func(w http.ResponseWriter, _ *http.Request, _ *session, _ *node) {
		writeValue(w, true)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/enabled", s.withElement(func(w http.ResponseWriter, _ *http.Request, _ *session, _ *node) {
		writeValue(w, true)
	}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "unknown command", r.Method+" "+r.URL.Path+" is not supported by the mock backend")
	})
	return mux
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)
type elementHandler func(w http.ResponseWriter, r *http.Request, sess *session, n *node)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		sess, ok := s.sessions[r.PathValue("sid")]
		if !ok {
			writeError(w, http.StatusNotFound, "invalid session id", "session "+r.PathValue("sid")+" does not exist")
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) withElement(h elementHandler) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, sess *session) {
		key, ok := sess.elements[r.PathValue("eid")]
		if !ok {
			writeError(w, http.StatusNotFound, "no such element", "unknown element "+r.PathValue("eid"))
			return
		}
		for _, n := range s.render(&sess.app) {
			if n.key == key {
				h(w, r, sess, n)
				return
			}
		}
		writeError(w, http.StatusNotFound, "stale element reference", "element "+r.PathValue("eid")+" is no longer attached to the page")
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeValue(w, map[string]interface{}{
		"ready":   true,
		"message": "The server is ready to accept new connections",
		"build":   map[string]interface{}{"version": "mock"},
	})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Capabilities struct {
			AlwaysMatch map[string]interface{} `json:"alwaysMatch"`
		} `json:"capabilities"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	caps := body.Capabilities.AlwaysMatch

	if s.cfg.FailSessions {
		writeError(w, http.StatusInternalServerError, "session not created", "Could not find a connected Android device")
		return
	}
	if pkg, ok := caps["appium:appPackage"].(string); ok && pkg != AppPackage {
		writeError(w, http.StatusInternalServerError, "session not created", fmt.Sprintf("App package '%s' is not installed", pkg))
		return
	}

	s.mu.Lock()
	sess := &session{
		id:       uuid.NewString(),
		caps:     caps,
		app:      appState{screen: screenList},
		elements: make(map[string]string),
	}
	s.sessions[sess.id] = sess
	s.created++
	s.mu.Unlock()

	returned := make(map[string]interface{}, len(caps)+3)
	for k, v := range caps {
		returned[k] = v
	}
	returned["platformName"] = "Android"
	returned["platformVersion"] = s.cfg.PlatformVersion
	returned["deviceUDID"] = s.cfg.DeviceID

	writeValue(w, map[string]interface{}{
		"sessionId":    sess.id,
		"capabilities": returned,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, _ *http.Request, sess *session) {
	delete(s.sessions, sess.id)
	writeValue(w, nil)
}

func (s *Server) handleTimeouts(w http.ResponseWriter, r *http.Request, sess *session) {
	var body struct {
		Implicit *int64 `json:"implicit"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	if body.Implicit != nil {
		sess.implicit = time.Duration(*body.Implicit) * time.Millisecond
	}
	writeValue(w, nil)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, sess *session) {
	var body struct {
		Settings map[string]interface{} `json:"settings"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	sess.settings = lo.Assign(sess.settings, body.Settings)
	writeValue(w, nil)
}

func (s *Server) handleWindowRect(w http.ResponseWriter, _ *http.Request, _ *session) {
	writeValue(w, map[string]interface{}{
		"x": 0, "y": 0, "width": s.cfg.ScreenWidth, "height": s.cfg.ScreenHeight,
	})
}

func (s *Server) handleHideKeyboard(w http.ResponseWriter, _ *http.Request, sess *session) {
	if !sess.app.keyboard {
		writeError(w, http.StatusInternalServerError, "unknown error", "Soft keyboard not present, cannot hide keyboard")
		return
	}
	sess.app.keyboard = false
	writeValue(w, true)
}

type findRequest struct {
	Using string `json:"using"`
	Value string `json:"value"`
}

func (s *Server) handleFindElement(w http.ResponseWriter, r *http.Request, sess *session) {
	var req findRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	nodes, err := s.find(sess, req.Using, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid selector", err.Error())
		return
	}
	if len(nodes) == 0 {
		writeError(w, http.StatusNotFound, "no such element", "An element could not be located on the page using the given search parameters.")
		return
	}
	writeValue(w, map[string]interface{}{w3cElementKey: s.register(sess, nodes[0])})
}

func (s *Server) handleFindElements(w http.ResponseWriter, r *http.Request, sess *session) {
	var req findRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	nodes, err := s.find(sess, req.Using, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid selector", err.Error())
		return
	}
	refs := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		refs = append(refs, map[string]interface{}{w3cElementKey: s.register(sess, n)})
	}
	writeValue(w, refs)
}

func (s *Server) handleClick(w http.ResponseWriter, _ *http.Request, sess *session, n *node) {
	if s.clickFails(n) {
		writeError(w, http.StatusInternalServerError, "unknown error", "injected click failure on "+n.key)
		return
	}
	if err := s.click(&sess.app, n); err != nil {
		writeError(w, http.StatusInternalServerError, "unknown error", err.Error())
		return
	}
	writeValue(w, nil)
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request, sess *session, n *node) {
	var body struct {
		Text  string   `json:"text"`
		Value []string `json:"value"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	text := body.Text
	if text == "" {
		text = strings.Join(body.Value, "")
	}
	if err := s.typeInto(&sess.app, n, text); err != nil {
		writeError(w, http.StatusBadRequest, "invalid element state", err.Error())
		return
	}
	writeValue(w, nil)
}

func (s *Server) clickFails(n *node) bool {
	return lo.SomeBy(s.cfg.FailClickOn, func(target string) bool {
		return target != "" && (n.text == target || n.desc == target || strings.HasSuffix(n.resourceID, "/"+target))
	})
}

func (s *Server) register(sess *session, n *node) string {
	s.elemSeq++
	id := fmt.Sprintf("el-%d", s.elemSeq)
	sess.elements[id] = n.key
	return id
}

var uiSelectorCall = regexp.MustCompile(`\.(\w+)\("((?:[^"\\]|\\.)*)"\)`)

// find evaluates a locator against the current screen.
func (s *Server) find(sess *session, strategy, value string) ([]*node, error) {
	nodes := s.render(&sess.app)
	var match func(n *node) bool

	switch strategy {
	case "id":
		match = func(n *node) bool {
			return n.resourceID != "" && (n.resourceID == value || n.resourceID == idPrefix+value)
		}
	case "accessibility id":
		match = func(n *node) bool { return n.desc == value }
	case "class name":
		match = func(n *node) bool { return n.class == value }
	case "xpath":
		return selectXPath(nodes, value)
	case "-android uiautomator":
		calls := uiSelectorCall.FindAllStringSubmatch(value, -1)
		if !strings.HasPrefix(strings.TrimSpace(value), "new UiSelector()") || len(calls) == 0 {
			return nil, fmt.Errorf("unsupported UiSelector %q", value)
		}
		match = func(n *node) bool {
			return lo.EveryBy(calls, func(c []string) bool { return uiSelectorMatch(n, c[1], c[2]) })
		}
	default:
		return nil, fmt.Errorf("unsupported locator strategy %q", strategy)
	}

	return lo.Filter(nodes, func(n *node, _ int) bool { return match(n) }), nil
}

func uiSelectorMatch(n *node, method, arg string) bool {
	switch method {
	case "text":
		return n.text == arg
	case "textContains":
		return strings.Contains(n.text, arg)
	case "description":
		return n.desc == arg
	case "descriptionContains":
		return strings.Contains(n.desc, arg)
	case "resourceId":
		return n.resourceID == arg
	case "className":
		return n.class == arg
	default:
		return false
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func writeValue(w http.ResponseWriter, value interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"value": value})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"value": map[string]interface{}{
			"error":      code,
			"message":    message,
			"stacktrace": "",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
