package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Configuration keys.
const (
	KeyStartServer      = "start.appium.server"
	KeyServerURL        = "appium.server.url"
	KeyServerHost       = "appium.host"
	KeyServerPort       = "appium.port"
	KeyServerBinary     = "appium.binary"
	KeyServerBasePath   = "appium.base.path"
	KeyServerStartup    = "appium.startup.timeout"
	KeyPlatformName     = "platform.name"
	KeyDeviceName       = "device.name"
	KeyAutomationName   = "automation.name"
	KeyAppPackage       = "app.package"
	KeyAppActivity      = "app.activity"
	KeyNewCommandTO     = "new.command.timeout"
	KeyNoReset          = "no.reset"
	KeyImplicitWait     = "implicit.wait"
	KeyReportDir        = "report.dir"
	KeyScreenshotDir    = "screenshot.dir"
	KeyReportAllure     = "report.allure"
	KeyEmbedScreenshots = "report.embed.screenshots"
	KeyParallel         = "parallel"
	KeyFixturesFile     = "fixtures.file"
	KeyCapabilitiesFile = "capabilities.file"
	KeyTester           = "report.tester"
	KeyShotOnFailure    = "screenshot.on.failure"
	KeyShotOnSuccess    = "screenshot.on.success"
	KeyPageSource       = "screenshot.page.source"

	capsPrefix = "caps."
)

// Defaults matching the stock emulator setup.
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 4723
	DefaultBinary         = "appium"
	DefaultBasePath       = "/"
	DefaultPlatform       = "Android"
	DefaultDevice         = "emulator-5554"
	DefaultAutomation     = "UiAutomator2"
	DefaultAppPackage     = "com.google.android.contacts"
	DefaultAppActivity    = "com.android.contacts.activities.PeopleActivity"
	DefaultNewCommandTO   = 300 * time.Second
	DefaultImplicitWait   = 10 * time.Second
	DefaultStartupTimeout = 30 * time.Second
	DefaultReportDir      = "reports"
	DefaultScreenshotDir  = "test-output/screenshots"
)

// w3cCaps are the capability names sent without a vendor prefix.
var w3cCaps = []string{
	"platformName", "browserName", "browserVersion", "acceptInsecureCerts",
	"pageLoadStrategy", "proxy", "setWindowRect", "timeouts",
	"strictFileInteractability", "unhandledPromptBehavior", "webSocketUrl",
}

// Settings is the typed view of Properties used by the runner.
type Settings struct {
	StartServer    bool
	ServerURL      string
	ServerHost     string
	ServerPort     int
	ServerBinary   string
	ServerBasePath string
	StartupTimeout time.Duration

	PlatformName      string
	DeviceName        string
	AutomationName    string
	AppPackage        string
	AppActivity       string
	NewCommandTimeout time.Duration
	NoReset           bool
	ImplicitWait      time.Duration

	ReportDir        string
	ScreenshotDir    string
	ReportAllure     bool
	EmbedScreenshots bool
	Tester           string
	Artifacts        core.ArtifactConfig

	Parallel     int
	FixturesFile string

	// ExtraCaps are merged over the derived capabilities (capabilities.file, then caps.*).
	ExtraCaps map[string]interface{}
}

// Settings derives the typed settings, applying defaults for missing keys.
func (p *Properties) Settings() (*Settings, error) {
	art := core.DefaultArtifactConfig()
	s := &Settings{
		StartServer:      p.Bool(KeyStartServer),
		ServerHost:       p.StringOr(KeyServerHost, DefaultHost),
		ServerBinary:     p.StringOr(KeyServerBinary, DefaultBinary),
		ServerBasePath:   p.StringOr(KeyServerBasePath, DefaultBasePath),
		PlatformName:     p.StringOr(KeyPlatformName, DefaultPlatform),
		DeviceName:       p.StringOr(KeyDeviceName, DefaultDevice),
		AutomationName:   p.StringOr(KeyAutomationName, DefaultAutomation),
		AppPackage:       p.StringOr(KeyAppPackage, DefaultAppPackage),
		AppActivity:      p.StringOr(KeyAppActivity, DefaultAppActivity),
		NoReset:          p.BoolOr(KeyNoReset, true),
		ReportDir:        ResolveDir(p.StringOr(KeyReportDir, DefaultReportDir)),
		ScreenshotDir:    ResolveDir(p.StringOr(KeyScreenshotDir, DefaultScreenshotDir)),
		ReportAllure:     p.Bool(KeyReportAllure),
		EmbedScreenshots: p.BoolOr(KeyEmbedScreenshots, true),
		Tester:           p.StringOr(KeyTester, os.Getenv("USER")),
		FixturesFile:     p.StringOr(KeyFixturesFile, ""),
		ExtraCaps:        make(map[string]interface{}),
		Artifacts: core.ArtifactConfig{
			CaptureOnFailure: p.BoolOr(KeyShotOnFailure, art.CaptureOnFailure),
			CaptureOnSuccess: p.BoolOr(KeyShotOnSuccess, art.CaptureOnSuccess),
			PageSource:       p.BoolOr(KeyPageSource, art.PageSource),
		},
	}

	var err error
	if s.ServerPort, err = p.IntOr(KeyServerPort, DefaultPort); err != nil {
		return nil, err
	}
	if s.Parallel, err = p.IntOr(KeyParallel, 1); err != nil {
		return nil, err
	}
	if s.Parallel < 1 {
		s.Parallel = 1
	}
	if s.StartupTimeout, err = p.DurationOr(KeyServerStartup, DefaultStartupTimeout); err != nil {
		return nil, err
	}
	if s.NewCommandTimeout, err = p.DurationOr(KeyNewCommandTO, DefaultNewCommandTO); err != nil {
		return nil, err
	}
	if s.ImplicitWait, err = p.DurationOr(KeyImplicitWait, DefaultImplicitWait); err != nil {
		return nil, err
	}

	s.ServerURL = p.StringOr(KeyServerURL, "")
	if s.ServerURL == "" {
		s.ServerURL = BuildServerURL(s.ServerHost, s.ServerPort, s.ServerBasePath)
	}

	if file := p.StringOr(KeyCapabilitiesFile, ""); file != "" {
		caps, err := LoadCapabilities(file)
		if err != nil {
			return nil, err
		}
		for k, v := range caps {
			s.ExtraCaps[k] = v
		}
	}
	for k, v := range p.WithPrefix(capsPrefix) {
		s.ExtraCaps[k] = parseScalar(v)
	}

	return s, nil
}

// BuildServerURL joins host, port and base path into the Appium endpoint.
func BuildServerURL(host string, port int, basePath string) string {
	base := strings.TrimSuffix(basePath, "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return fmt.Sprintf("http://%s:%d%s", host, port, base)
}

// Capabilities returns the W3C capability set for a new session.
// Non-standard names are sent with the appium: vendor prefix.
func (s *Settings) Capabilities() map[string]interface{} {
	caps := map[string]interface{}{
		"platformName":             s.PlatformName,
		"appium:deviceName":        s.DeviceName,
		"appium:automationName":    s.AutomationName,
		"appium:appPackage":        s.AppPackage,
		"appium:appActivity":       s.AppActivity,
		"appium:newCommandTimeout": int(s.NewCommandTimeout / time.Second),
		"appium:noReset":           s.NoReset,
	}
	for k, v := range s.ExtraCaps {
		caps[capabilityName(k)] = v
	}
	return caps
}

func capabilityName(name string) string {
	if strings.Contains(name, ":") || lo.Contains(w3cCaps, name) {
		return name
	}
	return "appium:" + name
}

// LoadCapabilities reads a YAML (or JSON, a YAML subset) capability map.
func LoadCapabilities(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided capabilities file
	if err != nil {
		return nil, core.ErrInvalidConfig.
			WithMessage("capabilities file not found: " + path).
			WithCause(err)
	}
	caps := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &caps); err != nil {
		return nil, core.ErrInvalidConfig.
			WithMessage("cannot parse capabilities file " + path).
			WithCause(err)
	}
	return caps, nil
}

// parseScalar turns "true", "42" and "1.5" into typed values; everything else stays a string.
func parseScalar(v string) interface{} {
	v = strings.TrimSpace(v)
	if b, err := strconv.ParseBool(v); err == nil && (strings.EqualFold(v, "true") || strings.EqualFold(v, "false")) {
		return b
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
