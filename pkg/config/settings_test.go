package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Defaults(t *testing.T) {
	t.Setenv(EnvHome, "/home/runner")

	s, err := FromMap(map[string]string{}).Settings()
	require.NoError(t, err)

	assert.False(t, s.StartServer)
	assert.Equal(t, "http://127.0.0.1:4723", s.ServerURL)
	assert.Equal(t, DefaultDevice, s.DeviceName)
	assert.Equal(t, DefaultNewCommandTO, s.NewCommandTimeout)
	assert.Equal(t, DefaultImplicitWait, s.ImplicitWait)
	assert.Equal(t, DefaultStartupTimeout, s.StartupTimeout)
	assert.True(t, s.NoReset)
	assert.Equal(t, 1, s.Parallel)
	assert.Equal(t, "/home/runner/reports", s.ReportDir)
	assert.Equal(t, "/home/runner/test-output/screenshots", s.ScreenshotDir)
}

func TestSettings_ServerURL(t *testing.T) {
	s, err := FromMap(map[string]string{
		KeyServerHost:     "10.0.0.5",
		KeyServerPort:     "4800",
		KeyServerBasePath: "wd/hub",
	}).Settings()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:4800/wd/hub", s.ServerURL)

	s, err = FromMap(map[string]string{KeyServerURL: "http://grid:4444"}).Settings()
	require.NoError(t, err)
	assert.Equal(t, "http://grid:4444", s.ServerURL)
}

func TestSettings_InvalidPort(t *testing.T) {
	_, err := FromMap(map[string]string{KeyServerPort: "http"}).Settings()
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	capsFile := writeFile(t, "caps.yaml", `
udid: emulator-5554
appium:language: fr
acceptInsecureCerts: true
`)
	s, err := FromMap(map[string]string{
		KeyNewCommandTO:             "120",
		KeyNoReset:                  "false",
		KeyCapabilitiesFile:         capsFile,
		"caps.autoGrantPermissions": "true",
		"caps.udid":                 "emulator-5556",
	}).Settings()
	require.NoError(t, err)

	caps := s.Capabilities()
	assert.Equal(t, "Android", caps["platformName"])
	assert.Equal(t, "UiAutomator2", caps["appium:automationName"])
	assert.Equal(t, DefaultAppPackage, caps["appium:appPackage"])
	assert.Equal(t, DefaultAppActivity, caps["appium:appActivity"])
	assert.Equal(t, 120, caps["appium:newCommandTimeout"])
	assert.Equal(t, false, caps["appium:noReset"])
	assert.Equal(t, true, caps["appium:autoGrantPermissions"])
	assert.Equal(t, "fr", caps["appium:language"])
	assert.Equal(t, true, caps["acceptInsecureCerts"])
	// caps.* wins over the capabilities file
	assert.Equal(t, "emulator-5556", caps["appium:udid"])
}

func TestSettings_DurationKeys(t *testing.T) {
	s, err := FromMap(map[string]string{
		KeyImplicitWait:  "0",
		KeyServerStartup: "45s",
	}).Settings()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), s.ImplicitWait)
	assert.Equal(t, 45*time.Second, s.StartupTimeout)
}

func TestParseScalar(t *testing.T) {
	assert.Equal(t, true, parseScalar("true"))
	assert.Equal(t, 42, parseScalar("42"))
	assert.Equal(t, 1.5, parseScalar("1.5"))
	assert.Equal(t, "t", parseScalar("t"))
	assert.Equal(t, "emulator-5554", parseScalar("emulator-5554"))
}
