package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Properties(t *testing.T) {
	path := writeFile(t, "config.properties", `
# appium
start.appium.server=true
device.name=Pixel_7
appium.port=4800
`)

	props, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, props.Path())
	assert.True(t, props.Bool(KeyStartServer))
	assert.Equal(t, "Pixel_7", props.String(KeyDeviceName))
	port, err := props.Int(KeyServerPort)
	require.NoError(t, err)
	assert.Equal(t, 4800, port)
}

func TestLoad_DollarValuesAreLiteral(t *testing.T) {
	t.Setenv("HOME_APK", "expanded")
	path := writeFile(t, "config.properties", `
app.activity=com.example.Main$Alias
caps.app=/tmp/$HOME_APK/app.apk
report.tester=${USER}
`)

	props, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "com.example.Main$Alias", props.String(KeyAppActivity))
	assert.Equal(t, "${USER}", props.String(KeyTester))
	assert.Equal(t, map[string]string{"app": "/tmp/$HOME_APK/app.apk"}, props.WithPrefix("caps."))
}

func TestLoad_PropertiesSyntax(t *testing.T) {
	path := writeFile(t, "config.properties", `
! bang comments too
device.name : Pixel_7
app.package   com.google.android.contacts
`)

	props, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Pixel_7", props.String(KeyDeviceName))
	assert.Equal(t, "com.google.android.contacts", props.String(KeyAppPackage))
}

func TestLoadEnvFile(t *testing.T) {
	const fromFile, preset = "CONTACTS_ENVFILE_DEVICE", "CONTACTS_ENVFILE_PRESET"
	t.Cleanup(func() { os.Unsetenv(fromFile) })
	t.Setenv(preset, "from-shell")

	path := writeFile(t, ".env", fromFile+"=from-dotenv\n"+preset+"=from-dotenv\n")
	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "from-dotenv", os.Getenv(fromFile))
	assert.Equal(t, "from-shell", os.Getenv(preset))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}

func TestLoad_YAMLIsFlattened(t *testing.T) {
	path := writeFile(t, "config.yaml", `
start:
  appium:
    server: false
device:
  name: emulator-5556
parallel: 2
`)

	props, err := Load(path)
	require.NoError(t, err)

	assert.False(t, props.Bool(KeyStartServer))
	assert.Equal(t, "emulator-5556", props.String(KeyDeviceName))
	assert.Equal(t, "2", props.String(KeyParallel))
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.properties"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBool_OnlyTrueIsTrue(t *testing.T) {
	props := FromMap(map[string]string{
		"a": "TRUE",
		"b": "yes",
		"c": "1",
		"d": " true ",
	})

	assert.True(t, props.Bool("a"))
	assert.False(t, props.Bool("b"))
	assert.False(t, props.Bool("c"))
	assert.True(t, props.Bool("d"))
	assert.False(t, props.Bool("missing"))
	assert.True(t, props.BoolOr("missing", true))
}

func TestInt_Errors(t *testing.T) {
	props := FromMap(map[string]string{"n": "abc"})

	_, err := props.Int("n")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = props.Int("missing")
	assert.ErrorIs(t, err, core.ErrMissingRequired)

	n, err := props.IntOr("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestDurationOr(t *testing.T) {
	props := FromMap(map[string]string{
		"secs":  "15",
		"units": "250ms",
		"bad":   "soon",
	})

	d, err := props.DurationOr("secs", 0)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	d, err = props.DurationOr("units", 0)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = props.DurationOr("missing", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	_, err = props.DurationOr("bad", 0)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestEnvOverride(t *testing.T) {
	props := FromMap(map[string]string{KeyDeviceName: "from-file"})
	t.Setenv("CONTACTS_DEVICE_NAME", "from-env")

	assert.Equal(t, "CONTACTS_DEVICE_NAME", EnvName(KeyDeviceName))
	assert.Equal(t, "from-env", props.String(KeyDeviceName))

	props.Set(KeyDeviceName, "from-flag")
	assert.Equal(t, "from-flag", props.String(KeyDeviceName))
}

func TestWithPrefixAndKeys(t *testing.T) {
	props := FromMap(map[string]string{
		"caps.udid":     "emulator-5554",
		"caps.language": "en",
		"device.name":   "x",
	})

	assert.Equal(t, map[string]string{"udid": "emulator-5554", "language": "en"}, props.WithPrefix("caps."))
	assert.Equal(t, []string{"caps.language", "caps.udid", "device.name"}, props.Keys())
}
