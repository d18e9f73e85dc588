// Package config handles configuration for contacts-runner.
//
// The primary format is a Java-style properties file (config.properties):
//
//	start.appium.server=true
//	device.name=emulator-5554
//	caps.udid=emulator-5554
//
// Values are taken literally; "$" and "${...}" are never expanded.
// YAML files are accepted too and flattened into the same dotted key space.
// A .env file can export CONTACTS_* overrides into the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the runner looks for configuration when --config is not given.
const DefaultPath = "config/config.properties"

// envPrefix namespaces environment overrides: device.name -> CONTACTS_DEVICE_NAME.
const envPrefix = "CONTACTS_"

// Properties is the loaded key/value configuration.
type Properties struct {
	path      string
	values    map[string]string
	overrides map[string]string // Set values; they win over the environment
}

// Load loads configuration from a file. A missing file is an error.
func Load(path string) (*Properties, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		logger.Error("Failed to load configuration %s: %v", path, err)
		return nil, core.ErrInvalidConfig.
			WithMessage("configuration file not found: " + path).
			WithCause(err)
	}

	var values map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		values, err = parseYAML(data)
	default:
		values, err = parseProperties(data)
	}
	if err != nil {
		return nil, core.ErrInvalidConfig.
			WithMessage("cannot parse configuration " + path).
			WithCause(err)
	}

	logger.Info("Configuration loaded from %s (%d keys)", path, len(values))
	return &Properties{path: path, values: values}, nil
}

// FromMap builds Properties from an in-memory map.
func FromMap(values map[string]string) *Properties {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Properties{values: cp}
}

func parseProperties(data []byte) (map[string]string, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

// LoadEnvFile exports the KEY=VALUE pairs of a dotenv file into the process
// environment. Variables that are already set keep their value. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return core.ErrInvalidConfig.
			WithMessage("cannot load env file " + path).
			WithCause(err)
	}
	logger.Debug("Environment loaded from %s", path)
	return nil
}

// parseYAML flattens nested YAML maps into dotted keys.
func parseYAML(data []byte) (map[string]string, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", raw, out)
	return out, nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Path returns the file the properties were loaded from.
func (p *Properties) Path() string {
	return p.path
}

// Set overrides a key in memory. CLI flags use it, so it wins over both the
// environment and the file.
func (p *Properties) Set(key, value string) {
	if p.overrides == nil {
		p.overrides = make(map[string]string)
	}
	p.overrides[key] = value
	p.values[key] = value
}

// Get returns the value for key: Set values first, then environment
// overrides, then the file.
func (p *Properties) Get(key string) (string, bool) {
	if v, ok := p.overrides[key]; ok {
		return v, true
	}
	if v, ok := os.LookupEnv(EnvName(key)); ok {
		return v, true
	}
	v, ok := p.values[key]
	return v, ok
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return envPrefix + strings.ToUpper(r.Replace(key))
}

// String returns the value for key, or "" with a warning when missing.
func (p *Properties) String(key string) string {
	v, ok := p.Get(key)
	if !ok {
		logger.Warn("Property not found: %s", key)
	}
	return v
}

// StringOr returns the value for key or def when missing or empty.
func (p *Properties) StringOr(key, def string) string {
	if v, ok := p.Get(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Bool returns true only when the value equals "true", ignoring case.
func (p *Properties) Bool(key string) bool {
	v, _ := p.Get(key)
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// BoolOr is Bool with a default for missing keys.
func (p *Properties) BoolOr(key string, def bool) bool {
	if _, ok := p.Get(key); !ok {
		return def
	}
	return p.Bool(key)
}

// Int parses the value for key as an integer.
func (p *Properties) Int(key string) (int, error) {
	v, ok := p.Get(key)
	if !ok {
		return 0, core.ErrMissingRequired.WithMessage("missing integer property: " + key)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Error("Invalid integer property: %s = %s", key, v)
		return 0, core.ErrInvalidConfig.WithMessage("invalid integer property: " + key).WithCause(err)
	}
	return n, nil
}

// IntOr is Int with a default for missing keys. Malformed values are still errors.
func (p *Properties) IntOr(key string, def int) (int, error) {
	if _, ok := p.Get(key); !ok {
		return def, nil
	}
	return p.Int(key)
}

// DurationOr parses a duration ("10s", "500ms") or a bare number of seconds.
func (p *Properties) DurationOr(key string, def time.Duration) (time.Duration, error) {
	v, ok := p.Get(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, core.ErrInvalidConfig.WithMessage("invalid duration property: " + key).WithCause(err)
	}
	return d, nil
}

// WithPrefix returns every key starting with prefix, with the prefix stripped.
func (p *Properties) WithPrefix(prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range p.values {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

// Keys returns all keys in sorted order.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
