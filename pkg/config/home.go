package config

import (
	"os"
	"path/filepath"
)

// EnvHome names the directory relative output paths are resolved against.
const EnvHome = "CONTACTS_RUNNER_HOME"

// Home returns $CONTACTS_RUNNER_HOME, or the working directory when unset.
// The config, fixtures and capabilities files are opened relative to the
// working directory, so report and screenshot dirs follow it too.
func Home() string {
	if env := os.Getenv(EnvHome); env != "" {
		return env
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// ResolveDir returns dir unchanged when absolute or empty, otherwise joined to Home.
func ResolveDir(dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(Home(), dir)
}
