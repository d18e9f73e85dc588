package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHome_EnvVar(t *testing.T) {
	t.Setenv(EnvHome, "/custom/path")
	assert.Equal(t, "/custom/path", Home())

	t.Setenv(EnvHome, "/second")
	assert.Equal(t, "/second", Home())
}

func TestHome_DefaultsToWorkingDir(t *testing.T) {
	t.Setenv(EnvHome, "")
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(prev) })

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, Home())
	assert.Equal(t, filepath.Join(wd, "reports"), ResolveDir("reports"))
}

func TestResolveDir(t *testing.T) {
	t.Setenv(EnvHome, "/base")

	assert.Equal(t, filepath.Join("/base", "reports"), ResolveDir("reports"))
	assert.Equal(t, "/abs/dir", ResolveDir("/abs/dir"))
	assert.Equal(t, "", ResolveDir(""))
}
