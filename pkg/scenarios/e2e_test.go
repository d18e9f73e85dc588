//go:build e2e

package scenarios

import (
	"context"
	"os"
	"testing"

	"github.com/devicelab-dev/contacts-runner/pkg/config"
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
	"github.com/stretchr/testify/require"
)

// TestE2E runs every scenario against a real device. The configuration file
// defaults to config/config.properties and can be overridden with
// CONTACTS_CONFIG_FILE.
func TestE2E(t *testing.T) {
	path := os.Getenv("CONTACTS_CONFIG_FILE")
	if path == "" {
		path = "../../config/config.properties"
	}

	props, err := config.Load(path)
	require.NoError(t, err)
	settings, err := props.Settings()
	require.NoError(t, err)

	r, err := suite.New(suite.Config{Settings: settings})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), All())
	require.NoError(t, err)
	t.Logf("report: %s", res.ReportPath)

	for _, f := range res.Failures() {
		t.Errorf("%s.%s %s: %s", f.Class, f.Name, f.Status, f.Error)
	}
}
