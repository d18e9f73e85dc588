package scenarios

import (
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
	"github.com/stretchr/testify/require"
)

// Connectivity checks that the session answers basic device queries.
func Connectivity() []suite.Scenario {
	return []suite.Scenario{
		{
			Class:       ClassConnectivity,
			Name:        "testDeviceConnectivity",
			Priority:    1,
			Description: "Test basic device connectivity and driver initialization",
			Func:        testDeviceConnectivity,
		},
	}
}

func testDeviceConnectivity(t *suite.T) {
	require.NotNil(t, t.Driver(), "Driver should be initialized")
	page := t.Page()

	activity, err := page.CurrentActivity()
	if err == nil {
		var orientation string
		orientation, err = page.Orientation()
		if err == nil {
			t.Pass("Device connectivity test passed!")
			t.Log("Current Activity: %s", activity)
			t.Log("Device Orientation: %s", orientation)
			t.PassScreenshot("DeviceConnectivity")
			return
		}
	}

	t.Reporter().Fail("Device connectivity test failed: " + err.Error())
	t.FailureScreenshot("DeviceConnectivityFailed")
	t.Fatal(err)
}
