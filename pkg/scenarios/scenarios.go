// Package scenarios holds the Contacts app test scenarios, registered in
// class and priority order.
package scenarios

import (
	"strings"

	"github.com/devicelab-dev/contacts-runner/pkg/suite"
)

// Scenario classes.
const (
	ClassContacts     = "ContactsTest"
	ClassCreate       = "CreateContactTest"
	ClassComplete     = "CompleteContactTest"
	ClassExploration  = "ContactsExplorationTest"
	ClassConnectivity = "DeviceConnectivityTest"
)

// All returns every scenario in run order.
func All() []suite.Scenario {
	var all []suite.Scenario
	for _, class := range [][]suite.Scenario{
		Contacts(),
		CreateContact(),
		CompleteContact(),
		Exploration(),
		Connectivity(),
	} {
		all = append(all, class...)
	}
	return all
}

// inContactsApp reports whether activity belongs to the contacts app.
func inContactsApp(activity string) bool {
	a := strings.ToLower(activity)
	return strings.Contains(a, "contacts") || strings.Contains(a, "people")
}

// requireContactsActivity logs the current activity and stops the scenario
// unless it belongs to the contacts app.
func requireContactsActivity(t *suite.T) string {
	activity, err := t.Page().CurrentActivity()
	if err != nil {
		t.Fatal(err)
	}
	t.Log("Current activity: %s", activity)
	if !inContactsApp(activity) {
		t.Fatalf("Should be in contacts app, current activity is %s", activity)
	}
	return activity
}
