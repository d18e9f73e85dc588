package scenarios

import (
	"github.com/devicelab-dev/contacts-runner/pkg/fixture"
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
	"github.com/stretchr/testify/require"
)

// Contacts covers launch, create, lookup, search and navigation.
func Contacts() []suite.Scenario {
	return []suite.Scenario{
		{
			Class:       ClassContacts,
			Name:        "testContactsAppLaunch",
			Priority:    1,
			Description: "Verify Contacts app opens successfully",
			Func:        testContactsAppLaunch,
		},
		{
			Class:       ClassContacts,
			Name:        "testCreateContact",
			Priority:    2,
			Description: "Create a new contact with basic information",
			Func:        testCreateContact,
		},
		{
			Class:       ClassContacts,
			Name:        "testVerifyContactExists",
			Priority:    3,
			Description: "Verify created contact appears in contacts list",
			Func:        testVerifyContactExists,
		},
		{
			Class:       ClassContacts,
			Name:        "testSearchContact",
			Priority:    4,
			Description: "Test search functionality in contacts",
			Func:        testSearchContact,
		},
		{
			Class:       ClassContacts,
			Name:        "testContactsNavigation",
			Priority:    5,
			Description: "Navigate through contacts app to test basic functionality",
			Func:        testContactsNavigation,
		},
	}
}

func testContactsAppLaunch(t *suite.T) {
	require.True(t, t.Page().IsContactsPageDisplayed(), "Contacts page should be displayed")
	t.Log("Contacts app launched successfully")
}

func testCreateContact(t *suite.T) {
	c := t.Contact(fixture.JohnDoe)

	require.NoError(t, t.Page().CreateContact(t.Context(), c))
	t.Log("Contact created: %s", c.FullName())
	t.Screenshot("contact_created")
}

func testVerifyContactExists(t *suite.T) {
	name := t.Contact(fixture.JohnDoe).FullName()

	exists := t.Page().IsContactDisplayed(name)
	t.Log("Contact exists in list: %t", exists)
	t.Screenshot("contacts_list")
}

func testSearchContact(t *suite.T) {
	term := t.Contact(fixture.JohnDoe).FirstName

	worked := t.Page().SearchContact(term)
	t.Log("Search functionality test completed. Search worked: %t", worked)
	t.Screenshot("search_results")
}

func testContactsNavigation(t *suite.T) {
	requireContactsActivity(t)
	t.Screenshot("contacts_navigation_test")
}
