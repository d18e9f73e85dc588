package scenarios

import (
	"github.com/devicelab-dev/contacts-runner/pkg/fixture"
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
	"github.com/stretchr/testify/require"
)

// CreateContact creates a uniquely named contact and looks it up.
func CreateContact() []suite.Scenario {
	return []suite.Scenario{
		{
			Class:       ClassCreate,
			Name:        "testCreateNewContact",
			Priority:    1,
			Description: "Create a new contact with name and phone number",
			Func:        testCreateNewContact,
		},
		{
			Class:       ClassCreate,
			Name:        "testVerifyContactInList",
			Priority:    2,
			Description: "Verify contacts list shows created contact",
			Func:        testVerifyContactInList,
		},
	}
}

func testCreateNewContact(t *suite.T) {
	t.Log("Starting create contact test")
	page := t.Page()

	requireContactsActivity(t)
	require.True(t, page.IsContactsPageDisplayed(), "Contacts page should be displayed")
	t.Screenshot("contacts_main_before_create")

	c := t.Contact(fixture.Random)
	t.Log("Creating contact: %s", c.FullName())
	if err := page.CreateContact(t.Context(), c); err != nil {
		t.Log("Error during contact creation: %v", err)
		t.Screenshot("contact_creation_error")
		t.Fatal(err)
	}
	t.Screenshot("after_contact_creation")
	t.Log("Contact creation completed successfully")

	if page.IsContactDisplayed(c.FirstName) {
		t.Log("SUCCESS: Contact found in the list: %s", c.FirstName)
		t.Screenshot("contact_found_in_list")
	} else {
		t.Log("Contact not immediately visible: %s", c.FirstName)
		t.Screenshot("contact_not_visible")
	}

	t.Screenshot("create_contact_test_complete")
	t.Log("Create contact test completed")
}

func testVerifyContactInList(t *suite.T) {
	t.Log("Verifying contact appears in contacts list")
	page := t.Page()
	name := t.Contact(fixture.JohnDoe).FirstName

	t.Screenshot("contacts_list_verification")
	switch {
	case page.IsContactDisplayed(name):
		t.Log("SUCCESS: Contact '%s' found in the contacts list", name)
		t.Screenshot("contact_verification_success")
	case page.SearchContact(name):
		t.Log("Contact '%s' not found in the visible contacts list", name)
		t.Log("Initiated search for contact")
		t.Screenshot("after_search_initiated")
	default:
		t.Log("Contact '%s' not found in the visible contacts list", name)
		t.Log("Search functionality not available or failed")
	}

	t.Screenshot("final_contacts_verification")
	t.Log("Contact verification test completed")
}
