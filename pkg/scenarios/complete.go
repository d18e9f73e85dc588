package scenarios

import (
	"github.com/devicelab-dev/contacts-runner/pkg/fixture"
	"github.com/devicelab-dev/contacts-runner/pkg/pages"
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
)

// visibleTextLimit bounds the text dump when a contact is not found.
const visibleTextLimit = 10

// CompleteContact saves a contact through the unsaved-changes dialog and
// searches for it.
func CompleteContact() []suite.Scenario {
	return []suite.Scenario{
		{
			Class:       ClassComplete,
			Name:        "testCreateAndSaveContact",
			Priority:    1,
			Description: "Create and save a new contact successfully",
			Func:        testCreateAndSaveContact,
		},
		{
			Class:       ClassComplete,
			Name:        "testSearchCreatedContact",
			Priority:    2,
			Description: "Test contact search functionality",
			Func:        testSearchCreatedContact,
		},
	}
}

func testCreateAndSaveContact(t *suite.T) {
	t.Log("Starting complete contact creation test")
	t.Screenshot("initial_contacts_screen")

	page := t.Page()
	c := t.Contact(fixture.JaneSmith)

	fail := func(err error) {
		t.Log("Error during complete contact test: %v", err)
		t.Screenshot("test_error")
		t.Fatal(err)
	}

	if err := page.ClickAddContact(); err != nil {
		fail(err)
	}
	t.Log("Clicked Create contact button")
	t.Settle()
	t.Screenshot("contact_form_opened")

	if err := page.EnterFirstName(c.FirstName); err != nil {
		fail(err)
	}
	t.Log("Entered first name: %s", c.FirstName)
	t.Screenshot("first_name_entered")

	if err := page.EnterLastName(c.LastName); err != nil {
		t.Log("Last name field not found or not needed")
	} else {
		t.Log("Entered last name: %s", c.LastName)
		t.Screenshot("last_name_entered")
	}

	if err := page.SaveFromDiscardDialog(t.Context()); err != nil {
		fail(err)
	}
	t.Settle()
	t.Log("Contact saved: %s", c.FullName())
	t.Screenshot("contact_saved")

	if text, err := page.OpenContact(c.FirstName); err == nil {
		t.Log("SUCCESS: Contact found in list: %s", text)
		t.Settle()
		t.Screenshot("contact_details_view")
	} else {
		t.Log("Contact not immediately visible, checking all text elements")
		texts, terr := page.VisibleTexts(pages.ClassTextView, visibleTextLimit)
		if terr != nil {
			t.Warning("Could not list visible texts: %v", terr)
		}
		for i, text := range texts {
			t.Log("Visible text %d: %s", i, text)
		}
	}

	t.Screenshot("complete_contact_test_finished")
	t.Log("Complete contact creation test finished")
}

func testSearchCreatedContact(t *suite.T) {
	t.Log("Testing search functionality for created contact")
	t.Screenshot("search_test_start")

	page := t.Page()
	name := t.Contact(fixture.JaneSmith).FirstName

	if !page.SearchContact(name) {
		t.Log("Search functionality not available")
		t.Screenshot("search_error")
	} else {
		t.Log("Entered search term: %s", name)
		t.Settle()
		t.Screenshot("search_results")

		if page.IsContactDisplayed(name) {
			t.Log("Search result found: %s", name)
			t.Screenshot("search_successful")
		} else {
			t.Log("No search results found for '%s'", name)
			t.Screenshot("no_search_results")
		}
	}

	t.Screenshot("search_test_complete")
	t.Log("Search test completed")
}
