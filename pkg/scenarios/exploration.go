package scenarios

import (
	"fmt"

	"github.com/devicelab-dev/contacts-runner/pkg/locator"
	"github.com/devicelab-dev/contacts-runner/pkg/pages"
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
)

var (
	clickableElements = locator.XPath("//*[@clickable='true']")
	textElements      = locator.XPath("//android.widget.TextView")
	buttonElements    = locator.XPath("//android.widget.Button | //android.widget.ImageButton")
	contactItems      = locator.XPath("//android.widget.LinearLayout[contains(@resource-id,'contact')]")

	addButton = locator.XPath("//*[contains(@content-desc,'Create') or contains(@content-desc,'Add')]")
	fabButton = locator.XPath("//android.widget.ImageButton")
	menuItem  = locator.XPath("//*[contains(@content-desc,'menu') or contains(@content-desc,'More')]")
)

const (
	exploreTextLimit   = 5
	interactionButtons = 2
)

// Exploration counts what the main screen shows and taps its first buttons.
func Exploration() []suite.Scenario {
	return []suite.Scenario{
		{
			Class:       ClassExploration,
			Name:        "testContactsAppExploration",
			Priority:    1,
			Description: "Explore Contacts app interface and take screenshots",
			Func:        testContactsAppExploration,
		},
		{
			Class:       ClassExploration,
			Name:        "testBasicContactsInteraction",
			Priority:    2,
			Description: "Test basic interaction with contacts app",
			Func:        testBasicContactsInteraction,
		},
	}
}

func testContactsAppExploration(t *suite.T) {
	t.Log("Starting Contacts app exploration")
	page := t.Page()

	requireContactsActivity(t)
	t.Screenshot("contacts_main_screen")

	if n, err := page.Count(clickableElements); err == nil {
		t.Log("Found %d clickable elements", n)
	}
	if n, err := page.Count(textElements); err == nil {
		t.Log("Found %d text elements", n)
	}
	texts, err := page.VisibleTexts(pages.ClassTextView, exploreTextLimit)
	if err != nil {
		t.Warning("Could not read text elements: %v", err)
	}
	for i, text := range texts {
		t.Log("Text element %d: %s", i, text)
	}

	if desc, ok := contentDesc(t, addButton); ok {
		t.Log("Found add/create button: %s", desc)
		t.Screenshot("found_add_button")
	} else {
		t.Log("No obvious add/create button found")
	}

	if desc, ok := contentDesc(t, fabButton); ok {
		t.Log("Found potential FAB button: %s", desc)
		t.Screenshot("found_fab")
	} else {
		t.Log("No FAB found")
	}

	if desc, ok := contentDesc(t, menuItem); ok {
		t.Log("Found menu option: %s", desc)
	} else {
		t.Log("No obvious menu found")
	}

	if n, err := page.Count(contactItems); err == nil {
		t.Log("Found %d potential contact items", n)
	} else {
		t.Log("Could not find contact items with standard locator")
	}

	t.Screenshot("contacts_exploration_complete")
	t.Log("Contacts app exploration completed successfully")
}

// contentDesc returns the content-desc of the first element matching l.
func contentDesc(t *suite.T, l locator.Locator) (string, bool) {
	drv := t.Driver()
	id, err := drv.FindElement(string(l.Strategy), l.Value)
	if err != nil {
		return "", false
	}
	desc, err := drv.ElementAttribute(id, "content-desc")
	if err != nil {
		return "", false
	}
	return desc, true
}

func testBasicContactsInteraction(t *suite.T) {
	t.Log("Testing basic interactions")
	t.Screenshot("interaction_start")

	page := t.Page()
	drv := t.Driver()

	width, height, err := page.WindowSize()
	if err != nil {
		t.Log("Error during interaction: %v", err)
	} else {
		t.Log("Screen size: %dx%d", width, height)

		buttons, err := drv.FindElements(string(buttonElements.Strategy), buttonElements.Value)
		if err != nil {
			t.Log("Error during interaction: %v", err)
		}
		t.Log("Found %d buttons", len(buttons))

		for i := 0; i < len(buttons) && i < interactionButtons; i++ {
			if err := tapAndReturn(t, page, buttons[i], i); err != nil {
				t.Log("Could not interact with button %d: %v", i, err)
			}
		}
	}

	t.Screenshot("interaction_complete")
	t.Log("Basic interaction test completed")
}

// tapAndReturn taps the button, captures the result and navigates back.
func tapAndReturn(t *suite.T, page *pages.ContactsPage, id string, i int) error {
	drv := t.Driver()
	desc, _ := drv.ElementAttribute(id, "content-desc")
	text, _ := drv.ElementText(id)
	t.Log("Button %d - desc: %s, text: %s", i, desc, text)

	t.Screenshot(fmt.Sprintf("before_button_click_%d", i))
	if err := drv.Click(id); err != nil {
		return err
	}
	t.Settle()
	t.Screenshot(fmt.Sprintf("after_button_click_%d", i))

	if err := page.GoBack(); err != nil {
		return err
	}
	t.Settle()
	return nil
}
