package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/locator"
	"github.com/samber/lo"
)

const idPrefix = "com.google.android.contacts:id/"

// Contacts app elements, primary locator first.
var (
	AddContactButton = locator.Describe("Add Contact Button",
		locator.ID(idPrefix+"floating_action_button"),
		locator.XPath("//android.widget.ImageButton[@content-desc='Create contact']"),
	)
	FirstNameField = locator.Describe("First Name Field",
		locator.XPath("//android.widget.EditText[@text='First name']"),
		locator.XPath("//android.widget.EditText[contains(@text,'First') or contains(@hint,'First')]"),
	)
	LastNameField = locator.Describe("Last Name Field",
		locator.XPath("//android.widget.EditText[@text='Last name']"),
		locator.XPath("//android.widget.EditText[contains(@text,'Last') or contains(@hint,'Last')]"),
	)
	PhoneField = locator.Describe("Phone Field",
		locator.XPath("//android.widget.EditText[@text='Phone']"),
		locator.XPath("//android.widget.EditText[contains(@text,'Phone') or contains(@hint,'Phone')]"),
	)
	EmailField = locator.Describe("Email Field",
		locator.XPath("//android.widget.EditText[@text='Email']"),
		locator.XPath("//android.widget.EditText[contains(@text,'Email') or contains(@hint,'Email')]"),
	)
	SaveButton = locator.Describe("Save Button",
		locator.ID(idPrefix+"toolbar_button"),
		locator.XPath("//android.widget.Button[@text='Save']"),
	)
	DialogSaveButton = locator.Describe("Dialog Save Button",
		locator.XPath("//android.widget.Button[@text='Save']"),
	)
	ContactsTitle = locator.Describe("Contacts Title",
		locator.XPath("//android.widget.TextView[@text='Contacts']"),
		locator.XPath("//android.widget.TextView[contains(@text,'Contact')]"),
	)
	SearchButton = locator.Describe("Search Button",
		locator.ID(idPrefix+"open_search_bar"),
		locator.XPath("//android.widget.ImageView[@content-desc='Search'] | //android.widget.ImageButton[@content-desc='Search']"),
	)
	SearchField = locator.Describe("Search Field",
		locator.ID(idPrefix+"open_search_view_edit_text"),
		locator.XPath("//android.widget.EditText"),
	)

	contactByName = locator.MustTemplate("//android.widget.TextView[contains(@text,{name})]")
)

// Class names used by VisibleTexts and Count.
const (
	ClassTextView    = "android.widget.TextView"
	ClassButton      = "android.widget.Button"
	ClassImageButton = "android.widget.ImageButton"
)

// settle is how long the app gets to finish a screen transition.
const settle = 2 * time.Second

// Contact is the data entered on the editor screen.
type Contact struct {
	FirstName string `yaml:"firstName" json:"firstName"`
	LastName  string `yaml:"lastName" json:"lastName"`
	Phone     string `yaml:"phone" json:"phone"`
	Email     string `yaml:"email" json:"email"`
}

// FullName is "First Last".
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ContactsPage is the Google Contacts list and editor.
type ContactsPage struct {
	*BasePage
	Settle time.Duration
}

// NewContactsPage binds the page to a session.
func NewContactsPage(driver core.Driver, sink Sink) *ContactsPage {
	return &ContactsPage{BasePage: NewBasePage(driver, sink), Settle: settle}
}

// ContactDescriptor locates a list entry whose text contains name.
func ContactDescriptor(name string) locator.Descriptor {
	return locator.Describe("Contact "+name, contactByName.XPath(map[string]string{"name": name}))
}

// IsPageLoaded reports whether the contacts list is shown.
func (p *ContactsPage) IsPageLoaded() bool {
	return p.IsContactsPageDisplayed()
}

// IsContactsPageDisplayed checks for the list title.
func (p *ContactsPage) IsContactsPageDisplayed() bool {
	displayed := p.IsPresent(ContactsTitle)
	p.log.Info(fmt.Sprintf("Contacts page displayed: %t", displayed))
	return displayed
}

// ClickAddContact opens the editor.
func (p *ContactsPage) ClickAddContact() error {
	return p.Click(AddContactButton)
}

// EnterFirstName fills the first name field.
func (p *ContactsPage) EnterFirstName(name string) error {
	return p.Type(FirstNameField, name)
}

// EnterLastName fills the last name field.
func (p *ContactsPage) EnterLastName(name string) error {
	return p.Type(LastNameField, name)
}

// EnterPhoneNumber fills the phone field.
func (p *ContactsPage) EnterPhoneNumber(phone string) error {
	return p.Type(PhoneField, phone)
}

// EnterEmail fills the email field.
func (p *ContactsPage) EnterEmail(email string) error {
	return p.Type(EmailField, email)
}

// SaveContact taps the editor's Save button.
func (p *ContactsPage) SaveContact() error {
	return p.Click(SaveButton)
}

// SaveFromDiscardDialog leaves the editor with back and confirms the
// unsaved-changes dialog with Save.
func (p *ContactsPage) SaveFromDiscardDialog(ctx context.Context) error {
	p.HideKeyboard()
	if err := p.GoBack(); err != nil {
		return err
	}
	if err := p.Pause(ctx, p.Settle); err != nil {
		return err
	}
	return p.Click(DialogSaveButton)
}

// CreateContact runs the whole editor flow and saves with the toolbar button.
func (p *ContactsPage) CreateContact(ctx context.Context, c Contact) error {
	p.log.Info("Creating new contact: " + c.FullName())

	if err := p.ClickAddContact(); err != nil {
		return err
	}
	if err := p.Pause(ctx, p.Settle); err != nil {
		return err
	}

	steps := []struct {
		value string
		enter func(string) error
	}{
		{c.FirstName, p.EnterFirstName},
		{c.LastName, p.EnterLastName},
		{c.Phone, p.EnterPhoneNumber},
		{c.Email, p.EnterEmail},
	}
	for _, s := range steps {
		if s.value == "" {
			continue
		}
		if err := s.enter(s.value); err != nil {
			return err
		}
	}

	p.HideKeyboard()
	if err := p.SaveContact(); err != nil {
		return err
	}
	if err := p.Pause(ctx, p.Settle); err != nil {
		return err
	}
	p.log.Info("Contact creation completed")
	return nil
}

// SearchContact opens search and types name. It reports false when the
// search UI is not available.
func (p *ContactsPage) SearchContact(name string) bool {
	p.log.Info("Searching for contact: " + name)
	if !p.IsPresent(SearchButton) {
		return false
	}
	if err := p.Click(SearchButton); err != nil {
		return false
	}
	if err := p.Type(SearchField, name); err != nil {
		return false
	}
	return true
}

// IsContactDisplayed reports whether a text containing name is on screen.
func (p *ContactsPage) IsContactDisplayed(name string) bool {
	displayed := p.IsPresent(ContactDescriptor(name))
	p.log.Info(fmt.Sprintf("Contact %s displayed: %t", name, displayed))
	return displayed
}

// OpenContact taps the list entry and returns its text.
func (p *ContactsPage) OpenContact(name string) (string, error) {
	d := ContactDescriptor(name)
	text, err := p.Text(d)
	if err != nil {
		return "", err
	}
	if err := p.Click(d); err != nil {
		return "", err
	}
	return text, nil
}

// VisibleTexts returns up to limit non-blank texts of elements of class.
// Unreadable elements are skipped. limit <= 0 means no limit.
func (p *ContactsPage) VisibleTexts(class string, limit int) ([]string, error) {
	ids, err := p.driver.FindElements(string(locator.ByClassName), class)
	if err != nil {
		return nil, fmt.Errorf("find %s elements: %w", class, err)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	texts := lo.FilterMap(ids, func(id string, _ int) (string, bool) {
		text, err := p.driver.ElementText(id)
		if err != nil || strings.TrimSpace(text) == "" {
			return "", false
		}
		return text, true
	})
	return texts, nil
}

// Count returns how many elements match l. No match is zero, not an error.
func (p *ContactsPage) Count(l locator.Locator) (int, error) {
	ids, err := p.driver.FindElements(string(l.Strategy), l.Value)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", l, err)
	}
	return len(ids), nil
}
