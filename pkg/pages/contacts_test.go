package pages

import (
	"context"
	"testing"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/driver/appium"
	"github.com/devicelab-dev/contacts-runner/pkg/driver/mock"
	"github.com/devicelab-dev/contacts-runner/pkg/locator"
	"github.com/devicelab-dev/contacts-runner/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var caps = map[string]interface{}{
	"platformName":       "Android",
	"appium:appPackage":  mock.AppPackage,
	"appium:appActivity": mock.ActivityPeople,
}

type fixture struct {
	srv      *mock.Server
	driver   *appium.Driver
	reporter *report.Reporter
	page     *ContactsPage
}

func setup(t *testing.T, cfg mock.Config) *fixture {
	t.Helper()
	srv := mock.NewServer(cfg)
	t.Cleanup(srv.Close)

	d, err := appium.NewDriver(context.Background(), srv.URL(), caps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	r := report.New(report.Options{Dir: t.TempDir()})
	r.CreateTest("w1", t.Name())

	page := NewContactsPage(d, r.Scope("w1"))
	page.Settle = 0
	return &fixture{srv: srv, driver: d, reporter: r, page: page}
}

func (f *fixture) entries() []report.Entry {
	return f.reporter.Groups()[0].Entries
}

func TestContactsPage_IsDisplayed(t *testing.T) {
	f := setup(t, mock.Config{})

	assert.True(t, f.page.IsContactsPageDisplayed())
	assert.True(t, f.page.IsPageLoaded())

	act, err := f.page.CurrentActivity()
	require.NoError(t, err)
	assert.Contains(t, act, "contacts")
}

func TestContactsPage_CreateContactWithPrimaryLocators(t *testing.T) {
	f := setup(t, mock.Config{})

	c := Contact{FirstName: "John", LastName: "Doe", Phone: "1234567890", Email: "john.doe@example.com"}
	require.NoError(t, f.page.CreateContact(context.Background(), c))

	require.Len(t, f.srv.Contacts(), 1)
	saved := f.srv.Contacts()[0]
	assert.Equal(t, mock.Contact{First: "John", Last: "Doe", Phone: "1234567890", Email: "john.doe@example.com"}, saved)

	for _, e := range f.entries() {
		assert.NotEqual(t, report.LevelWarning, e.Level, "unexpected fallback: %s", e.Message)
	}
	assert.True(t, f.page.IsContactDisplayed("John Doe"))
}

func TestContactsPage_FallbackLocators(t *testing.T) {
	f := setup(t, mock.Config{HideResourceIDs: true})

	require.NoError(t, f.page.ClickAddContact())

	var warned, resolved bool
	for _, e := range f.entries() {
		if e.Level == report.LevelWarning && e.Message == "Add Contact Button not found with id=com.google.android.contacts:id/floating_action_button" {
			warned = true
		}
		if e.Level == report.LevelInfo && e.Message == "Add Contact Button resolved with xpath=//android.widget.ImageButton[@content-desc='Create contact']" {
			resolved = true
		}
	}
	assert.True(t, warned)
	assert.True(t, resolved)

	require.NoError(t, f.page.EnterFirstName("Ann"))
	require.NoError(t, f.page.SaveContact())
	require.Len(t, f.srv.Contacts(), 1)
	assert.Equal(t, "Ann", f.srv.Contacts()[0].First)
}

func TestContactsPage_ElementNotFoundNamesAllLocators(t *testing.T) {
	f := setup(t, mock.Config{})

	// the list screen has no Save button
	err := f.page.SaveContact()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrElementNotFound)
	assert.Contains(t, err.Error(), "id=com.google.android.contacts:id/toolbar_button")
	assert.Contains(t, err.Error(), "xpath=//android.widget.Button[@text='Save']")

	entries := f.entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, report.LevelFail, entries[len(entries)-1].Level)
}

func TestContactsPage_InteractionFailure(t *testing.T) {
	f := setup(t, mock.Config{FailClickOn: []string{"floating_action_button"}})

	err := f.page.ClickAddContact()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInteraction)
	assert.NotErrorIs(t, err, core.ErrElementNotFound)

	act, _ := f.page.CurrentActivity()
	assert.Equal(t, mock.ActivityPeople, act)
}

func TestContactsPage_SaveFromDiscardDialog(t *testing.T) {
	f := setup(t, mock.Config{})
	ctx := context.Background()

	require.NoError(t, f.page.ClickAddContact())
	require.NoError(t, f.page.EnterFirstName("Jane"))
	require.NoError(t, f.page.EnterLastName("Smith"))
	require.NoError(t, f.page.SaveFromDiscardDialog(ctx))

	require.Len(t, f.srv.Contacts(), 1)
	assert.Equal(t, "Jane Smith", f.srv.Contacts()[0].DisplayName())
	assert.True(t, f.page.IsContactDisplayed("Jane"))

	text, err := f.page.OpenContact("Jane")
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", text)
	act, _ := f.page.CurrentActivity()
	assert.Equal(t, mock.ActivityDetails, act)
}

func TestContactsPage_Search(t *testing.T) {
	f := setup(t, mock.Config{Contacts: []mock.Contact{
		{First: "John", Last: "Doe"},
		{First: "Mary", Last: "Major"},
	}})

	assert.True(t, f.page.SearchContact("John"))
	assert.True(t, f.page.IsContactDisplayed("John Doe"))
	assert.False(t, f.page.IsContactDisplayed("Mary"))
}

func TestContactsPage_SearchUnavailable(t *testing.T) {
	f := setup(t, mock.Config{})
	require.NoError(t, f.page.ClickAddContact())

	assert.False(t, f.page.SearchContact("John"))
}

func TestContactsPage_IsContactDisplayedWithApostrophe(t *testing.T) {
	f := setup(t, mock.Config{Contacts: []mock.Contact{{First: "Miles", Last: "O'Brien"}}})

	assert.True(t, f.page.IsContactDisplayed("O'Brien"))
}

func TestContactsPage_IsContactDisplayedWithBothQuotes(t *testing.T) {
	f := setup(t, mock.Config{Contacts: []mock.Contact{{First: `Dwayne "The Rock"`, Last: "O'Neil"}}})

	assert.True(t, f.page.IsContactDisplayed(`Dwayne "The Rock" O'Neil`))
	assert.False(t, f.page.IsContactDisplayed(`Dwayne "The Rock" O'Brien`))
}

func TestContactsPage_VisibleTextsAndCount(t *testing.T) {
	f := setup(t, mock.Config{Contacts: []mock.Contact{{First: "A", Last: "One"}, {First: "B", Last: "Two"}}})

	texts, err := f.page.VisibleTexts(ClassTextView, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Contacts", "A One", "B Two"}, texts)

	limited, err := f.page.VisibleTexts(ClassTextView, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	n, err := f.page.Count(locator.XPath("//android.widget.Button | //android.widget.ImageButton"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.page.Count(locator.ClassName("android.widget.CheckBox"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBasePage_NavigationHelpers(t *testing.T) {
	f := setup(t, mock.Config{})

	require.NoError(t, f.page.ClickAddContact())
	require.NoError(t, f.page.EnterFirstName("X"))

	shown, err := f.driver.IsKeyboardShown()
	require.NoError(t, err)
	require.True(t, shown)
	f.page.HideKeyboard()
	shown, _ = f.driver.IsKeyboardShown()
	assert.False(t, shown)

	// no keyboard: HideKeyboard is a silent no-op
	f.page.HideKeyboard()

	orientation, err := f.page.Orientation()
	require.NoError(t, err)
	assert.Equal(t, "PORTRAIT", orientation)

	w, h, err := f.page.WindowSize()
	require.NoError(t, err)
	assert.Positive(t, w)
	assert.Positive(t, h)

	require.NoError(t, f.page.GoBack())
	act, _ := f.page.CurrentActivity()
	assert.Equal(t, mock.ActivityEditor, act, "dirty editor shows the discard dialog")
}

func TestBasePage_PauseHonoursContext(t *testing.T) {
	p := NewBasePage(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Pause(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, p.Pause(context.Background(), time.Millisecond))
	assert.True(t, p.IsPageLoaded())
}
