// Package pages holds the page objects of the Contacts app.
//
// Page objects never cache elements: every action resolves its descriptor
// against the current screen, logs each locator attempt to the owner's report
// scope and returns typed errors from pkg/core.
package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/locator"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
)

// Sink is where page objects log. *report.Scope implements it.
type Sink interface {
	locator.Sink
	Fail(msg string)
}

type nopSink struct{}

func (nopSink) Info(string)    {}
func (nopSink) Warning(string) {}
func (nopSink) Fail(string)    {}

// BasePage carries the session driver and the owner's log scope.
type BasePage struct {
	driver core.Driver
	log    Sink
}

// NewBasePage binds a page to a session driver. A nil sink discards logs.
func NewBasePage(driver core.Driver, sink Sink) *BasePage {
	if sink == nil {
		sink = nopSink{}
	}
	return &BasePage{driver: driver, log: sink}
}

// Driver returns the session driver.
func (p *BasePage) Driver() core.Driver {
	return p.driver
}

// CurrentActivity returns the foreground Android activity.
func (p *BasePage) CurrentActivity() (string, error) {
	activity, err := p.driver.CurrentActivity()
	if err != nil {
		return "", fmt.Errorf("current activity: %w", err)
	}
	return activity, nil
}

// IsPageLoaded is true for a generic page; concrete pages check a landmark.
func (p *BasePage) IsPageLoaded() bool {
	return true
}

// GoBack presses the device back key.
func (p *BasePage) GoBack() error {
	if err := p.driver.Back(); err != nil {
		err = core.Interaction("back", "device", err)
		p.log.Fail(err.Error())
		return err
	}
	p.log.Info("Navigated back")
	return nil
}

// HideKeyboard hides the soft keyboard if it is shown. Failures are ignored.
func (p *BasePage) HideKeyboard() {
	shown, err := p.driver.IsKeyboardShown()
	if err != nil {
		logger.Debug("keyboard state unavailable: %v", err)
		return
	}
	if !shown {
		return
	}
	if err := p.driver.HideKeyboard(); err != nil {
		logger.Debug("could not hide keyboard: %v", err)
		return
	}
	p.log.Info("Keyboard hidden")
}

// Orientation returns PORTRAIT or LANDSCAPE.
func (p *BasePage) Orientation() (string, error) {
	return p.driver.Orientation()
}

// WindowSize returns the screen size in pixels.
func (p *BasePage) WindowSize() (int, int, error) {
	return p.driver.WindowSize()
}

// Find resolves d against the current screen.
func (p *BasePage) Find(d locator.Descriptor) (locator.Element, error) {
	el, err := locator.Resolve(p.driver, d, p.log)
	if err != nil {
		p.log.Fail(err.Error())
		return locator.Element{}, err
	}
	return el, nil
}

// IsPresent reports whether d resolves.
func (p *BasePage) IsPresent(d locator.Descriptor) bool {
	return locator.Present(p.driver, d, p.log)
}

// Click resolves d and taps it.
func (p *BasePage) Click(d locator.Descriptor) error {
	el, err := p.Find(d)
	if err != nil {
		return err
	}
	if err := p.driver.Click(el.ID); err != nil {
		return p.interactionFailed("click", el, err)
	}
	p.log.Info(fmt.Sprintf("Clicked %s", d.Name))
	return nil
}

// Type resolves d, clears it and types text.
func (p *BasePage) Type(d locator.Descriptor, text string) error {
	el, err := p.Find(d)
	if err != nil {
		return err
	}
	if err := p.driver.Clear(el.ID); err != nil {
		return p.interactionFailed("clear", el, err)
	}
	if err := p.driver.TypeInto(el.ID, text); err != nil {
		return p.interactionFailed("type", el, err)
	}
	p.log.Info(fmt.Sprintf("Entered %q into %s", text, d.Name))
	return nil
}

// Text resolves d and returns its text.
func (p *BasePage) Text(d locator.Descriptor) (string, error) {
	el, err := p.Find(d)
	if err != nil {
		return "", err
	}
	text, err := p.driver.ElementText(el.ID)
	if err != nil {
		return "", p.interactionFailed("read text", el, err)
	}
	return text, nil
}

// Pause waits for d or until ctx is done.
func (p *BasePage) Pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *BasePage) interactionFailed(action string, el locator.Element, cause error) error {
	err := core.Interaction(action, fmt.Sprintf("%s (%s)", el.Name, el.Locator), cause)
	p.log.Fail(err.Error())
	return err
}
