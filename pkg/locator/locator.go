// Package locator resolves logical UI targets to on-screen elements.
//
// A Descriptor is an ordered list of locators. Resolve tries them in order and
// returns the first element that is found and displayed. Nothing is cached:
// descriptors are evaluated at the point of use, against the current screen.
package locator

import (
	"errors"
	"fmt"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/driver/appium"
	"github.com/samber/lo"
)

// Strategy is a W3C/Appium locator strategy.
type Strategy string

// Supported strategies.
const (
	ByID              Strategy = "id"
	ByXPath           Strategy = "xpath"
	ByAccessibilityID Strategy = "accessibility id"
	ByClassName       Strategy = "class name"
	ByUIAutomator     Strategy = "-android uiautomator"
)

// Locator is one way of finding an element.
type Locator struct {
	Strategy Strategy
	Value    string
}

// String renders the locator as strategy=value.
func (l Locator) String() string {
	return string(l.Strategy) + "=" + l.Value
}

// ID locates by resource-id.
func ID(v string) Locator { return Locator{ByID, v} }

// XPath locates by XPath expression.
func XPath(v string) Locator { return Locator{ByXPath, v} }

// AccessibilityID locates by content-desc.
func AccessibilityID(v string) Locator { return Locator{ByAccessibilityID, v} }

// ClassName locates by widget class.
func ClassName(v string) Locator { return Locator{ByClassName, v} }

// UIAutomator locates by a UiSelector expression.
func UIAutomator(v string) Locator { return Locator{ByUIAutomator, v} }

// Descriptor names a logical element and the locators that can find it, in priority order.
type Descriptor struct {
	Name     string
	Locators []Locator
}

// Describe builds a Descriptor.
func Describe(name string, locators ...Locator) Descriptor {
	return Descriptor{Name: name, Locators: locators}
}

// Strings returns every locator rendered with String.
func (d Descriptor) Strings() []string {
	return lo.Map(d.Locators, func(l Locator, _ int) string { return l.String() })
}

// Finder is the part of core.Driver resolution needs.
type Finder interface {
	FindElement(strategy, value string) (string, error)
	ElementDisplayed(elementID string) (bool, error)
}

// Sink receives one entry per resolution attempt.
type Sink interface {
	Info(msg string)
	Warning(msg string)
}

type discard struct{}

func (discard) Info(string)    {}
func (discard) Warning(string) {}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

// Element is a resolved element.
type Element struct {
	ID      string
	Name    string
	Locator Locator
}

// Resolve returns the first element of d that is found and displayed.
// Each attempt logs exactly one entry to sink. When every locator fails the
// error is core.ErrElementNotFound naming all of them; no element is touched.
func Resolve(f Finder, d Descriptor, sink Sink) (Element, error) {
	if sink == nil {
		sink = Discard
	}

	var lastErr error
	for _, loc := range d.Locators {
		id, err := f.FindElement(string(loc.Strategy), loc.Value)
		if err != nil {
			lastErr = err
			sink.Warning(fmt.Sprintf("%s not found with %s", d.Name, loc))
			continue
		}

		displayed, err := f.ElementDisplayed(id)
		if err != nil || !displayed {
			lastErr = err
			sink.Warning(fmt.Sprintf("%s found with %s but not displayed", d.Name, loc))
			continue
		}

		sink.Info(fmt.Sprintf("%s resolved with %s", d.Name, loc))
		return Element{ID: id, Name: d.Name, Locator: loc}, nil
	}

	notFound := core.ElementNotFound(d.Name, d.Strings())
	if lastErr != nil && !appium.IsNoSuchElement(lastErr) && !errors.Is(lastErr, core.ErrElementNotFound) {
		return Element{}, notFound.WithCause(lastErr)
	}
	return Element{}, notFound
}

// Present reports whether d resolves. Resolution failures become false.
func Present(f Finder, d Descriptor, sink Sink) bool {
	_, err := Resolve(f, d, sink)
	return err == nil
}
