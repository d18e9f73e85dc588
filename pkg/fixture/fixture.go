// Package fixture loads contact test data from YAML.
//
// Values may contain ${...} JavaScript expressions. Variables under vars are
// evaluated first, in file order, and are visible to later expressions:
//
//	vars:
//	  suffix: ${Date.now() % 10000}
//	contacts:
//	  random:
//	    firstName: John${suffix}
//	    phone: 555${suffix}
package fixture

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/pages"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixtures []byte

// Well-known fixture names used by the scenarios.
const (
	JohnDoe   = "john_doe"
	JaneSmith = "jane_smith"
	Random    = "random"
)

// Set is a named collection of contacts.
type Set struct {
	Vars     map[string]string
	contacts map[string]pages.Contact
}

type document struct {
	Vars     yaml.Node                `yaml:"vars"`
	Contacts map[string]pages.Contact `yaml:"contacts"`
}

// Default returns the built-in fixtures.
func Default() (*Set, error) {
	return Parse(defaultFixtures)
}

// Load reads fixtures from path, or the built-in set when path is empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided fixtures file
	if err != nil {
		return nil, core.ErrInvalidConfig.
			WithMessage("fixtures file not found: " + path).
			WithCause(err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse decodes and evaluates a fixtures document.
func Parse(data []byte) (*Set, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("cannot parse fixtures").WithCause(err)
	}

	engine := NewEngine()
	set := &Set{
		Vars:     make(map[string]string),
		contacts: make(map[string]pages.Contact, len(doc.Contacts)),
	}

	if doc.Vars.Kind != 0 {
		if doc.Vars.Kind != yaml.MappingNode {
			return nil, core.ErrInvalidConfig.WithMessage("fixtures: vars must be a mapping")
		}
		for i := 0; i+1 < len(doc.Vars.Content); i += 2 {
			name, raw := doc.Vars.Content[i].Value, doc.Vars.Content[i+1].Value
			value, err := engine.ExpandVariables(raw)
			if err != nil {
				return nil, core.ErrInvalidConfig.WithMessage("fixtures: var " + name).WithCause(err)
			}
			engine.SetVariable(name, value)
			set.Vars[name] = value
		}
	}

	for name, c := range doc.Contacts {
		expanded, err := expandContact(engine, c)
		if err != nil {
			return nil, core.ErrInvalidConfig.WithMessage("fixtures: contact " + name).WithCause(err)
		}
		set.contacts[name] = expanded
	}
	return set, nil
}

func expandContact(e *Engine, c pages.Contact) (pages.Contact, error) {
	fields := []*string{&c.FirstName, &c.LastName, &c.Phone, &c.Email}
	for _, f := range fields {
		v, err := e.ExpandVariables(*f)
		if err != nil {
			return pages.Contact{}, err
		}
		*f = v
	}
	return c, nil
}

// Contact returns a fixture by name.
func (s *Set) Contact(name string) (pages.Contact, error) {
	c, ok := s.contacts[name]
	if !ok {
		return pages.Contact{}, core.ErrMissingRequired.WithMessage("fixture not found: " + name)
	}
	return c, nil
}

// Names lists fixture names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.contacts))
	for n := range s.contacts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
