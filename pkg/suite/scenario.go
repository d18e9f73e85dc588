package suite

import (
	"strings"

	"github.com/samber/lo"
)

// Func is a scenario body. It fails through t (directly or via testify).
type Func func(t *T)

// Scenario is one registered test.
type Scenario struct {
	Class       string
	Name        string
	Priority    int
	Description string
	Func        Func
}

// FullName returns Class.Name, the report group title.
func (s Scenario) FullName() string {
	if s.Class == "" {
		return s.Name
	}
	return s.Class + "." + s.Name
}

// Filter keeps the scenarios whose full name contains any of patterns,
// ignoring case. No patterns keeps everything. Order is preserved.
func Filter(scenarios []Scenario, patterns ...string) []Scenario {
	patterns = lo.FilterMap(patterns, func(p string, _ int) (string, bool) {
		p = strings.ToLower(strings.TrimSpace(p))
		return p, p != ""
	})
	if len(patterns) == 0 {
		return scenarios
	}
	return lo.Filter(scenarios, func(s Scenario, _ int) bool {
		name := strings.ToLower(s.FullName())
		return lo.SomeBy(patterns, func(p string) bool {
			return strings.Contains(name, p)
		})
	})
}
