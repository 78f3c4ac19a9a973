// Package vertical holds the configuration tables of the supported listing
// sites. Each constructor returns a fresh, uncompiled value so callers may
// adjust it before use.
package vertical

import (
	"sort"
	"strings"

	"github.com/fwojciec/harvest"
)

var constructors = map[string]func() *harvest.Vertical{
	"jobs":            Jobs,
	"apprenticeships": Apprenticeships,
	"courses":         Courses,
	"careers":         Careers,
}

// Names returns the known vertical names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName returns the compiled vertical called name.
func ByName(name string) (*harvest.Vertical, error) {
	fn, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, harvest.Errorf(harvest.EINVALID, "unknown vertical %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	v := fn()
	if err := v.Compile(); err != nil {
		return nil, err
	}
	return v, nil
}

// All returns every vertical compiled, in name order.
func All() ([]*harvest.Vertical, error) {
	out := make([]*harvest.Vertical, 0, len(constructors))
	for _, n := range Names() {
		v, err := ByName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// section is shorthand for a one-step heading scope.
func section(levels []int, stop []int, titles ...string) []harvest.SectionStep {
	return []harvest.SectionStep{{Titles: titles, Levels: levels, Stop: stop}}
}

// within appends a step to a copy of a scope chain.
func within(chain []harvest.SectionStep, step harvest.SectionStep) []harvest.SectionStep {
	out := make([]harvest.SectionStep, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, step)
}
