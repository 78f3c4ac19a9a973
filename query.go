package harvest

import (
	"encoding/json"
	"io"
	"strings"
)

// Query is one listing crawl within a run.
type Query struct {
	Category    string
	Subcategory string
	StartURL    string
}

// PlanCategory is a category and its ordered subcategories.
type PlanCategory struct {
	Name          string
	Subcategories []string
}

// QueryPlan is the ordered category plan of a run.
type QueryPlan []PlanCategory

// Len returns the number of subcategories across the plan.
func (p QueryPlan) Len() int {
	n := 0
	for _, c := range p {
		n += len(c.Subcategories)
	}
	return n
}

// ParsePlan reads a plan of the form {"Category": ["Sub", ...], ...},
// keeping file order. Blank names are dropped, and categories left with no
// subcategory are omitted. A plan with nothing usable is EINVALID.
func ParsePlan(r io.Reader) (QueryPlan, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, Errorf(EINVALID, "category plan: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, Errorf(EINVALID, `category plan must be an object like {"Category": ["Sub1", ...]}`)
	}

	var plan QueryPlan
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, Errorf(EINVALID, "category plan: %v", err)
		}
		name, _ := tok.(string)

		// A pointer tells null apart from an empty list.
		var subs *[]string
		if err := dec.Decode(&subs); err != nil || subs == nil {
			return nil, Errorf(EINVALID, "value for category %q must be a list of strings", name)
		}

		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cat := PlanCategory{Name: name}
		for _, s := range *subs {
			if s = strings.TrimSpace(s); s != "" {
				cat.Subcategories = append(cat.Subcategories, s)
			}
		}
		if len(cat.Subcategories) > 0 {
			plan = append(plan, cat)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, Errorf(EINVALID, "category plan: %v", err)
	}

	if len(plan) == 0 {
		return nil, Errorf(EINVALID, "category plan has no usable categories/subcategories")
	}
	return plan, nil
}

// Queries expands a plan into listing crawls for v. A non-empty startURL
// overrides the plan with a single uncategorized query.
func (v *Vertical) Queries(plan QueryPlan, startURL string) ([]Query, error) {
	if startURL = strings.TrimSpace(startURL); startURL != "" {
		return []Query{{StartURL: startURL}}, nil
	}
	if v.SearchURL == "" {
		return nil, Errorf(EINVALID, "vertical %q has no search URL; a start URL is required", v.Name)
	}
	if plan.Len() == 0 {
		return nil, Errorf(EINVALID, "category plan required for vertical %q", v.Name)
	}
	queries := make([]Query, 0, plan.Len())
	for _, c := range plan {
		for _, s := range c.Subcategories {
			queries = append(queries, Query{
				Category:    c.Name,
				Subcategory: s,
				StartURL:    v.SearchURLFor(s),
			})
		}
	}
	return queries, nil
}
