package harvest

import (
	"net/url"
	"regexp"
	"strings"
)

// Route is an alternative entry into a vertical's listings, such as
// browsing careers by category or by sector. The subtypes of a route are
// discovered from its index page when a run has no category plan.
type Route struct {
	Name string

	// IndexURL is the page listing the route's subtypes.
	IndexURL string

	// SearchURL is the listing start URL template; {query} is replaced
	// with the escaped subtype slug.
	SearchURL string

	// InputName discovers subtypes from form inputs with this name. The
	// input value is the slug; its label, or else its parent's text, is
	// the name.
	InputName string

	// LinkPattern discovers subtypes from links instead. The first group
	// of the pattern is the slug and the link text is the name.
	LinkPattern string

	linkRe *regexp.Regexp
}

// Subtype is one discovered listing filter of a route.
type Subtype struct {
	Name string
	Slug string
}

// SubtypeParser reads the subtypes listed on a route's index page.
type SubtypeParser interface {
	ParseSubtypes(html, pageURL string, route *Route) ([]Subtype, error)
}

func (r *Route) compile() error {
	if r.Name == "" {
		return Errorf(EINVALID, "route name required")
	}
	if r.IndexURL == "" || r.SearchURL == "" {
		return Errorf(EINVALID, "route %q: index and search URLs required", r.Name)
	}
	switch {
	case r.InputName != "" && r.LinkPattern != "":
		return Errorf(EINVALID, "route %q: set either an input name or a link pattern", r.Name)
	case r.LinkPattern != "":
		re, err := regexp.Compile(r.LinkPattern)
		if err != nil {
			return Errorf(EINVALID, "route %q: bad link pattern: %v", r.Name, err)
		}
		if re.NumSubexp() < 1 {
			return Errorf(EINVALID, "route %q: link pattern needs a group", r.Name)
		}
		r.linkRe = re
	case r.InputName == "":
		return Errorf(EINVALID, "route %q: input name or link pattern required", r.Name)
	}
	return nil
}

// SlugOf returns the subtype slug an href points at, or "" when the href is
// not a subtype link of r.
func (r *Route) SlugOf(href string) string {
	if r.linkRe == nil {
		return ""
	}
	m := r.linkRe.FindStringSubmatch(strings.TrimSpace(href))
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// SearchURLFor expands SearchURL for one subtype slug.
func (r *Route) SearchURLFor(slug string) string {
	return strings.ReplaceAll(r.SearchURL, "{query}", url.QueryEscape(slug))
}

// Query returns the listing crawl of one subtype. The route name is the
// category and the subtype name the subcategory.
func (r *Route) Query(s Subtype) Query {
	return Query{Category: r.Name, Subcategory: s.Name, StartURL: r.SearchURLFor(s.Slug)}
}

// SelectRoutes returns the routes named, in the vertical's order. No names
// selects every route. Naming a route the vertical lacks is EINVALID.
func (v *Vertical) SelectRoutes(names []string) ([]*Route, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n == "" {
			continue
		}
		if v.route(n) == nil && len(v.Routes) == 0 {
			return nil, Errorf(EINVALID, "vertical %q has no routes", v.Name)
		}
		if v.route(n) == nil {
			return nil, Errorf(EINVALID, "vertical %q has no route %q (have: %s)", v.Name, n, strings.Join(v.RouteNames(), ", "))
		}
		want[n] = true
	}
	var out []*Route
	for i := range v.Routes {
		if len(want) == 0 || want[v.Routes[i].Name] {
			out = append(out, &v.Routes[i])
		}
	}
	return out, nil
}

func (v *Vertical) route(name string) *Route {
	for i := range v.Routes {
		if v.Routes[i].Name == name {
			return &v.Routes[i]
		}
	}
	return nil
}

// RouteNames returns the names of the vertical's routes in order.
func (v *Vertical) RouteNames() []string {
	out := make([]string, len(v.Routes))
	for i, r := range v.Routes {
		out[i] = r.Name
	}
	return out
}
