package goquery

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
)

var _ harvest.SubtypeParser = (*ListingParser)(nil)

// ParseSubtypes returns the subtypes listed on a route's index page in
// document order, one per slug. Entries without a name are skipped.
func (p *ListingParser) ParseSubtypes(html, pageURL string, r *harvest.Route) ([]harvest.Subtype, error) {
	if r == nil {
		return nil, harvest.Errorf(harvest.EINVALID, "route required")
	}
	doc, err := Parse(html)
	if err != nil {
		return nil, err
	}
	root := doc.Root(p.vertical.Root)

	var out []harvest.Subtype
	seen := make(map[string]struct{})
	add := func(name, slug string) {
		if name == "" || slug == "" {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}
		out = append(out, harvest.Subtype{Name: name, Slug: slug})
	}

	if r.InputName != "" {
		labels := make(map[string]string)
		root.Find("label[for]").Each(func(_ int, l *goquery.Selection) {
			id, _ := l.Attr("for")
			if _, ok := labels[id]; !ok {
				labels[id] = clean(textOf(l))
			}
		})
		root.Find(fmt.Sprintf("input[name=%q][value]", r.InputName)).Each(func(_ int, in *goquery.Selection) {
			slug, _ := in.Attr("value")
			var name string
			if id, ok := in.Attr("id"); ok && id != "" {
				name = labels[id]
			}
			if name == "" {
				name = clean(textOf(in.Parent()))
			}
			add(name, clean(slug))
		})
		return out, nil
	}

	root.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		add(clean(textOf(a)), r.SlugOf(href))
	})
	return out, nil
}
