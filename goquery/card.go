package goquery

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
	"golang.org/x/net/html"
)

// RefsFunc returns the set of item refs linked from inside an element.
type RefsFunc func(el *goquery.Selection) map[string]struct{}

// CardBoundary climbs from anchor through at most harvest.MaxCardDepth
// elements, the anchor included, and returns the nearest one whose links
// reach exactly the set {ref} and that criteria accepts. Links are counted
// among descendants only, so a bare anchor never qualifies. The climb stops
// early once an element reaches a second ref. Returns nil when no element
// qualifies.
func CardBoundary(anchor *goquery.Selection, ref string, refsOf RefsFunc, criteria *harvest.CardCriteria) *goquery.Selection {
	if anchor.Length() == 0 {
		return nil
	}
	n := anchor.Nodes[0]
	for depth := 0; depth < harvest.MaxCardDepth && n != nil && n.Type == html.ElementNode; depth++ {
		el := anchor.Slice(0, 0).AddNodes(n)
		refs := refsOf(el)
		if _, ok := refs[ref]; ok {
			if len(refs) > 1 {
				return nil
			}
			if criteria == nil || criteria.Accept(n.Data, textOf(el)) {
				return el
			}
		}
		n = n.Parent
	}
	return nil
}
