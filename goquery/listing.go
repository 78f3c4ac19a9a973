package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
)

// Ensure ListingParser implements harvest.ListingParser.
var _ harvest.ListingParser = (*ListingParser)(nil)

// ListingParser applies a vertical's link pattern and listing rules to
// search-result pages.
type ListingParser struct {
	vertical *harvest.Vertical
	vocab    *Vocabulary
}

// NewListingParser creates a ListingParser for v.
func NewListingParser(v *harvest.Vertical) (*ListingParser, error) {
	if err := v.Compile(); err != nil {
		return nil, err
	}
	return &ListingParser{
		vertical: v,
		vocab:    NewVocabulary(v.Chrome, v.ChromePrefixes),
	}, nil
}

// ParseListing returns the item stubs of one result page in document
// order, one per ref, together with the next page URL.
func (p *ListingParser) ParseListing(html, pageURL string) (*harvest.ListingPage, error) {
	doc, err := Parse(html)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "invalid page URL: %v", err)
	}
	root := doc.Root(p.vertical.Root)

	page := &harvest.ListingPage{NextURL: NextPageURL(root, base)}
	seen := make(map[string]struct{})

	root.Find(p.vertical.LinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref := p.vertical.RefOf(href)
		if ref == "" {
			return
		}
		if _, dup := seen[ref]; dup {
			return
		}
		if len(p.vertical.AnchorWithin) > 0 && a.ParentsFiltered(strings.Join(p.vertical.AnchorWithin, ", ")).Length() == 0 {
			return
		}
		link := resolveURL(base, href)
		if link == "" {
			return
		}

		item := harvest.ListedItem{Ref: ref, URL: link, Fields: harvest.Fields{}}
		if p.vertical.Card != nil {
			title := clean(normalizeApostrophes(textOf(a)))
			if title == "" {
				return
			}
			card := CardBoundary(a, ref, p.refsOf, p.vertical.Card)
			if card == nil {
				return
			}
			rc := &ruleContext{
				title:  title,
				anchor: a,
				base:   base,
				vocab:  p.vocab,
				labels: p.vertical.Labels,
			}
			item.Fields = apply(p.vertical.Listing, card, rc)
		}
		seen[ref] = struct{}{}
		page.Items = append(page.Items, item)
	})
	return page, nil
}

// refsOf collects the refs of item links below el.
func (p *ListingParser) refsOf(el *goquery.Selection) map[string]struct{} {
	refs := make(map[string]struct{})
	el.Find(p.vertical.LinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if ref := p.vertical.RefOf(href); ref != "" {
			refs[ref] = struct{}{}
		}
	})
	return refs
}

// NextPageURL returns the absolute URL of the next result page linked from
// root: a rel="next" link, else the first link whose text starts with
// "next". Returns "" on the last page.
func NextPageURL(root *goquery.Selection, base *url.URL) string {
	if a := root.Find(`a[rel="next"][href]`).First(); a.Length() > 0 {
		href, _ := a.Attr("href")
		if u := resolveURL(base, href); u != "" {
			return u
		}
	}
	var next string
	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.HasPrefix(strings.ToLower(textOf(a)), "next") {
			return true
		}
		href, _ := a.Attr("href")
		next = resolveURL(base, href)
		return next == ""
	})
	return next
}
