// Package goquery implements the document model, the extraction primitives
// and the rule engine that turn listing and detail pages into field sets.
// Primitives never fail: a missing heading, label or element yields an
// empty value.
package goquery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page.
type Document struct {
	doc *goquery.Document
}

// Parse parses an HTML page. Invalid UTF-8 is replaced with U+FFFD first so
// extracted values survive a JSON round trip unchanged.
func Parse(s string) (*Document, error) {
	s = strings.ToValidUTF8(s, "\uFFFD")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "failed to parse HTML: %v", err)
	}
	return &Document{doc: doc}, nil
}

// Root returns the first element matching selector, or the whole document
// when nothing matches or selector is empty.
func (d *Document) Root(selector string) *goquery.Selection {
	if selector != "" {
		if s := d.doc.Find(selector).First(); s.Length() > 0 {
			return s
		}
	}
	return d.doc.Selection
}

var apostrophes = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"‛", "'",
	"′", "'",
)

// normalizeApostrophes replaces typographic apostrophes with a plain one.
func normalizeApostrophes(s string) string {
	return apostrophes.Replace(s)
}

// clean collapses whitespace runs into single spaces and trims.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var headingNoise = regexp.MustCompile(`[^a-z0-9'\s]+`)

// normalizeHeading lower-cases heading text and strips punctuation other
// than apostrophes, so "What you’ll do:" and "what you'll do" compare equal.
func normalizeHeading(s string) string {
	s = strings.ToLower(clean(normalizeApostrophes(s)))
	return clean(headingNoise.ReplaceAllString(s, ""))
}

// skipText reports whether an element's text is never visible.
func skipText(n *html.Node) bool {
	switch n.Data {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

// walkText calls fn for every visible text node under n in document order.
func walkText(n *html.Node, fn func(string)) {
	switch n.Type {
	case html.TextNode:
		fn(n.Data)
		return
	case html.ElementNode:
		if skipText(n) {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, fn)
	}
}

// textOf returns the visible text of s with text nodes joined by spaces.
func textOf(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		walkText(n, func(t string) {
			if t = clean(t); t != "" {
				parts = append(parts, t)
			}
		})
	}
	return strings.Join(parts, " ")
}

// selectAll returns the elements of scope, and their descendants, that
// match selector in document order. Scope nodes are assumed disjoint.
func selectAll(scope *goquery.Selection, selector string) *goquery.Selection {
	var nodes []*html.Node
	scope.Each(func(_ int, s *goquery.Selection) {
		if s.Is(selector) {
			nodes = append(nodes, s.Nodes[0])
		}
		nodes = append(nodes, s.Find(selector).Nodes...)
	})
	return scope.Slice(0, 0).AddNodes(nodes...)
}

// resolveURL resolves href against base with the fragment stripped.
// Returns "" for unparsable or non-HTTP hrefs.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || isNonHTTPLink(href) {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	ref.Fragment = ""
	return ref.String()
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
