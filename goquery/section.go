package goquery

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
	"golang.org/x/net/html"
)

// headingSet returns the tag names for heading levels.
func headingSet(levels []int) map[string]struct{} {
	set := make(map[string]struct{}, len(levels))
	for _, l := range levels {
		set[fmt.Sprintf("h%d", l)] = struct{}{}
	}
	return set
}

func headingSelector(levels []int) string {
	tags := make([]string, len(levels))
	for i, l := range levels {
		tags[i] = fmt.Sprintf("h%d", l)
	}
	return strings.Join(tags, ", ")
}

func titleMatches(text string, titles []string, match harvest.HeadingMatch) bool {
	got := normalizeHeading(text)
	if got == "" {
		return false
	}
	for _, t := range titles {
		want := normalizeHeading(t)
		switch match {
		case harvest.MatchPrefix:
			if strings.HasPrefix(got, want) {
				return true
			}
		case harvest.MatchContains:
			if strings.Contains(got, want) {
				return true
			}
		default:
			if got == want {
				return true
			}
		}
	}
	return false
}

// FindHeading returns the heading at one of levels within scope whose text
// matches a title, or an empty selection. Comparison ignores case,
// punctuation and apostrophe style. pick chooses between repeated headings.
func FindHeading(scope *goquery.Selection, titles []string, levels []int, match harvest.HeadingMatch, pick harvest.Pick) *goquery.Selection {
	var hit *html.Node
	selectAll(scope, headingSelector(levels)).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !titleMatches(textOf(h), titles, match) {
			return true
		}
		hit = h.Nodes[0]
		return pick == harvest.PickLast
	})
	if hit == nil {
		return scope.Slice(0, 0)
	}
	return scope.Slice(0, 0).AddNodes(hit)
}

// SectionUntilNextHeading returns the content following heading h up to
// the next heading at one of stop levels, as a synthetic scope of disjoint
// subtrees. In siblings mode only h's following siblings are considered.
// In document mode the walk continues past h's parent, descending into any
// subtree that contains a stop heading.
func SectionUntilNextHeading(h *goquery.Selection, stop []int, mode harvest.ScopeMode) *goquery.Selection {
	if h.Length() == 0 {
		return h
	}
	stops := headingSet(stop)
	start := h.Nodes[0]

	var nodes []*html.Node
	if mode == harvest.ScopeDocument {
		nodes = followingSubtrees(start, stops)
	} else {
		for sib := start.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type != html.ElementNode {
				continue
			}
			if _, ok := stops[sib.Data]; ok {
				break
			}
			nodes = append(nodes, sib)
		}
	}
	return h.Slice(0, 0).AddNodes(nodes...)
}

// followingSubtrees walks document order after start and returns maximal
// element subtrees free of stop headings, ending at the first stop heading.
func followingSubtrees(start *html.Node, stops map[string]struct{}) []*html.Node {
	var out []*html.Node
	n := start
	for {
		for n != nil && n.NextSibling == nil {
			n = n.Parent
		}
		if n == nil {
			return out
		}
		n = n.NextSibling

		for n.Type == html.ElementNode {
			if _, ok := stops[n.Data]; ok {
				return out
			}
			if !containsTag(n, stops) {
				out = append(out, n)
				break
			}
			n = n.FirstChild
		}
	}
}

func containsTag(n *html.Node, tags map[string]struct{}) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if _, ok := tags[c.Data]; ok {
			return true
		}
		if containsTag(c, tags) {
			return true
		}
	}
	return false
}

// containerHeading is searched inside a container for its caption.
const containerHeading = "button, summary, h1, h2, h3, h4, h5, h6"

// FindContainer returns the first element matching selector within scope
// whose caption matches a title, narrowed to content when that selector
// matches inside it.
func FindContainer(scope *goquery.Selection, selector, content string, titles []string, match harvest.HeadingMatch) *goquery.Selection {
	var hit *goquery.Selection
	selectAll(scope, selector).EachWithBreak(func(_ int, c *goquery.Selection) bool {
		caption := c.Find(containerHeading).First()
		if caption.Length() == 0 || !titleMatches(textOf(caption), titles, match) {
			return true
		}
		hit = c
		if content != "" {
			if body := c.Find(content).First(); body.Length() > 0 {
				hit = body
			}
		}
		return false
	})
	if hit == nil {
		return scope.Slice(0, 0)
	}
	return hit
}

// ResolveSection applies a chain of section steps to scope. Any step that
// finds nothing yields an empty selection.
func ResolveSection(scope *goquery.Selection, steps []harvest.SectionStep) *goquery.Selection {
	for _, st := range steps {
		if scope.Length() == 0 {
			return scope
		}
		if st.Container != "" {
			scope = FindContainer(scope, st.Container, st.Content, st.Titles, st.Match)
			continue
		}
		levels := st.Levels
		if len(levels) == 0 {
			levels = []int{2}
		}
		stop := st.Stop
		if len(stop) == 0 {
			stop = levels
		}
		h := FindHeading(scope, st.Titles, levels, st.Match, st.Pick)
		scope = SectionUntilNextHeading(h, stop, st.Mode)
	}
	return scope
}
