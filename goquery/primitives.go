package goquery

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// BulletItems returns the text of every list item in scope in document
// order, dropping empty items and chrome.
func BulletItems(scope *goquery.Selection, vocab *Vocabulary) []string {
	var items []string
	selectAll(scope, "li").Each(func(_ int, li *goquery.Selection) {
		t := clean(normalizeApostrophes(textOf(li)))
		if t == "" || vocab.IsChrome(t) {
			return
		}
		items = append(items, t)
	})
	return items
}

func keyOf(s string) string {
	return strings.ToLower(strings.TrimSuffix(clean(normalizeApostrophes(s)), ":"))
}

// definitionCell returns the dd or td paired with key in a definition list
// or two-column table within scope, or nil.
func definitionCell(scope *goquery.Selection, key string) *goquery.Selection {
	want := keyOf(key)
	var cell *goquery.Selection

	selectAll(scope, "dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if keyOf(textOf(dt)) != want {
			return true
		}
		cell = dt.NextAllFiltered("dd").First()
		return false
	})
	if cell != nil {
		return cell
	}

	selectAll(scope, "tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() < 2 || keyOf(textOf(cells.Eq(0))) != want {
			return true
		}
		cell = cells.Eq(1)
		return false
	})
	return cell
}

// DefinitionValue returns the value paired with key in a definition list
// (dt/dd) or a two-column table row (th/td) within scope.
func DefinitionValue(scope *goquery.Selection, key string, vocab *Vocabulary) string {
	cell := definitionCell(scope, key)
	if cell == nil {
		return ""
	}
	return strings.Join(Lines(cell, vocab), "\n")
}

// DefinitionLink is DefinitionValue for link values: the first href in the
// paired cell, else a URL or domain in its text.
func DefinitionLink(scope *goquery.Selection, key string) string {
	cell := definitionCell(scope, key)
	if cell == nil {
		return ""
	}
	if href, ok := cell.Find("a[href]").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		return NormalizeURL(href)
	}
	return FirstURL(textOf(cell))
}

// DetailsBlock returns the body text of the first details element within
// scope whose summary equals summary.
func DetailsBlock(scope *goquery.Selection, summary string, vocab *Vocabulary) string {
	want := keyOf(summary)
	var value string
	selectAll(scope, "details").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		s := d.Find("summary").First()
		if s.Length() == 0 || keyOf(textOf(s)) != want {
			return true
		}
		caption := make(map[string]struct{})
		for _, ln := range Lines(s, vocab) {
			caption[ln] = struct{}{}
		}
		var body []string
		for _, ln := range Lines(d, vocab) {
			if _, ok := caption[ln]; !ok {
				body = append(body, ln)
			}
		}
		value = strings.Join(body, "\n")
		return false
	})
	return value
}

// LinkHref returns the resolved href of the first link within scope whose
// text contains phrase, ignoring case.
func LinkHref(scope *goquery.Selection, phrase string, base *url.URL) string {
	want := strings.ToLower(phrase)
	var href string
	selectAll(scope, "a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(textOf(a)), want) {
			return true
		}
		raw, _ := a.Attr("href")
		href = resolveURL(base, raw)
		return href == ""
	})
	return href
}

// ExternalLink returns the first absolute link within scope whose host
// does not contain one of skipHosts, falling back to a URL or domain
// mentioned in the scope text.
func ExternalLink(scope *goquery.Selection, skipHosts []string) string {
	var href string
	selectAll(scope, "a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		raw, _ := a.Attr("href")
		u := NormalizeURL(raw)
		low := strings.ToLower(u)
		if !strings.HasPrefix(low, "http") {
			return true
		}
		for _, h := range skipHosts {
			if strings.Contains(low, strings.ToLower(h)) {
				return true
			}
		}
		href = u
		return false
	})
	if href != "" {
		return href
	}
	return FirstURL(textOf(scope))
}

// FirstParagraph returns the first paragraph within scope of at least
// minLen characters that is not chrome.
func FirstParagraph(scope *goquery.Selection, minLen int, vocab *Vocabulary) string {
	var text string
	selectAll(scope, "p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t := clean(normalizeApostrophes(textOf(p)))
		if t == "" || vocab.IsChrome(t) || utf8.RuneCountInString(t) < minLen {
			return true
		}
		text = t
		return false
	})
	return text
}

// Prose renders the top-level blocks of scope one per line: paragraph
// text, list items prefixed "- ", and any other block longer than three
// characters. Consecutive duplicate lines are collapsed.
func Prose(scope *goquery.Selection, vocab *Vocabulary) string {
	var lines []string
	add := func(s string) {
		if s == "" || vocab.IsChrome(s) {
			return
		}
		if len(lines) > 0 && lines[len(lines)-1] == s {
			return
		}
		lines = append(lines, s)
	}
	scope.Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "script", "style", "button":
		case "p":
			add(clean(normalizeApostrophes(textOf(s))))
		case "ul", "ol":
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				if t := clean(normalizeApostrophes(textOf(li))); t != "" {
					add("- " + t)
				}
			})
		default:
			if t := clean(normalizeApostrophes(textOf(s))); utf8.RuneCountInString(t) > 3 {
				add(t)
			}
		}
	})
	return strings.Join(lines, "\n")
}

var (
	urlInText  = regexp.MustCompile(`(?i)(https?://[^\s)]+)`)
	domainLike = regexp.MustCompile(`(?i)^(?:https?://|www\.)\S+$`)
	tokenSplit = regexp.MustCompile(`[\s,]+`)
)

// NormalizeURL turns protocol-relative and www-prefixed links into https
// URLs and leaves anything else untouched.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(strings.ToLower(u), "www."):
		return "https://" + u
	}
	return u
}

// FirstURL returns the first URL or bare domain mentioned in text,
// normalized to an absolute https URL where needed.
func FirstURL(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if m := urlInText.FindStringSubmatch(text); m != nil {
		return NormalizeURL(m[1])
	}
	for _, tok := range tokenSplit.Split(text, -1) {
		t := strings.Trim(tok, "()[]{}<>.,;")
		if t == "" {
			continue
		}
		if domainLike.MatchString(t) {
			return NormalizeURL(t)
		}
		if !strings.Contains(t, "@") && strings.Contains(t, ".") {
			if strings.HasPrefix(strings.ToLower(t), "http") {
				return NormalizeURL(t)
			}
			return NormalizeURL("https://" + t)
		}
	}
	return ""
}
