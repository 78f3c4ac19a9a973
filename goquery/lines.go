package goquery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultChrome lists interface lines found on most listing sites that
// never carry field data.
var DefaultChrome = []string{
	"menu",
	"print",
	"skip to main content",
	"hide",
	"show",
	"continue",
	"skip to results",
	"skip to results page nav",
	"hide all sections",
	"show all sections",
	"find on google maps",
}

// DefaultChromePrefixes lists prefixes of interface lines.
var DefaultChromePrefixes = []string{
	"save ",
	"print this job",
	"share this job",
	"report this job",
	"you will be signed out soon",
}

var punctOnly = regexp.MustCompile(`^[\s,.;:–—-]+$`)

// Vocabulary recognises chrome: interface text such as navigation and
// action buttons that is dropped from extracted lines.
type Vocabulary struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewVocabulary returns a vocabulary of the defaults plus the given exact
// lines and prefixes. Matching is case-insensitive.
func NewVocabulary(exact, prefixes []string) *Vocabulary {
	v := &Vocabulary{exact: make(map[string]struct{})}
	for _, s := range DefaultChrome {
		v.exact[s] = struct{}{}
	}
	for _, s := range exact {
		v.exact[strings.ToLower(clean(s))] = struct{}{}
	}
	v.prefixes = append(v.prefixes, DefaultChromePrefixes...)
	for _, p := range prefixes {
		v.prefixes = append(v.prefixes, strings.ToLower(p))
	}
	return v
}

// IsChrome reports whether line is interface text. Punctuation-only lines
// are always chrome. A nil Vocabulary only drops punctuation.
func (v *Vocabulary) IsChrome(line string) bool {
	if punctOnly.MatchString(line) {
		return true
	}
	if v == nil {
		return false
	}
	low := strings.ToLower(normalizeApostrophes(clean(line)))
	if _, ok := v.exact[low]; ok {
		return true
	}
	for _, p := range v.prefixes {
		if strings.HasPrefix(low, p) {
			return true
		}
	}
	return false
}

// Lines returns the visible text lines of scope in document order. Each
// line is whitespace-collapsed and apostrophe-normalized; empty lines and
// chrome are dropped.
func Lines(scope *goquery.Selection, vocab *Vocabulary) []string {
	var out []string
	for _, n := range scope.Nodes {
		walkText(n, func(t string) {
			for _, ln := range strings.Split(t, "\n") {
				ln = clean(normalizeApostrophes(ln))
				if ln == "" || vocab.IsChrome(ln) {
					continue
				}
				out = append(out, ln)
			}
		})
	}
	return out
}
