package harvest

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// MaxCardDepth bounds how many ancestors the card search climbs from an
// item link before giving up on the item.
const MaxCardDepth = 15

// RuleKind selects how a Rule pulls a value out of its scope.
type RuleKind string

const (
	// KindHeading takes the first heading at Levels (h1 by default) whose
	// text is not one of Values.
	KindHeading RuleKind = "heading"
	// KindAnchor takes the text of the item link. Listing rules only.
	KindAnchor RuleKind = "anchor"
	// KindAfter takes the line Offset places after the line equal to Label,
	// or after the title line when Label is empty.
	KindAfter RuleKind = "after"
	// KindLabel takes the value of a "Label: value" or "Label" / "value"
	// line pair.
	KindLabel RuleKind = "label"
	// KindBlock takes the lines after a label line up to one of Stops.
	KindBlock RuleKind = "block"
	// KindBullets takes the text of every list item, one per line.
	KindBullets RuleKind = "bullets"
	// KindText takes every visible line of the scope.
	KindText RuleKind = "text"
	// KindProse takes paragraphs, list items prefixed "- " and other
	// blocks of the scope, one per line.
	KindProse RuleKind = "prose"
	// KindBefore takes the lines preceding the line equal to Label.
	KindBefore RuleKind = "before"
	// KindLine takes the Offset-th line that matches Pattern, does not
	// match Exclude, equals one of Values when set and has between MinLen
	// and MaxLen characters. A group named v narrows the value.
	KindLine RuleKind = "line"
	// KindSplit takes part Part of the first line split on Sep.
	KindSplit RuleKind = "split"
	// KindLink takes the resolved href of the first link whose text
	// contains Label.
	KindLink RuleKind = "link"
	// KindExternalLink takes the first absolute href whose host is not
	// one of Values, falling back to a URL found in the scope text.
	KindExternalLink RuleKind = "external-link"
	// KindDefinition takes the value paired with the key Label in a
	// definition list or two-column table.
	KindDefinition RuleKind = "definition"
	// KindDetails takes the body of the disclosure widget titled Label.
	KindDetails RuleKind = "details"
	// KindParagraph takes the first paragraph at least MinLen long.
	KindParagraph RuleKind = "paragraph"
	// KindMarkdown converts the scope to Markdown.
	KindMarkdown RuleKind = "markdown"
	// KindFirstLine takes the first visible line of the scope.
	KindFirstLine RuleKind = "first-line"
	// KindRestLines takes every visible line after the first.
	KindRestLines RuleKind = "rest-lines"
	// KindExists yields "true" when a Label value is present.
	KindExists RuleKind = "exists"
)

var ruleKinds = map[RuleKind]struct{}{
	KindHeading: {}, KindAnchor: {}, KindAfter: {}, KindLabel: {},
	KindBlock: {}, KindBullets: {}, KindText: {}, KindProse: {},
	KindBefore: {}, KindLine: {}, KindSplit: {}, KindLink: {},
	KindExternalLink: {}, KindDefinition: {}, KindDetails: {},
	KindParagraph: {}, KindMarkdown: {}, KindFirstLine: {},
	KindRestLines: {}, KindExists: {},
}

// Format post-processes an extracted value.
type Format string

const (
	FormatNone Format = ""
	// FormatURL reduces a value to the first URL or domain it contains.
	FormatURL Format = "url"
)

// HeadingMatch controls how heading text is compared with section titles.
type HeadingMatch int

const (
	MatchExact HeadingMatch = iota
	MatchPrefix
	MatchContains
)

// Pick chooses between several headings with the same title.
type Pick int

const (
	PickFirst Pick = iota
	PickLast
)

// ScopeMode controls how the content under a heading is collected.
type ScopeMode int

const (
	// ScopeSiblings collects following siblings up to the next stop heading.
	ScopeSiblings ScopeMode = iota
	// ScopeDocument collects everything after the heading in document
	// order up to the next stop heading, wherever it is nested.
	ScopeDocument
)

// SectionStep narrows a rule's scope to the content under one heading.
// Steps in a chain are applied in order, each searching within the
// previous scope. Levels defaults to h2 and Stop to Levels.
type SectionStep struct {
	Titles []string
	Levels []int
	Stop   []int
	Match  HeadingMatch
	Pick   Pick
	Mode   ScopeMode

	// Container, when set, searches elements matching this selector
	// (an accordion section, say) whose heading contains a title instead
	// of searching headings. Content selects the body within the match.
	Container string
	Content   string
}

// Rule extracts one field. Rules sharing a field form a fallback chain:
// the first non-empty value wins.
type Rule struct {
	Field   string
	Kind    RuleKind
	Section []SectionStep

	Label   string
	Stops   []string
	Values  []string
	Pattern string
	Exclude string
	Offset  int
	MinLen  int
	MaxLen  int
	Part    int
	Sep     string
	Levels  []int

	// SkipKnown ignores label lines and lines equal to the title or to any
	// value already extracted for another field.
	SkipKnown bool

	// SkipBullets ignores lines that repeat a list item of the scope.
	SkipBullets bool

	Format Format

	pattern *regexp.Regexp
	exclude *regexp.Regexp
}

// Regexp returns the compiled Pattern, or nil.
func (r *Rule) Regexp() *regexp.Regexp { return r.pattern }

// ExcludeRegexp returns the compiled Exclude, or nil.
func (r *Rule) ExcludeRegexp() *regexp.Regexp { return r.exclude }

func (r *Rule) compile() error {
	if r.Field == "" {
		return Errorf(EINVALID, "field name required")
	}
	if _, ok := ruleKinds[r.Kind]; !ok {
		return Errorf(EINVALID, "unknown kind %q", r.Kind)
	}
	var err error
	if r.Pattern != "" {
		if r.pattern, err = regexp.Compile(r.Pattern); err != nil {
			return Errorf(EINVALID, "bad pattern %q: %v", r.Pattern, err)
		}
	}
	if r.Exclude != "" {
		if r.exclude, err = regexp.Compile(r.Exclude); err != nil {
			return Errorf(EINVALID, "bad exclude %q: %v", r.Exclude, err)
		}
	}
	switch r.Kind {
	case KindLabel, KindBlock, KindBefore, KindLink, KindDefinition, KindDetails, KindExists:
		if r.Label == "" {
			return Errorf(EINVALID, "%s rule needs a label", r.Kind)
		}
	case KindSplit:
		if r.Sep == "" {
			return Errorf(EINVALID, "split rule needs a separator")
		}
	}
	for i, s := range r.Section {
		if len(s.Titles) == 0 {
			return Errorf(EINVALID, "section step %d needs a title", i)
		}
	}
	return nil
}

// CardCriteria decides whether an ancestor of an item link is that item's
// result card. The ancestor must already reach exactly one ref.
type CardCriteria struct {
	// Labels are card captions looked for in the ancestor's text.
	Labels []string

	// MinLabels is how many Labels must appear.
	MinLabels int

	// Containers are tag names accepted regardless of label hits.
	Containers []string
}

// Accept reports whether an element with the given tag and text qualifies.
// Criteria without labels or containers accept any element.
func (c *CardCriteria) Accept(tag, text string) bool {
	if len(c.Labels) == 0 && len(c.Containers) == 0 {
		return true
	}
	if len(c.Labels) > 0 {
		hits := 0
		for _, l := range c.Labels {
			if strings.Contains(text, l) {
				hits++
			}
		}
		if hits >= c.MinLabels {
			return true
		}
	}
	for _, t := range c.Containers {
		if t == tag {
			return true
		}
	}
	return false
}

// Vertical is the static configuration of one listing site.
type Vertical struct {
	Name        string
	Description string
	BaseURL     string

	// SearchURL is a listing start URL template; {query} is replaced
	// with the escaped subcategory.
	SearchURL string

	// Root selects the page region searched by every rule. Defaults to
	// "main"; the whole document is used when nothing matches.
	Root string

	// Delay is the politeness pause after each request.
	Delay time.Duration

	// LinkSelector matches candidate item links on listing pages.
	LinkSelector string

	// RefPattern extracts a ref from an href via its first group.
	// RefParams instead names query parameters holding the ref, tried in
	// order, on hrefs containing RefPath.
	RefPattern string
	RefParams  []string
	RefPath    string
	RefUpper   bool

	// AnchorWithin, when set, drops item links not nested in one of these
	// tags.
	AnchorWithin []string

	// Card locates each item's result card. Nil yields bare stubs.
	Card *CardCriteria

	Listing []Rule
	Detail  []Rule

	// Labels are the vertical's field captions. A line starting with one
	// is never taken as another label's value.
	Labels []string

	Chrome         []string
	ChromePrefixes []string

	Placeholders []string
	ListingWins  []string

	// TitleField names the display title used for progress lines and
	// image prompts.
	TitleField string

	// ImageTheme opens the image prompt.
	ImageTheme string

	// Routes are discovered entry points used when a run has no plan.
	Routes []Route

	refRe    *regexp.Regexp
	compiled bool
}

// Compile validates the configuration and prepares its patterns. It is
// safe to call more than once.
func (v *Vertical) Compile() error {
	if v.compiled {
		return nil
	}
	if v.Name == "" {
		return Errorf(EINVALID, "vertical name required")
	}
	if v.Root == "" {
		v.Root = "main"
	}
	if v.LinkSelector == "" {
		v.LinkSelector = "a[href]"
	}
	if v.TitleField == "" {
		v.TitleField = "title"
	}
	switch {
	case v.RefPattern != "":
		re, err := regexp.Compile(v.RefPattern)
		if err != nil {
			return Errorf(EINVALID, "vertical %q: bad ref pattern: %v", v.Name, err)
		}
		if re.NumSubexp() < 1 {
			return Errorf(EINVALID, "vertical %q: ref pattern needs a group", v.Name)
		}
		v.refRe = re
	case len(v.RefParams) > 0:
	default:
		return Errorf(EINVALID, "vertical %q: ref pattern or params required", v.Name)
	}
	for i := range v.Listing {
		if err := v.Listing[i].compile(); err != nil {
			return Errorf(EINVALID, "vertical %q: listing rule %d: %s", v.Name, i, ErrorMessage(err))
		}
	}
	for i := range v.Detail {
		if v.Detail[i].Kind == KindAnchor {
			return Errorf(EINVALID, "vertical %q: detail rule %d: anchor rules apply to listings only", v.Name, i)
		}
		if err := v.Detail[i].compile(); err != nil {
			return Errorf(EINVALID, "vertical %q: detail rule %d: %s", v.Name, i, ErrorMessage(err))
		}
	}
	for i := range v.Routes {
		if err := v.Routes[i].compile(); err != nil {
			return Errorf(EINVALID, "vertical %q: %s", v.Name, ErrorMessage(err))
		}
	}
	v.compiled = true
	return nil
}

// RefOf returns the item ref an href points at, or "".
func (v *Vertical) RefOf(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	var ref string
	if v.refRe != nil {
		m := v.refRe.FindStringSubmatch(href)
		if len(m) < 2 {
			return ""
		}
		ref = m[1]
	} else {
		if v.RefPath != "" && !strings.Contains(href, v.RefPath) {
			return ""
		}
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		q := u.Query()
		for _, p := range v.RefParams {
			if ref = q.Get(p); ref != "" {
				break
			}
		}
	}
	if v.RefUpper {
		ref = strings.ToUpper(ref)
	}
	return ref
}

// MergeOptions returns the vertical's merge settings.
func (v *Vertical) MergeOptions() MergeOptions {
	return MergeOptions{Placeholders: v.Placeholders, ListingWins: v.ListingWins}
}

// SearchURLFor expands SearchURL for one subcategory.
func (v *Vertical) SearchURLFor(subcategory string) string {
	return strings.ReplaceAll(v.SearchURL, "{query}", url.QueryEscape(subcategory))
}
