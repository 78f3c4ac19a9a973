package goquery

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
)

// Ensure Extractor implements harvest.DetailExtractor.
var _ harvest.DetailExtractor = (*Extractor)(nil)

// Extractor applies a vertical's detail rules to detail pages.
type Extractor struct {
	vertical *harvest.Vertical
	vocab    *Vocabulary
	conv     harvest.Converter
}

// NewExtractor creates an Extractor for v. conv renders markdown rules and
// may be nil when v has none.
func NewExtractor(v *harvest.Vertical, conv harvest.Converter) (*Extractor, error) {
	if err := v.Compile(); err != nil {
		return nil, err
	}
	return &Extractor{
		vertical: v,
		vocab:    NewVocabulary(v.Chrome, v.ChromePrefixes),
		conv:     conv,
	}, nil
}

// ExtractDetail parses one detail page. Every detail rule field is present
// in the result, empty when nothing was found. Ref is left for the caller.
func (e *Extractor) ExtractDetail(html, pageURL string) (*harvest.DetailRecord, error) {
	doc, err := Parse(html)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "invalid page URL: %v", err)
	}
	root := doc.Root(e.vertical.Root)

	rc := &ruleContext{
		title:  clean(normalizeApostrophes(textOf(root.Find("h1").First()))),
		base:   base,
		vocab:  e.vocab,
		labels: e.vertical.Labels,
		conv:   e.conv,
	}
	return &harvest.DetailRecord{
		URL:    pageURL,
		Fields: apply(e.vertical.Detail, root, rc),
	}, nil
}

// ruleContext is the per-page state shared by the rules of one record.
type ruleContext struct {
	title  string
	anchor *goquery.Selection
	base   *url.URL
	vocab  *Vocabulary
	labels []string
	conv   harvest.Converter

	known map[string]struct{}
}

func (rc *ruleContext) remember(value string) {
	if rc.known == nil {
		rc.known = make(map[string]struct{})
	}
	for _, ln := range strings.Split(value, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			rc.known[ln] = struct{}{}
		}
	}
}

func (rc *ruleContext) isKnown(line string) bool {
	if line == rc.title || isLabelLine(line, rc.labels) {
		return true
	}
	_, ok := rc.known[line]
	return ok
}

// apply evaluates rules against root. Every rule field is initialised to
// "" and a field keeps the first non-empty value of its fallback chain.
func apply(rules []harvest.Rule, root *goquery.Selection, rc *ruleContext) harvest.Fields {
	fields := make(harvest.Fields, len(rules))
	for _, r := range rules {
		if _, ok := fields[r.Field]; !ok {
			fields[r.Field] = ""
		}
	}
	for i := range rules {
		r := &rules[i]
		if fields[r.Field] != "" {
			continue
		}
		scope := root
		if len(r.Section) > 0 {
			scope = ResolveSection(root, r.Section)
			if scope.Length() == 0 {
				continue
			}
		}
		v := strings.TrimSpace(evaluate(r, scope, rc))
		if r.Format == harvest.FormatURL && v != "" {
			v = FirstURL(v)
		}
		if v != "" {
			fields[r.Field] = v
			rc.remember(v)
		}
	}
	return fields
}

func evaluate(r *harvest.Rule, scope *goquery.Selection, rc *ruleContext) string {
	switch r.Kind {
	case harvest.KindHeading:
		return firstHeading(scope, r)
	case harvest.KindAnchor:
		if rc.anchor == nil {
			return ""
		}
		return clean(normalizeApostrophes(textOf(rc.anchor)))
	case harvest.KindAfter:
		return lineAfter(Lines(scope, rc.vocab), r, rc)
	case harvest.KindLabel:
		return LabelValue(Lines(scope, rc.vocab), r.Label, rc.labels)
	case harvest.KindBlock:
		return labelBlock(Lines(scope, rc.vocab), r)
	case harvest.KindBullets:
		return strings.Join(BulletItems(scope, rc.vocab), "\n")
	case harvest.KindText:
		return strings.Join(textLines(scope, r, rc), "\n")
	case harvest.KindProse:
		return Prose(scope, rc.vocab)
	case harvest.KindBefore:
		return linesBefore(Lines(scope, rc.vocab), r.Label)
	case harvest.KindLine:
		return matchingLine(Lines(scope, rc.vocab), r, rc)
	case harvest.KindSplit:
		return splitLine(Lines(scope, rc.vocab), r, rc)
	case harvest.KindLink:
		return LinkHref(scope, r.Label, rc.base)
	case harvest.KindExternalLink:
		return ExternalLink(scope, r.Values)
	case harvest.KindDefinition:
		if r.Format == harvest.FormatURL {
			return DefinitionLink(scope, r.Label)
		}
		return DefinitionValue(scope, r.Label, rc.vocab)
	case harvest.KindDetails:
		return DetailsBlock(scope, r.Label, rc.vocab)
	case harvest.KindParagraph:
		return FirstParagraph(scope, r.MinLen, rc.vocab)
	case harvest.KindMarkdown:
		return markdown(scope, rc.conv)
	case harvest.KindFirstLine:
		lines := textLines(scope, r, rc)
		if len(lines) == 0 {
			return ""
		}
		return lines[0]
	case harvest.KindRestLines:
		lines := Lines(scope, rc.vocab)
		if len(lines) < 2 {
			return ""
		}
		return strings.Join(lines[1:], "\n")
	case harvest.KindExists:
		if LabelValue(Lines(scope, rc.vocab), r.Label, rc.labels) != "" {
			return "true"
		}
		return "false"
	}
	return ""
}

func firstHeading(scope *goquery.Selection, r *harvest.Rule) string {
	levels := r.Levels
	if len(levels) == 0 {
		levels = []int{1}
	}
	skip := make(map[string]struct{}, len(r.Values))
	for _, v := range r.Values {
		skip[normalizeHeading(v)] = struct{}{}
	}
	var text string
	selectAll(scope, headingSelector(levels)).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		t := clean(normalizeApostrophes(textOf(h)))
		if t == "" {
			return true
		}
		if _, ok := skip[normalizeHeading(t)]; ok {
			return true
		}
		text = t
		return false
	})
	return text
}

// lineAfter returns the line Offset places after the line introduced by
// Label, or after the title when Label is empty.
func lineAfter(lines []string, r *harvest.Rule, rc *ruleContext) string {
	offset := r.Offset
	if offset < 1 {
		offset = 1
	}
	prefix := strings.ToLower(normalizeApostrophes(r.Label))
	for i, ln := range lines {
		var hit bool
		if prefix == "" {
			hit = rc.title != "" && ln == rc.title
		} else {
			hit = strings.HasPrefix(strings.ToLower(ln), prefix)
		}
		if !hit {
			continue
		}
		if i+offset < len(lines) {
			return lines[i+offset]
		}
		return ""
	}
	return ""
}

// labelBlock returns the block introduced by Label. Offset skips leading
// value lines, with an inline value counting as the first of them.
func labelBlock(lines []string, r *harvest.Rule) string {
	inline, block, found := blockAfterLabel(lines, r.Label, r.Stops)
	if !found {
		return ""
	}
	if r.Offset == 0 && inline != "" {
		return inline
	}
	skip := r.Offset
	if inline != "" {
		skip--
	}
	if skip > len(block) {
		skip = len(block)
	}
	var out []string
	for _, ln := range block[skip:] {
		if ex := r.ExcludeRegexp(); ex != nil && ex.MatchString(ln) {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}

func textLines(scope *goquery.Selection, r *harvest.Rule, rc *ruleContext) []string {
	var bullets map[string]struct{}
	if r.SkipBullets {
		bullets = make(map[string]struct{})
		for _, ln := range Lines(selectAll(scope, "li"), rc.vocab) {
			bullets[ln] = struct{}{}
		}
	}
	var out []string
	for _, ln := range Lines(scope, rc.vocab) {
		if _, ok := bullets[ln]; ok {
			if r.Kind == harvest.KindFirstLine && len(out) == 0 {
				return nil
			}
			continue
		}
		if ex := r.ExcludeRegexp(); ex != nil && ex.MatchString(ln) {
			if r.Kind == harvest.KindFirstLine && len(out) == 0 {
				return nil
			}
			continue
		}
		out = append(out, ln)
	}
	return out
}

// linesBefore returns the lines preceding the first line equal to label.
// Returns "" when no line matches.
func linesBefore(lines []string, label string) string {
	want := strings.ToLower(normalizeApostrophes(label))
	for i, ln := range lines {
		if strings.ToLower(ln) == want {
			return strings.Join(lines[:i], "\n")
		}
	}
	return ""
}

func matchingLine(lines []string, r *harvest.Rule, rc *ruleContext) string {
	var values map[string]struct{}
	if len(r.Values) > 0 {
		values = make(map[string]struct{}, len(r.Values))
		for _, v := range r.Values {
			values[strings.ToLower(v)] = struct{}{}
		}
	}
	re, ex := r.Regexp(), r.ExcludeRegexp()
	seen := 0
	for _, ln := range lines {
		n := utf8.RuneCountInString(ln)
		if n < r.MinLen || (r.MaxLen > 0 && n > r.MaxLen) {
			continue
		}
		if values != nil {
			if _, ok := values[strings.ToLower(ln)]; !ok {
				continue
			}
		}
		if ex != nil && ex.MatchString(ln) {
			continue
		}
		if r.SkipKnown && rc.isKnown(ln) {
			continue
		}
		value := ln
		if re != nil {
			m := re.FindStringSubmatch(ln)
			if m == nil {
				continue
			}
			if i := re.SubexpIndex("v"); i > 0 {
				value = m[i]
			}
		}
		if seen == r.Offset {
			return value
		}
		seen++
	}
	return ""
}

func splitLine(lines []string, r *harvest.Rule, rc *ruleContext) string {
	ex := r.ExcludeRegexp()
	for _, ln := range lines {
		if ln == rc.title || !strings.Contains(ln, r.Sep) {
			continue
		}
		if ex != nil && ex.MatchString(ln) {
			continue
		}
		parts := strings.SplitN(ln, r.Sep, 2)
		head, tail := clean(parts[0]), clean(parts[1])
		if head == "" || tail == "" {
			continue
		}
		if r.Part == 0 {
			return head
		}
		return tail
	}
	return ""
}

func markdown(scope *goquery.Selection, conv harvest.Converter) string {
	if conv == nil || scope.Length() == 0 {
		return ""
	}
	var b strings.Builder
	scope.Each(func(_ int, s *goquery.Selection) {
		if h, err := goquery.OuterHtml(s); err == nil {
			b.WriteString(h)
		}
	})
	md, err := conv.Convert(b.String())
	if err != nil {
		return ""
	}
	return md
}
