package goquery

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

var bulletPrefix = regexp.MustCompile(`^[\s•*\-–—·]+`)

// stripBullet removes leading list glyphs such as "• " or "* ".
func stripBullet(s string) string {
	return strings.TrimSpace(bulletPrefix.ReplaceAllString(s, ""))
}

func labelKey(label string) string {
	return strings.ToLower(normalizeApostrophes(strings.TrimSuffix(strings.TrimSpace(label), ":")))
}

var labelPatterns sync.Map

// labelPattern returns the cached matcher for a line introducing label. The
// label must be followed by a colon, whitespace or the end of the line, so
// "Wage" never matches "Wages and benefits".
func labelPattern(label string) *regexp.Regexp {
	key := labelKey(label)
	if re, ok := labelPatterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(key) + `(?:\s*:\s*|\s+|$)(.*)$`)
	labelPatterns.Store(key, re)
	return re
}

// isLabelLine reports whether line starts with one of labels.
func isLabelLine(line string, labels []string) bool {
	low := strings.ToLower(normalizeApostrophes(stripBullet(line)))
	for _, l := range labels {
		if hasLabelPrefix(low, labelKey(l)) {
			return true
		}
	}
	return false
}

// hasLabelPrefix reports whether low starts with key as a whole word.
func hasLabelPrefix(low, key string) bool {
	if key == "" || !strings.HasPrefix(low, key) {
		return false
	}
	rest := low[len(key):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return r == ':' || unicode.IsSpace(r)
}

// LabelValue finds the first line introducing label and returns its value.
// The inline form "Label: value" returns the remainder. Otherwise the next
// line is the value unless it starts with one of labels. lines is not
// modified.
func LabelValue(lines []string, label string, labels []string) string {
	re := labelPattern(label)
	for i, ln := range lines {
		t := stripBullet(normalizeApostrophes(ln))
		if t == "" {
			continue
		}
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if v := clean(m[1]); v != "" {
			return v
		}
		if i+1 < len(lines) {
			next := stripBullet(normalizeApostrophes(lines[i+1]))
			if next != "" && !isLabelLine(next, labels) {
				return clean(next)
			}
		}
		return ""
	}
	return ""
}

// blockAfterLabel returns the inline remainder of the label line and the
// lines after it up to the first stop label.
func blockAfterLabel(lines []string, label string, stops []string) (inline string, block []string, found bool) {
	base := labelKey(label)
	stopSet := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		stopSet[normalizeHeading(s)] = struct{}{}
	}
	for i, ln := range lines {
		low := strings.ToLower(clean(normalizeApostrophes(ln)))
		if strings.TrimSuffix(low, ":") != base &&
			!strings.HasPrefix(low, base+":") &&
			!strings.HasPrefix(low, base+" -") {
			continue
		}
		if idx := strings.Index(ln, ":"); idx >= 0 {
			inline = strings.TrimSpace(ln[idx+1:])
		}
		for _, next := range lines[i+1:] {
			if _, ok := stopSet[normalizeHeading(next)]; ok {
				break
			}
			block = append(block, next)
		}
		return inline, block, true
	}
	return "", nil, false
}

// BlockAfterLabel returns the text introduced by a label line: the inline
// remainder when present, else the following lines up to the first line
// equal to a stop label.
func BlockAfterLabel(lines []string, label string, stops []string) string {
	inline, block, _ := blockAfterLabel(lines, label, stops)
	if inline != "" {
		return inline
	}
	return strings.Join(block, "\n")
}
