package harvest

import "strings"

// emptyish values carry no information even though they are non-blank.
var emptyish = map[string]struct{}{
	"-":               {},
	"—":               {},
	"–":               {},
	"n/a":             {},
	"na":              {},
	"not available":   {},
	"not applicable":  {},
	"tbc":             {},
	"to be confirmed": {},
	"competitive":     {},
	"none":            {},
}

// IsEmptyish reports whether v is blank or one of the placeholder values
// sites use in place of real data. Matching is on the whole trimmed,
// lower-cased value, so "N/A fee" is not emptyish.
func IsEmptyish(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return true
	}
	_, ok := emptyish[v]
	return ok
}

// MergeOptions adjusts Merge for one vertical.
type MergeOptions struct {
	// Placeholders are extra emptyish values, compared lower-cased.
	Placeholders []string

	// ListingWins names fields where a non-empty listing value replaces
	// the detail value.
	ListingWins []string
}

// Merge combines a detail record with the listing stub for the same item.
// For every field present in either record the detail value is kept unless
// it is emptyish, in which case the listing value is used when the listing
// has that field; otherwise the field is empty. Merge is total and never
// fails.
func Merge(detail *DetailRecord, listing *ListedItem) *MergedRecord {
	return MergeWith(detail, listing, MergeOptions{})
}

// MergeWith is like Merge with per-vertical options applied.
func MergeWith(detail *DetailRecord, listing *ListedItem, opts MergeOptions) *MergedRecord {
	var d, l Fields
	out := &MergedRecord{}
	if detail != nil {
		d = detail.Fields
		out.Ref, out.URL = detail.Ref, detail.URL
	}
	if listing != nil {
		l = listing.Fields
		if out.Ref == "" {
			out.Ref = listing.Ref
		}
		if out.URL == "" {
			out.URL = listing.URL
		}
	}

	extra := make(map[string]struct{}, len(opts.Placeholders))
	for _, p := range opts.Placeholders {
		extra[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	empty := func(v string) bool {
		if IsEmptyish(v) {
			return true
		}
		_, ok := extra[strings.ToLower(strings.TrimSpace(v))]
		return ok
	}

	fields := make(Fields, len(d)+len(l))
	for k, v := range d {
		if !empty(v) {
			fields[k] = v
			continue
		}
		if lv, ok := l[k]; ok {
			fields[k] = lv
		} else {
			fields[k] = ""
		}
	}
	for k, v := range l {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	for _, k := range opts.ListingWins {
		if v := strings.TrimSpace(l[k]); v != "" {
			fields[k] = v
		}
	}
	out.Fields = fields
	return out
}
