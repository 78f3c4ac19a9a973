package harvest

import (
	"encoding/hex"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fields maps a field name to its trimmed text value.
type Fields map[string]string

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Hash returns a hex xxhash64 fingerprint of the field set. Two field sets
// with equal names and values hash identically regardless of map order.
func (f Fields) Hash() string {
	d := xxhash.New()
	for _, k := range f.Names() {
		_, _ = d.WriteString(k)
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(f[k])
		_, _ = d.Write([]byte{0})
	}
	return hex.EncodeToString(d.Sum(nil))
}

// ListedItem is a provisional stub extracted from one search-result card.
// Produced per page and consumed immediately; never stored on its own.
type ListedItem struct {
	Ref    string
	URL    string
	Fields Fields
}

// DetailRecord holds every field extracted from one item's detail page.
type DetailRecord struct {
	Ref    string
	URL    string
	Fields Fields
}

// MergedRecord is the unit persisted by an EntityStore.
type MergedRecord struct {
	Ref    string
	URL    string
	Fields Fields
}

// ListingPage is the parsed content of one search-result page.
type ListingPage struct {
	// Items in document order, deduplicated by ref.
	Items []ListedItem

	// NextURL is the absolute URL of the following page, or empty.
	NextURL string
}

// ListingParser turns a search-result page into item stubs.
type ListingParser interface {
	ParseListing(html, pageURL string) (*ListingPage, error)
}

// DetailExtractor turns a detail page into a DetailRecord.
type DetailExtractor interface {
	ExtractDetail(html, pageURL string) (*DetailRecord, error)
}
