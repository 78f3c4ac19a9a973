package mock

import "github.com/fwojciec/harvest"

var _ harvest.ListingParser = (*ListingParser)(nil)

// ListingParser is a mock implementation of harvest.ListingParser.
type ListingParser struct {
	ParseListingFn func(html, pageURL string) (*harvest.ListingPage, error)
}

func (p *ListingParser) ParseListing(html, pageURL string) (*harvest.ListingPage, error) {
	return p.ParseListingFn(html, pageURL)
}

var _ harvest.SubtypeParser = (*SubtypeParser)(nil)

// SubtypeParser is a mock implementation of harvest.SubtypeParser.
type SubtypeParser struct {
	ParseSubtypesFn func(html, pageURL string, route *harvest.Route) ([]harvest.Subtype, error)
}

func (p *SubtypeParser) ParseSubtypes(html, pageURL string, route *harvest.Route) ([]harvest.Subtype, error) {
	return p.ParseSubtypesFn(html, pageURL, route)
}

var _ harvest.DetailExtractor = (*DetailExtractor)(nil)

// DetailExtractor is a mock implementation of harvest.DetailExtractor.
type DetailExtractor struct {
	ExtractDetailFn func(html, pageURL string) (*harvest.DetailRecord, error)
}

func (e *DetailExtractor) ExtractDetail(html, pageURL string) (*harvest.DetailRecord, error) {
	return e.ExtractDetailFn(html, pageURL)
}
