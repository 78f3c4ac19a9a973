package crawl

import (
	"context"

	"github.com/fwojciec/harvest"
)

// Discoverer expands a vertical's routes into listing crawls by reading
// each route's index page.
type Discoverer struct {
	Fetcher harvest.Fetcher
	Parser  harvest.SubtypeParser
}

// Discover fetches the index page of r and returns one query per subtype,
// in page order.
func (d *Discoverer) Discover(ctx context.Context, r *harvest.Route) ([]harvest.Query, error) {
	html, err := d.Fetcher.Fetch(ctx, r.IndexURL)
	if err != nil {
		return nil, err
	}
	subtypes, err := d.Parser.ParseSubtypes(html, r.IndexURL, r)
	if err != nil {
		return nil, err
	}
	queries := make([]harvest.Query, len(subtypes))
	for i, s := range subtypes {
		queries[i] = r.Query(s)
	}
	return queries, nil
}

// discover runs every route of the run in order. A route that fails is
// recorded as a listing error and the others still run.
func (rn *run) discover(ctx context.Context, routes []*harvest.Route) []harvest.Query {
	d := &Discoverer{Fetcher: rn.session, Parser: rn.Subtypes}
	var queries []harvest.Query
	for _, r := range routes {
		if ctx.Err() != nil {
			break
		}
		q, err := d.Discover(ctx, r)
		if err != nil {
			if ctx.Err() == nil {
				rn.listingError(ctx, harvest.Query{Category: r.Name, StartURL: r.IndexURL}, err)
			}
			continue
		}
		rn.emit(ProgressEvent{Type: ProgressDiscovered, Query: harvest.Query{Category: r.Name}, URL: r.IndexURL, Items: len(q)})
		queries = append(queries, q...)
	}
	return queries
}
