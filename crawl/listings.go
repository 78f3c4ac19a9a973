package crawl

import (
	"context"
	"iter"

	"github.com/fwojciec/harvest"
)

// Crawler walks the paginated search results of one query.
type Crawler struct {
	Fetcher harvest.Fetcher
	Parser  harvest.ListingParser

	// Seen is shared by every query of a run. Items already seen are not
	// yielded again. Nil disables cross-query dedup.
	Seen *SeenSet

	// BeforePage, if set, is called before each listing page is fetched.
	// Returning false ends the crawl without fetching the page.
	BeforePage func(pageURL string) bool

	// OnPage, if set, is called after each listing page is parsed.
	OnPage func(pageURL string, items int)
}

// Listings yields the item stubs reachable from startURL, page by page in
// document order. The crawl ends when a page has no next link or links to
// a page already visited. A fetch or parse error is yielded once and ends
// the sequence. Breaking out of the loop stops before the next page is
// fetched.
func (c *Crawler) Listings(ctx context.Context, startURL string) iter.Seq2[harvest.ListedItem, error] {
	return func(yield func(harvest.ListedItem, error) bool) {
		visited := make(map[string]struct{})
		pageURL := startURL

		for pageURL != "" {
			if _, ok := visited[pageURL]; ok {
				return
			}
			visited[pageURL] = struct{}{}

			if err := ctx.Err(); err != nil {
				yield(harvest.ListedItem{}, err)
				return
			}
			if c.BeforePage != nil && !c.BeforePage(pageURL) {
				return
			}

			html, err := c.Fetcher.Fetch(ctx, pageURL)
			if err != nil {
				yield(harvest.ListedItem{}, err)
				return
			}
			page, err := c.Parser.ParseListing(html, pageURL)
			if err != nil {
				yield(harvest.ListedItem{}, err)
				return
			}
			if c.OnPage != nil {
				c.OnPage(pageURL, len(page.Items))
			}

			for _, item := range page.Items {
				if c.Seen != nil && !c.Seen.Add(item.Ref) {
					continue
				}
				if !yield(item, nil) {
					return
				}
			}
			pageURL = page.NextURL
		}
	}
}
