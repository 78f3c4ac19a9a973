package crawl_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
	"github.com/fwojciec/harvest/goquery"
	"github.com/fwojciec/harvest/inmem"
	"github.com/fwojciec/harvest/mock"
	"github.com/fwojciec/harvest/vertical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// site is a fake listing website. Listing pages are keyed by URL; detail
// pages carry their fields directly.
type site struct {
	mu       sync.Mutex
	listings fakePages
	details  map[string]harvest.Fields
	fetched  []string

	// latency holds every fetch open so overlapping requests show up in peak.
	latency  time.Duration
	inflight int
	peak     int
}

func newSite() *site {
	return &site{listings: fakePages{}, details: map[string]harvest.Fields{}}
}

// addItems publishes refs on one listing page and gives each a detail page.
func (s *site) addItems(pageURL, nextURL string, refs ...string) {
	s.listings[pageURL] = &harvest.ListingPage{Items: items(refs...), NextURL: nextURL}
	for _, r := range refs {
		s.details["https://example.com/details/"+r] = harvest.Fields{"title": "Job " + r, "wage": "£" + r}
	}
}

func (s *site) detailFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.fetched {
		if strings.Contains(u, "/details/") {
			n++
		}
	}
	return n
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			s.mu.Lock()
			s.fetched = append(s.fetched, url)
			s.inflight++
			s.peak = max(s.peak, s.inflight)
			s.mu.Unlock()
			defer func() {
				s.mu.Lock()
				s.inflight--
				s.mu.Unlock()
			}()
			time.Sleep(s.latency)
			if _, ok := s.listings[url]; ok {
				return url, nil
			}
			if _, ok := s.details[url]; ok {
				return url, nil
			}
			return "", &harvest.FetchError{URL: url, StatusCode: 404}
		},
		CloseFn: func() error { return nil },
	}
}

func (s *site) extractor() *mock.DetailExtractor {
	return &mock.DetailExtractor{
		ExtractDetailFn: func(html, pageURL string) (*harvest.DetailRecord, error) {
			return &harvest.DetailRecord{URL: pageURL, Fields: s.details[html].Clone()}, nil
		},
	}
}

func testVertical() *harvest.Vertical {
	return &harvest.Vertical{
		Name:       "jobs",
		SearchURL:  "https://example.com/search?q={query}",
		RefPattern: `/details/(\d+)`,
	}
}

func newRunner(s *site, store *inmem.Store) *crawl.Runner {
	return &crawl.Runner{
		Vertical:    testVertical(),
		Fetcher:     s.fetcher(),
		Parser:      s.listings.parser(),
		Extractor:   s.extractor(),
		Store:       store,
		Audit:       store,
		RetryDelays: []time.Duration{},
		NewRunID:    func() string { return "run-1" },
	}
}

func plan(subs ...string) harvest.QueryPlan {
	return harvest.QueryPlan{{Name: "Hospitality", Subcategories: subs}}
}

func noDelay(opts crawl.Options) crawl.Options {
	opts.Delay = -1
	return opts
}

func statuses(t *testing.T, store *inmem.Store, runID string) []harvest.Status {
	t.Helper()
	logs, err := store.FindLogs(context.Background(), harvest.AuditFilter{RunID: &runID})
	require.NoError(t, err)
	out := make([]harvest.Status, len(logs))
	for i, l := range logs {
		out[i] = l.Status
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	t.Run("ingests every item of every query", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "https://example.com/search?q=chef&page=2", "1", "2")
		s.addItems("https://example.com/search?q=chef&page=2", "", "3")
		s.addItems("https://example.com/search?q=waiter", "", "4")
		store := inmem.NewStore()
		r := newRunner(s, store)

		var lines []string
		r.Progress = func(e crawl.ProgressEvent) {
			if l := crawl.FormatProgress(e); l != "" {
				lines = append(lines, l)
			}
		}

		sum, err := r.Run(context.Background(), plan("chef", "waiter"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, &crawl.RunSummary{RunID: "run-1", Created: 4, Queries: 2, Pages: 3}, sum)
		assert.Equal(t, []string{
			"[1/2] category=Hospitality, subcategory=chef",
			"[1] 1 (created) Job 1",
			"[2] 2 (created) Job 2",
			"[3] 3 (created) Job 3",
			"[2/2] category=Hospitality, subcategory=waiter",
			"[4] 4 (created) Job 4",
			"Done. run_id=run-1 created=4, updated=0, skipped=0, error=0",
		}, lines)

		e, err := store.FindEntity(context.Background(), "jobs", "3")
		require.NoError(t, err)
		assert.Equal(t, "Hospitality", e.Category)
		assert.Equal(t, "chef", e.Subcategory)
		assert.Equal(t, "£3", e.Fields["wage"])
		assert.Equal(t, "https://example.com/details/3", e.Fields[harvest.FieldURL])
		assert.Equal(t, "run-1", e.LastScrapeRunID)

		logs, err := store.FindLogs(context.Background(), harvest.AuditFilter{})
		require.NoError(t, err)
		require.Len(t, logs, 4)
		assert.Equal(t, "https://example.com/search?q=waiter", logs[3].StartURL)
		assert.Equal(t, "4", logs[3].Ref)
	})

	t.Run("second run over unchanged items skips them", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2")
		store := inmem.NewStore()
		r := newRunner(s, store)

		_, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))
		require.NoError(t, err)

		r.NewRunID = func() string { return "run-2" }
		s.details["https://example.com/details/2"]["wage"] = "£20"
		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Skipped)
		assert.Equal(t, 1, sum.Updated)
		assert.Equal(t, []harvest.Status{harvest.StatusSkipped, harvest.StatusUpdated}, statuses(t, store, "run-2"))

		e, err := store.FindEntity(context.Background(), "jobs", "2")
		require.NoError(t, err)
		assert.Equal(t, "changed_fields=wage", e.LastScrapeMessage)
	})

	t.Run("stops once MaxRows items were committed", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2", "3", "4", "5")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{MaxRows: 2}))

		require.NoError(t, err)
		assert.Equal(t, 2, sum.Created)
		assert.Equal(t, 2, s.detailFetches())
		for _, ref := range []string{"3", "4", "5"} {
			_, err := store.FindEntity(context.Background(), "jobs", ref)
			assert.Equal(t, harvest.ENOTFOUND, harvest.ErrorCode(err), ref)
		}
	})

	t.Run("sequential runs keep one request in flight", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.latency = 5 * time.Millisecond
		s.addItems("https://example.com/search?q=chef", "https://example.com/search?q=chef&page=2", "1", "2")
		s.addItems("https://example.com/search?q=chef&page=2", "", "3")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 3, sum.Created)
		assert.Equal(t, 1, s.peak)
		assert.Equal(t, []string{
			"https://example.com/search?q=chef",
			"https://example.com/details/1",
			"https://example.com/details/2",
			"https://example.com/search?q=chef&page=2",
			"https://example.com/details/3",
		}, s.fetched)
	})

	t.Run("next page is not fetched once MaxRows is reached", func(t *testing.T) {
		t.Parallel()

		for _, concurrency := range []int{0, 1, 3} {
			s := newSite()
			s.latency = time.Millisecond
			s.addItems("https://example.com/search?q=chef", "https://example.com/search?q=chef&page=2", "1", "2")
			s.addItems("https://example.com/search?q=chef&page=2", "", "3")
			store := inmem.NewStore()
			r := newRunner(s, store)

			sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{MaxRows: 2, Concurrency: concurrency}))

			require.NoError(t, err)
			assert.Equal(t, 2, sum.Created, "concurrency=%d", concurrency)
			assert.Equal(t, 1, sum.Pages, "concurrency=%d", concurrency)
			assert.NotContains(t, s.fetched, "https://example.com/search?q=chef&page=2", "concurrency=%d", concurrency)
		}
	})

	t.Run("skipped items do not count toward MaxRows", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2", "3")
		store := inmem.NewStore()
		_, err := store.Upsert(context.Background(), harvest.UpsertInput{
			Vertical: "jobs",
			Ref:      "1",
			Fields:   harvest.Fields{"title": "Job 1", "wage": "£1", harvest.FieldURL: "https://example.com/details/1"},
			RunID:    "run-0",
		})
		require.NoError(t, err)
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{MaxRows: 2}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Skipped)
		assert.Equal(t, 2, sum.Created)
	})

	t.Run("never overshoots MaxRows with concurrent workers", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{MaxRows: 3, Concurrency: 4}))

		require.NoError(t, err)
		assert.Equal(t, 3, sum.Created)
		got, err := store.FindEntities(context.Background(), harvest.EntityFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("processes every item with concurrent workers", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2", "3", "4", "5", "6")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{Concurrency: 3}))

		require.NoError(t, err)
		assert.Equal(t, 6, sum.Created)
	})

	t.Run("dedups refs across queries", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2")
		s.addItems("https://example.com/search?q=cook", "", "2", "3")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef", "cook"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 3, sum.Created)
		assert.Equal(t, 3, s.detailFetches())

		e, err := store.FindEntity(context.Background(), "jobs", "2")
		require.NoError(t, err)
		assert.Equal(t, "chef", e.Subcategory)
	})

	t.Run("records item failures and continues", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2", "3")
		delete(s.details, "https://example.com/details/2")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 2, sum.Created)
		assert.Equal(t, 1, sum.Errors)
		assert.Equal(t, []harvest.Status{harvest.StatusCreated, harvest.StatusError, harvest.StatusCreated}, statuses(t, store, "run-1"))

		runID := "run-1"
		status := harvest.StatusError
		logs, err := store.FindLogs(context.Background(), harvest.AuditFilter{RunID: &runID, Status: &status})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "2", logs[0].Ref)
		assert.Contains(t, logs[0].Message, "HTTP 404")
	})

	t.Run("marks an existing entity when its detail page fails", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1")
		store := inmem.NewStore()
		r := newRunner(s, store)
		_, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))
		require.NoError(t, err)

		delete(s.details, "https://example.com/details/1")
		r.NewRunID = func() string { return "run-2" }
		_, err = r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))
		require.NoError(t, err)

		e, err := store.FindEntity(context.Background(), "jobs", "1")
		require.NoError(t, err)
		assert.Equal(t, harvest.StatusError, e.LastScrapeStatus)
		assert.Equal(t, "run-2", e.LastScrapeRunID)
		assert.Equal(t, "Job 1", e.Fields["title"])
	})

	t.Run("retries retryable detail failures", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1")
		store := inmem.NewStore()
		r := newRunner(s, store)
		r.RetryDelays = []time.Duration{0, 0}

		inner := s.fetcher()
		var failed bool
		r.Fetcher = &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (string, error) {
				if strings.Contains(url, "/details/") && !failed {
					failed = true
					return "", &harvest.FetchError{URL: url, StatusCode: 503}
				}
				return inner.Fetch(ctx, url)
			},
		}

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Created)
		assert.Equal(t, 0, sum.Errors)
	})

	t.Run("records a listing failure and moves to the next query", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=waiter", "", "1")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef", "waiter"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Created)
		assert.Equal(t, 1, sum.Errors)
		assert.Equal(t, []harvest.Status{harvest.StatusError, harvest.StatusCreated}, statuses(t, store, "run-1"))
	})

	t.Run("listing only stores stubs without detail fetches", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{ListingOnly: true}))

		require.NoError(t, err)
		assert.Equal(t, 2, sum.Created)
		assert.Equal(t, 0, s.detailFetches())

		e, err := store.FindEntity(context.Background(), "jobs", "1")
		require.NoError(t, err)
		assert.Equal(t, harvest.Fields{"title": "Job 1", harvest.FieldURL: "https://example.com/details/1"}, e.Fields)
	})

	t.Run("start URL replaces the plan", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/custom", "", "9")
		store := inmem.NewStore()
		r := newRunner(s, store)

		sum, err := r.Run(context.Background(), nil, noDelay(crawl.Options{StartURL: "https://example.com/custom"}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Created)
		assert.Equal(t, 1, sum.Queries)

		e, err := store.FindEntity(context.Background(), "jobs", "9")
		require.NoError(t, err)
		assert.Empty(t, e.Category)
	})

	t.Run("rejects an empty plan", func(t *testing.T) {
		t.Parallel()

		r := newRunner(newSite(), inmem.NewStore())

		_, err := r.Run(context.Background(), nil, noDelay(crawl.Options{}))

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})

	t.Run("returns the context error when canceled", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2", "3")
		store := inmem.NewStore()
		r := newRunner(s, store)

		ctx, cancel := context.WithCancel(context.Background())
		r.Progress = func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressItem && e.Ref == "1" {
				cancel()
			}
		}

		sum, err := r.Run(ctx, plan("chef"), noDelay(crawl.Options{}))

		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, sum)
		assert.Equal(t, 1, sum.Created)
		assert.Equal(t, 0, sum.Errors)
	})
}

func TestRunner_Images(t *testing.T) {
	t.Parallel()

	publisher := func(calls *[]string, fail error) *mock.ImagePublisher {
		var mu sync.Mutex
		return &mock.ImagePublisher{
			GenerateAndUploadFn: func(_ context.Context, id harvest.Identity, title string) (string, error) {
				mu.Lock()
				*calls = append(*calls, id.Ref+":"+title)
				mu.Unlock()
				if fail != nil {
					return "", fail
				}
				return "https://img.example.com/" + id.Vertical + "/" + id.Ref + ".png", nil
			},
		}
	}

	t.Run("publishes an image and stores its URL", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1")
		store := inmem.NewStore()
		r := newRunner(s, store)
		var calls []string
		r.Images = publisher(&calls, nil)

		_, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, []string{"1:Job 1"}, calls)
		e, err := store.FindEntity(context.Background(), "jobs", "1")
		require.NoError(t, err)
		assert.Equal(t, "https://img.example.com/jobs/1.png", e.ImageURL)
		assert.Equal(t, harvest.StatusCreated, e.LastScrapeStatus)
	})

	t.Run("image failure is audited without changing status", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1")
		store := inmem.NewStore()
		r := newRunner(s, store)
		var calls []string
		r.Images = publisher(&calls, errors.New("quota exceeded"))

		sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Created)
		assert.Equal(t, 1, sum.ImageErrors)
		assert.Equal(t, 0, sum.Errors)
		assert.Equal(t, []harvest.Status{harvest.StatusCreated, harvest.StatusImageError}, statuses(t, store, "run-1"))

		logs, err := store.FindLogs(context.Background(), harvest.AuditFilter{})
		require.NoError(t, err)
		assert.Contains(t, logs[1].Message, "quota exceeded")

		e, err := store.FindEntity(context.Background(), "jobs", "1")
		require.NoError(t, err)
		assert.Equal(t, harvest.StatusCreated, e.LastScrapeStatus)
		assert.Empty(t, e.ImageURL)
	})

	t.Run("existing images are kept unless refresh is requested", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1")
		store := inmem.NewStore()
		r := newRunner(s, store)
		var calls []string
		r.Images = publisher(&calls, nil)

		_, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))
		require.NoError(t, err)
		_, err = r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))
		require.NoError(t, err)
		assert.Len(t, calls, 1)

		_, err = r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{RefreshImages: true}))
		require.NoError(t, err)
		assert.Len(t, calls, 2)
	})

	t.Run("skips images when disabled or untitled", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.addItems("https://example.com/search?q=chef", "", "1", "2")
		s.details["https://example.com/details/2"]["title"] = ""
		s.listings["https://example.com/search?q=chef"].Items[1].Fields["title"] = ""
		store := inmem.NewStore()
		r := newRunner(s, store)
		var calls []string
		r.Images = publisher(&calls, nil)

		_, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))
		require.NoError(t, err)
		assert.Equal(t, []string{"1:Job 1"}, calls)

		calls = nil
		r.NewRunID = func() string { return "run-2" }
		_, err = r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{SkipImages: true, RefreshImages: true}))
		require.NoError(t, err)
		assert.Empty(t, calls)
	})
}

func TestRunner_Apprenticeships(t *testing.T) {
	t.Parallel()

	const listingURL = "https://www.findapprenticeship.service.gov.uk/apprenticeships?searchTerm=chef&pageNumber=1&sort=AgeAsc"
	const detailURL = "https://www.findapprenticeship.service.gov.uk/apprenticeship/VAC1000012345"

	pages := map[string]string{
		listingURL: `<html><body><main>
<ul>
<li>
<h2><a href="/apprenticeship/VAC1000012345">Junior Chef Apprentice</a></h2>
<p>The Grand Hotel</p>
<p>York (YO1 7HH)</p>
<p>Start date Monday 1 September 2025</p>
<p>Training course Commis chef (level 2)</p>
<p>Posted 2 June 2025</p>
</li>
</ul>
</main></body></html>`,
		detailURL: `<html><body><main>
<h1>Junior Chef Apprentice</h1>
<p>The Grand Hotel</p>
<p>York (YO1 7HH)</p>
<h2>Summary</h2>
<p>Learn to cook in a busy hotel kitchen.</p>
<p>Wage: £6.40 an hour</p>
</main></body></html>`,
	}

	v := vertical.Apprenticeships()
	parser, err := goquery.NewListingParser(v)
	require.NoError(t, err)
	extractor, err := goquery.NewExtractor(v, nil)
	require.NoError(t, err)
	store := inmem.NewStore()

	r := &crawl.Runner{
		Vertical: v,
		Fetcher: &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				if html, ok := pages[url]; ok {
					return html, nil
				}
				return "", &harvest.FetchError{URL: url, StatusCode: 404}
			},
		},
		Parser:      parser,
		Extractor:   extractor,
		Store:       store,
		Audit:       store,
		RetryDelays: []time.Duration{},
	}

	sum, err := r.Run(context.Background(), plan("chef"), noDelay(crawl.Options{}))

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Created)

	e, err := store.FindEntity(context.Background(), "apprenticeships", "VAC1000012345")
	require.NoError(t, err)
	assert.Equal(t, "£6.40 an hour", e.Fields["wage"])
	assert.Equal(t, "Junior Chef Apprentice", e.Fields["title"])
	assert.Equal(t, "Commis chef (level 2)", e.Fields["training_course"])
	assert.Equal(t, detailURL, e.Fields[harvest.FieldURL])
	assert.Equal(t, sum.RunID, e.LastScrapeRunID)
}

func careersSite() map[string]string {
	const base = "https://nationalcareers.service.gov.uk"
	profile := func(title string) string {
		return `<html><body><main><h1>` + title + `</h1></main></body></html>`
	}
	return map[string]string{
		base + "/explore-careers/all-careers": `<html><body><main><form>
<div><input type="checkbox" id="jc-1" name="jobCategories" value="administration"><label for="jc-1">Administration</label></div>
<div><input type="checkbox" id="jc-2" name="jobCategories" value="animal-care"><label for="jc-2">Animal care</label></div>
</form></main></body></html>`,
		base + "/explore-careers/job-sector": `<html><body><main>
<a href="/explore-careers/job-sector/health">Health</a>
<a href="/explore-careers/job-sector/health/view-all-sector-careers">View all health careers</a>
</main></body></html>`,
		base + "/explore-careers/all-careers?jobCategories=administration": `<html><body><main>
<a href="/job-profiles/admin-assistant">Admin assistant</a>
<a href="/job-profiles/receptionist">Receptionist</a>
</main></body></html>`,
		base + "/explore-careers/all-careers?jobCategories=animal-care": `<html><body><main>
<a href="/job-profiles/dog-groomer">Dog groomer</a>
</main></body></html>`,
		base + "/explore-careers/job-sector/health/view-all-sector-careers": `<html><body><main>
<a href="/job-profiles/nurse">Nurse</a>
<a href="/job-profiles/receptionist">Receptionist</a>
</main></body></html>`,
		base + "/job-profiles/admin-assistant": profile("Admin assistant"),
		base + "/job-profiles/receptionist":    profile("Receptionist"),
		base + "/job-profiles/dog-groomer":     profile("Dog groomer"),
		base + "/job-profiles/nurse":           profile("Nurse"),
	}
}

func careersRunner(t *testing.T, pages map[string]string, store *inmem.Store) *crawl.Runner {
	t.Helper()
	v := vertical.Careers()
	parser, err := goquery.NewListingParser(v)
	require.NoError(t, err)
	extractor, err := goquery.NewExtractor(v, nil)
	require.NoError(t, err)
	return &crawl.Runner{
		Vertical: v,
		Fetcher: &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				if html, ok := pages[url]; ok {
					return html, nil
				}
				return "", &harvest.FetchError{URL: url, StatusCode: 404}
			},
		},
		Parser:      parser,
		Subtypes:    parser,
		Extractor:   extractor,
		Store:       store,
		Audit:       store,
		RetryDelays: []time.Duration{},
		NewRunID:    func() string { return "run-1" },
	}
}

func TestRunner_DiscoversRoutes(t *testing.T) {
	t.Parallel()

	t.Run("crawls every discovered subtype of every route", func(t *testing.T) {
		t.Parallel()

		store := inmem.NewStore()
		r := careersRunner(t, careersSite(), store)
		var lines []string
		r.Progress = func(e crawl.ProgressEvent) {
			if l := crawl.FormatProgress(e); l != "" {
				lines = append(lines, l)
			}
		}

		sum, err := r.Run(context.Background(), nil, noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 4, sum.Created)
		assert.Equal(t, 3, sum.Queries)
		assert.Equal(t, []string{
			"Found 2 category subtypes.",
			"Found 1 sector subtypes.",
			"[1/3] category=category, subcategory=Administration",
			"[1] admin-assistant (created) Admin assistant",
			"[2] receptionist (created) Receptionist",
			"[2/3] category=category, subcategory=Animal care",
			"[3] dog-groomer (created) Dog groomer",
			"[3/3] category=sector, subcategory=Health",
			"[4] nurse (created) Nurse",
			"Done. run_id=run-1 created=4, updated=0, skipped=0, error=0",
		}, lines)

		e, err := store.FindEntity(context.Background(), "careers", "nurse")
		require.NoError(t, err)
		assert.Equal(t, "sector", e.Category)
		assert.Equal(t, "Health", e.Subcategory)
		assert.Equal(t, "Nurse", e.Fields["jobname"])
	})

	t.Run("route selection and per-query limit", func(t *testing.T) {
		t.Parallel()

		store := inmem.NewStore()
		r := careersRunner(t, careersSite(), store)

		sum, err := r.Run(context.Background(), nil, noDelay(crawl.Options{Routes: []string{"sector"}, Limit: 1}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Created)
		_, err = store.FindEntity(context.Background(), "careers", "nurse")
		require.NoError(t, err)
		_, err = store.FindEntity(context.Background(), "careers", "receptionist")
		assert.Equal(t, harvest.ENOTFOUND, harvest.ErrorCode(err))
	})

	t.Run("per-query limit applies to each subtype", func(t *testing.T) {
		t.Parallel()

		store := inmem.NewStore()
		r := careersRunner(t, careersSite(), store)

		sum, err := r.Run(context.Background(), nil, noDelay(crawl.Options{Routes: []string{"category"}, Limit: 1}))

		require.NoError(t, err)
		assert.Equal(t, 2, sum.Created)
		for _, ref := range []string{"admin-assistant", "dog-groomer"} {
			_, err := store.FindEntity(context.Background(), "careers", ref)
			assert.NoError(t, err, ref)
		}
	})

	t.Run("a failing index page is audited and other routes still run", func(t *testing.T) {
		t.Parallel()

		pages := careersSite()
		delete(pages, "https://nationalcareers.service.gov.uk/explore-careers/all-careers")
		store := inmem.NewStore()
		r := careersRunner(t, pages, store)

		sum, err := r.Run(context.Background(), nil, noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Errors)
		assert.Equal(t, 2, sum.Created)

		logs, err := store.FindLogs(context.Background(), harvest.AuditFilter{})
		require.NoError(t, err)
		require.NotEmpty(t, logs)
		assert.Equal(t, harvest.StatusError, logs[0].Status)
		assert.Equal(t, "category", logs[0].Category)
		assert.Equal(t, "https://nationalcareers.service.gov.uk/explore-careers/all-careers", logs[0].StartURL)
	})

	t.Run("a plan replaces discovery", func(t *testing.T) {
		t.Parallel()

		store := inmem.NewStore()
		r := careersRunner(t, careersSite(), store)

		sum, err := r.Run(context.Background(), harvest.QueryPlan{{Name: "Animals", Subcategories: []string{"animal-care"}}}, noDelay(crawl.Options{}))

		require.NoError(t, err)
		assert.Equal(t, 1, sum.Created)
		assert.Equal(t, 1, sum.Queries)
	})

	t.Run("unknown route is invalid", func(t *testing.T) {
		t.Parallel()

		r := careersRunner(t, careersSite(), inmem.NewStore())

		_, err := r.Run(context.Background(), nil, noDelay(crawl.Options{Routes: []string{"region"}}))

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})

	t.Run("discovery needs a subtype parser", func(t *testing.T) {
		t.Parallel()

		r := careersRunner(t, careersSite(), inmem.NewStore())
		r.Subtypes = nil

		_, err := r.Run(context.Background(), nil, noDelay(crawl.Options{}))

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})
}
