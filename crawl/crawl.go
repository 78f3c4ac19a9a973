// Package crawl orchestrates ingestion runs. It coordinates the polite
// fetch session, listing pagination, detail extraction, merging, storage,
// image enrichment and the audit trail of one vertical.
package crawl

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options are the per-run crawl parameters.
type Options struct {
	// Delay is the politeness pause between requests. Zero uses the
	// vertical's delay, or DefaultDelay; a negative value disables it.
	Delay time.Duration

	// MaxRows stops the run once this many items were created or updated.
	// Zero means no limit.
	MaxRows int

	// StartURL replaces the category plan with a single listing crawl.
	StartURL string

	SkipImages    bool
	RefreshImages bool

	// Concurrency is the number of items processed at once. Values below
	// one mean strictly sequential.
	Concurrency int

	// ListingOnly stores listing stubs without fetching detail pages.
	ListingOnly bool

	// Routes selects the vertical routes discovered when there is no plan
	// and no StartURL. Empty selects every route.
	Routes []string

	// Limit caps the items taken from each query. Zero means no limit.
	Limit int
}

// RunSummary holds the outcome of a run.
type RunSummary struct {
	RunID       string
	Created     int
	Updated     int
	Skipped     int
	Errors      int
	ImageErrors int
	Queries     int
	Pages       int
}

// Committed returns the number of items created or updated.
func (s *RunSummary) Committed() int {
	return s.Created + s.Updated
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressQuery
	ProgressPage
	ProgressItem
	ProgressImageError
	ProgressListingError
	ProgressDiscovered
	ProgressFinished
)

// ProgressEvent reports progress during a run. Events are delivered one at
// a time even when items are processed concurrently.
type ProgressEvent struct {
	Type     ProgressType
	RunID    string
	Vertical string

	// Query events.
	Query      harvest.Query
	QueryIndex int
	QueryTotal int

	// Page events.
	URL   string
	Items int

	// Item and image events.
	Ref       string
	Title     string
	Status    harvest.Status
	Message   string
	Committed int
	MaxRows   int
	Duration  time.Duration

	Err     error
	Summary *RunSummary
}

// ProgressFunc is a callback for reporting run progress.
type ProgressFunc func(event ProgressEvent)

// Runner ingests one vertical. Parser and Extractor must be built for
// Vertical.
type Runner struct {
	Vertical  *harvest.Vertical
	Fetcher   harvest.Fetcher
	Parser    harvest.ListingParser
	Extractor harvest.DetailExtractor
	Store     harvest.EntityStore
	Audit     harvest.AuditLog

	// Images is the enrichment hook. Nil disables images.
	Images harvest.ImagePublisher

	// Subtypes reads route index pages. It is required only when a run
	// discovers its queries.
	Subtypes harvest.SubtypeParser

	RetryDelays []time.Duration
	Logger      LogFunc
	Progress    ProgressFunc

	// Now and NewRunID default to time.Now and uuid.NewString.
	Now      func() time.Time
	NewRunID func() string
}

// run is the state of one Runner.Run call.
type run struct {
	*Runner
	id      string
	opts    Options
	session *Session
	budget  *budget

	mu      sync.Mutex
	summary RunSummary
}

// Run crawls every query of plan, or opts.StartURL alone when set, and
// ingests each newly seen item. Item failures are recorded and counted but
// never abort the run; only configuration errors and cancellation are
// returned.
func (r *Runner) Run(ctx context.Context, plan harvest.QueryPlan, opts Options) (*RunSummary, error) {
	if err := r.Vertical.Compile(); err != nil {
		return nil, err
	}
	discovering := opts.StartURL == "" && plan.Len() == 0 && len(r.Vertical.Routes) > 0
	routes, err := r.Vertical.SelectRoutes(opts.Routes)
	if err != nil {
		return nil, err
	}
	var queries []harvest.Query
	switch {
	case discovering && r.Subtypes == nil:
		return nil, harvest.Errorf(harvest.EINVALID, "vertical %q needs a subtype parser to discover queries", r.Vertical.Name)
	case !discovering:
		if queries, err = r.Vertical.Queries(plan, opts.StartURL); err != nil {
			return nil, err
		}
	}

	rn := &run{
		Runner:  r,
		id:      r.newRunID(),
		opts:    opts,
		session: r.newSession(opts.Delay),
		budget:  newBudget(opts.MaxRows),
	}
	rn.summary.RunID = rn.id
	if discovering {
		queries = rn.discover(ctx, routes)
	}
	rn.emit(ProgressEvent{Type: ProgressStarted, QueryTotal: len(queries), MaxRows: opts.MaxRows})

	seen := NewSeenSet()
	for i, q := range queries {
		if ctx.Err() != nil || rn.budget.exhausted() {
			break
		}
		rn.mu.Lock()
		rn.summary.Queries++
		rn.mu.Unlock()
		rn.emit(ProgressEvent{Type: ProgressQuery, Query: q, QueryIndex: i + 1, QueryTotal: len(queries)})
		rn.crawlQuery(ctx, q, seen)
	}

	sum := rn.snapshot()
	rn.emit(ProgressEvent{Type: ProgressFinished, Summary: &sum})
	if err := ctx.Err(); err != nil {
		return &sum, err
	}
	return &sum, nil
}

func (r *Runner) newRunID() string {
	if r.NewRunID != nil {
		return r.NewRunID()
	}
	return uuid.NewString()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) newSession(delay time.Duration) *Session {
	switch {
	case delay < 0:
		delay = 0
	case delay == 0 && r.Vertical.Delay > 0:
		delay = r.Vertical.Delay
	case delay == 0:
		delay = DefaultDelay
	}
	delays := r.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	return &Session{
		Fetcher:     r.Fetcher,
		Limiter:     NewDomainLimiterEvery(delay),
		Delay:       delay,
		RetryDelays: delays,
		Logger:      r.Logger,
	}
}

// crawlQuery walks one query's listing pages and dispatches its items.
func (rn *run) crawlQuery(ctx context.Context, q harvest.Query, seen *SeenSet) {
	c := &Crawler{
		Fetcher: rn.session,
		Parser:  rn.Parser,
		Seen:    seen,
		OnPage: func(pageURL string, items int) {
			rn.mu.Lock()
			rn.summary.Pages++
			rn.mu.Unlock()
			rn.emit(ProgressEvent{Type: ProgressPage, Query: q, URL: pageURL, Items: items})
		},
	}

	limit := rn.opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)

	// Items of a page settle before the next page is fetched, so the
	// MaxRows check sees every outcome.
	taken := 0
	full := func() bool { return rn.opts.Limit > 0 && taken >= rn.opts.Limit }
	c.BeforePage = func(string) bool {
		_ = g.Wait()
		return !rn.budget.exhausted() && !full()
	}

	for item, err := range c.Listings(ctx, q.StartURL) {
		if err != nil {
			if ctx.Err() == nil {
				rn.listingError(ctx, q, err)
			}
			break
		}
		if full() || !rn.budget.reserve() {
			break
		}
		taken++
		if limit == 1 {
			rn.settle(rn.process(ctx, q, item))
			continue
		}
		g.Go(func() error {
			rn.settle(rn.process(ctx, q, item))
			return nil
		})
	}
	_ = g.Wait()
}

func (rn *run) settle(status harvest.Status) {
	rn.budget.settle(status == harvest.StatusCreated || status == harvest.StatusUpdated)
}

// process ingests one item and returns its terminal status.
func (rn *run) process(ctx context.Context, q harvest.Query, item harvest.ListedItem) harvest.Status {
	if ctx.Err() != nil {
		return harvest.StatusError
	}
	start := time.Now()
	v := rn.Vertical

	var detail *harvest.DetailRecord
	if !rn.opts.ListingOnly {
		html, err := rn.session.Fetch(ctx, item.URL)
		if err != nil {
			return rn.itemError(ctx, q, item, err)
		}
		detail, err = rn.Extractor.ExtractDetail(html, item.URL)
		if err != nil {
			return rn.itemError(ctx, q, item, err)
		}
	}

	rec := harvest.MergeWith(detail, &item, v.MergeOptions())
	if rec.URL == "" {
		rec.URL = item.URL
	}
	rec.Fields[harvest.FieldURL] = rec.URL

	res, err := rn.Store.Upsert(ctx, harvest.UpsertInput{
		Vertical:    v.Name,
		Ref:         item.Ref,
		Fields:      rec.Fields,
		Category:    q.Category,
		Subcategory: q.Subcategory,
		RunID:       rn.id,
	})
	if err != nil {
		return rn.itemError(ctx, q, item, err)
	}
	rn.appendLog(ctx, q, item.Ref, res.Status, res.Message)

	title := displayTitle(rec.Fields, item.Fields, v.TitleField)

	rn.mu.Lock()
	switch res.Status {
	case harvest.StatusCreated:
		rn.summary.Created++
	case harvest.StatusUpdated:
		rn.summary.Updated++
	default:
		rn.summary.Skipped++
	}
	committed := rn.summary.Committed()
	rn.mu.Unlock()

	rn.emit(ProgressEvent{
		Type:      ProgressItem,
		Query:     q,
		URL:       rec.URL,
		Ref:       item.Ref,
		Title:     title,
		Status:    res.Status,
		Message:   res.Message,
		Committed: committed,
		MaxRows:   rn.opts.MaxRows,
		Duration:  time.Since(start),
	})

	rn.enrich(ctx, q, item.Ref, title)
	return res.Status
}

// enrich runs the image hook after a successful upsert. Its failures are
// audited separately and never change the item's status.
func (rn *run) enrich(ctx context.Context, q harvest.Query, ref, title string) {
	if rn.Images == nil || rn.opts.SkipImages || title == "" {
		return
	}
	v := rn.Vertical

	ent, err := rn.Store.FindEntity(ctx, v.Name, ref)
	if err != nil {
		rn.imageError(ctx, q, ref, title, err)
		return
	}
	if ent.ImageURL != "" && !rn.opts.RefreshImages {
		return
	}

	u, err := rn.Images.GenerateAndUpload(ctx, harvest.Identity{Vertical: v.Name, Ref: ref}, title)
	if err != nil {
		rn.imageError(ctx, q, ref, title, err)
		return
	}
	if u == "" || u == ent.ImageURL {
		return
	}
	if err := rn.Store.SetImageURL(ctx, v.Name, ref, u); err != nil {
		rn.imageError(ctx, q, ref, title, err)
	}
}

func (rn *run) itemError(ctx context.Context, q harvest.Query, item harvest.ListedItem, err error) harvest.Status {
	if ctx.Err() != nil {
		return harvest.StatusError
	}
	msg := err.Error()
	v := rn.Vertical

	// The entity may not exist yet; the audit entry still records the failure.
	_ = rn.Store.MarkError(ctx, v.Name, item.Ref, rn.id, msg, rn.now())
	rn.appendLog(ctx, q, item.Ref, harvest.StatusError, msg)

	rn.mu.Lock()
	rn.summary.Errors++
	committed := rn.summary.Committed()
	rn.mu.Unlock()

	rn.emit(ProgressEvent{
		Type:      ProgressItem,
		Query:     q,
		URL:       item.URL,
		Ref:       item.Ref,
		Title:     displayTitle(nil, item.Fields, v.TitleField),
		Status:    harvest.StatusError,
		Message:   msg,
		Committed: committed,
		MaxRows:   rn.opts.MaxRows,
		Err:       err,
	})
	return harvest.StatusError
}

func (rn *run) imageError(ctx context.Context, q harvest.Query, ref, title string, err error) {
	if ctx.Err() != nil {
		return
	}
	err = harvest.WrapError(harvest.EENRICH, err, "image for %s", ref)
	rn.appendLog(ctx, q, ref, harvest.StatusImageError, err.Error())

	rn.mu.Lock()
	rn.summary.ImageErrors++
	rn.mu.Unlock()

	rn.emit(ProgressEvent{
		Type:    ProgressImageError,
		Query:   q,
		Ref:     ref,
		Title:   title,
		Status:  harvest.StatusImageError,
		Message: err.Error(),
		Err:     err,
	})
}

func (rn *run) listingError(ctx context.Context, q harvest.Query, err error) {
	rn.appendLog(ctx, q, "", harvest.StatusError, err.Error())

	rn.mu.Lock()
	rn.summary.Errors++
	rn.mu.Unlock()

	rn.emit(ProgressEvent{Type: ProgressListingError, Query: q, URL: q.StartURL, Status: harvest.StatusError, Message: err.Error(), Err: err})
}

// appendLog writes an audit entry. An audit failure is reported through the
// logger only; it must not turn a stored item into a failed one.
func (rn *run) appendLog(ctx context.Context, q harvest.Query, ref string, status harvest.Status, msg string) {
	err := rn.Audit.AppendLog(ctx, &harvest.AuditEntry{
		RunID:       rn.id,
		CreatedAt:   rn.now(),
		Vertical:    rn.Vertical.Name,
		Category:    q.Category,
		Subcategory: q.Subcategory,
		StartURL:    q.StartURL,
		Ref:         ref,
		Status:      status,
		Message:     msg,
	})
	if err != nil && rn.Logger != nil {
		rn.Logger("  audit %s (%s): %v", ref, status, err)
	}
}

func (rn *run) emit(e ProgressEvent) {
	if rn.Progress == nil {
		return
	}
	e.RunID = rn.id
	e.Vertical = rn.Vertical.Name
	rn.mu.Lock()
	defer rn.mu.Unlock()
	rn.Progress(e)
}

func (rn *run) snapshot() RunSummary {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.summary
}

// displayTitle picks the title shown in progress lines and image prompts.
func displayTitle(merged, listed harvest.Fields, field string) string {
	if field == "" {
		field = "title"
	}
	if t := strings.TrimSpace(merged[field]); t != "" {
		return t
	}
	return strings.TrimSpace(listed[field])
}

// budget enforces MaxRows across concurrent workers. An item is admitted
// only while committed+inflight < max, so the ceiling is never overshot.
type budget struct {
	mu        sync.Mutex
	cond      *sync.Cond
	max       int
	committed int
	inflight  int
}

func newBudget(max int) *budget {
	b := &budget{max: max}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// reserve admits one more item. It blocks while in-flight items could still
// fill the budget and returns false once the budget is spent.
func (b *budget) reserve() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max <= 0 {
		b.inflight++
		return true
	}
	for b.committed+b.inflight >= b.max && b.committed < b.max {
		b.cond.Wait()
	}
	if b.committed >= b.max {
		return false
	}
	b.inflight++
	return true
}

// settle releases a reservation, counting it when the item committed.
func (b *budget) settle(committed bool) {
	b.mu.Lock()
	b.inflight--
	if committed {
		b.committed++
	}
	b.mu.Unlock()
	b.cond.Broadcast()
}

func (b *budget) exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max > 0 && b.committed >= b.max
}
