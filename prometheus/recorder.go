// Package prometheus records run outcomes as Prometheus metrics and writes
// them in the node-exporter text file format.
package prometheus

import (
	"context"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder turns Runner progress events into metrics held on a private
// registry.
type Recorder struct {
	registry *prometheus.Registry

	items    *prometheus.CounterVec
	pages    *prometheus.CounterVec
	runs     *prometheus.CounterVec
	lastRun  *prometheus.GaugeVec
	fetchDur *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_items_total",
				Help: "Items ingested, by outcome.",
			},
			[]string{"vertical", "status"},
		),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_pages_total",
				Help: "Listing pages parsed.",
			},
			[]string{"vertical"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_runs_total",
				Help: "Completed ingestion runs.",
			},
			[]string{"vertical"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "harvest_last_run_timestamp_seconds",
				Help: "Unix time the last run of a vertical finished.",
			},
			[]string{"vertical"},
		),
		fetchDur: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_fetch_duration_seconds",
				Help:    "Duration of page fetches, retries included.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"vertical"},
		),
	}
	r.registry.MustRegister(r.items, r.pages, r.runs, r.lastRun, r.fetchDur)
	return r
}

// Registry returns the registry holding the Recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one progress event. It satisfies crawl.ProgressFunc.
func (r *Recorder) Observe(e crawl.ProgressEvent) {
	switch e.Type {
	case crawl.ProgressPage:
		r.pages.WithLabelValues(e.Vertical).Inc()
	case crawl.ProgressItem:
		r.items.WithLabelValues(e.Vertical, string(e.Status)).Inc()
	case crawl.ProgressImageError:
		r.items.WithLabelValues(e.Vertical, string(harvest.StatusImageError)).Inc()
	case crawl.ProgressListingError:
		r.items.WithLabelValues(e.Vertical, string(harvest.StatusError)).Inc()
	case crawl.ProgressFinished:
		r.runs.WithLabelValues(e.Vertical).Inc()
		r.lastRun.WithLabelValues(e.Vertical).SetToCurrentTime()
	}
}

// Chain returns a ProgressFunc that records e and then calls next.
func (r *Recorder) Chain(next crawl.ProgressFunc) crawl.ProgressFunc {
	return func(e crawl.ProgressEvent) {
		r.Observe(e)
		if next != nil {
			next(e)
		}
	}
}

// WriteToTextfile writes every metric to path atomically.
func (r *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return harvest.WrapError(harvest.EINTERNAL, err, "write metrics to %s", path)
	}
	return nil
}

var _ harvest.Fetcher = (*InstrumentedFetcher)(nil)

// InstrumentedFetcher observes the duration of every fetch.
type InstrumentedFetcher struct {
	next     harvest.Fetcher
	observer prometheus.Observer
}

// InstrumentFetcher wraps next so its fetches land in the vertical's
// harvest_fetch_duration_seconds series.
func (r *Recorder) InstrumentFetcher(vertical string, next harvest.Fetcher) *InstrumentedFetcher {
	return &InstrumentedFetcher{
		next:     next,
		observer: r.fetchDur.WithLabelValues(vertical),
	}
}

// Fetch delegates to the wrapped fetcher and records the elapsed time.
func (f *InstrumentedFetcher) Fetch(ctx context.Context, url string) (string, error) {
	timer := prometheus.NewTimer(f.observer)
	defer timer.ObserveDuration()
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *InstrumentedFetcher) Close() error {
	return f.next.Close()
}

