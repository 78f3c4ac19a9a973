package main

import (
	"fmt"
	"os"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
	"github.com/fwojciec/harvest/goquery"
	"github.com/fwojciec/harvest/prometheus"
	"github.com/fwojciec/harvest/vertical"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	v, err := vertical.ByName(c.Vertical)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	plan, err := c.plan()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	parser, err := goquery.NewListingParser(v)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}
	extractor, err := goquery.NewExtractor(v, deps.Converter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	progress := func(e crawl.ProgressEvent) {
		if line := crawl.FormatProgress(e); line != "" {
			fmt.Fprintln(deps.Stdout, line)
		}
	}

	fetcher := deps.Fetcher
	var recorder *prometheus.Recorder
	if c.MetricsFile != "" {
		recorder = prometheus.NewRecorder()
		fetcher = recorder.InstrumentFetcher(v.Name, fetcher)
		progress = recorder.Chain(progress)
	}

	runner := &crawl.Runner{
		Vertical:    v,
		Fetcher:     fetcher,
		Parser:      parser,
		Subtypes:    parser,
		Extractor:   extractor,
		Store:       deps.Store,
		Audit:       deps.Audit,
		RetryDelays: deps.RetryDelays,
		Progress:    progress,
		Logger: func(format string, args ...any) {
			deps.logger().Warn(fmt.Sprintf(format, args...), "vertical", v.Name)
		},
	}
	if !c.NoImages {
		runner.Images = deps.Images
	}

	_, runErr := runner.Run(deps.Ctx, plan, crawl.Options{
		Delay:         c.Delay,
		MaxRows:       c.MaxRows,
		StartURL:      c.StartURL,
		SkipImages:    c.NoImages,
		RefreshImages: c.RefreshImages,
		Concurrency:   c.Concurrency,
		ListingOnly:   c.ListingOnly,
		Routes:        c.routes(),
		Limit:         c.Limit,
	})

	if recorder != nil {
		if err := recorder.WriteToTextfile(c.MetricsFile); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
			if runErr == nil {
				return err
			}
		}
	}

	if runErr != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(runErr))
		return runErr
	}
	return nil
}

func (c *CrawlCmd) routes() []string {
	if c.Route == "" || c.Route == "both" {
		return nil
	}
	return []string{c.Route}
}

func (c *CrawlCmd) plan() (harvest.QueryPlan, error) {
	if c.Categories == "" {
		return nil, nil
	}
	f, err := os.Open(c.Categories)
	if err != nil {
		return nil, harvest.WrapError(harvest.EINVALID, err, "open category plan")
	}
	defer f.Close()
	return harvest.ParsePlan(f)
}
