package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Store harvest.EntityStore
	Audit harvest.AuditLog

	// Crawl services. Images is nil when image generation is unavailable.
	Fetcher   harvest.Fetcher
	Converter harvest.Converter
	Images    harvest.ImagePublisher

	// RetryDelays overrides the fetch backoff schedule when non-nil.
	RetryDelays []time.Duration
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB          string `name:"db" env:"HARVEST_DB" help:"SQLite database path (default ~/.harvest/harvest.db)"`
	PostgresDSN string `name:"postgres-dsn" env:"HARVEST_POSTGRES_DSN" help:"Use PostgreSQL at this DSN instead of SQLite"`
	LogLevel    string `name:"log-level" env:"HARVEST_LOG_LEVEL" default:"warn" enum:"debug,info,warn,error" help:"Log level for stderr diagnostics"`

	Crawl     CrawlCmd     `cmd:"" help:"Crawl a vertical and ingest new or changed listings"`
	Logs      LogsCmd      `cmd:"" help:"Show audit log entries"`
	Show      ShowCmd      `cmd:"" help:"Show stored entities"`
	Verticals VerticalsCmd `cmd:"" help:"List the supported verticals"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	Vertical      string        `arg:"" help:"Vertical to crawl (jobs, apprenticeships, courses, careers)"`
	Categories    string        `short:"C" type:"path" help:"Category plan JSON file mapping each category to its subcategories"`
	StartURL      string        `name:"start-url" help:"Crawl this listing URL instead of the category plan"`
	Route         string        `default:"both" enum:"category,sector,both" help:"Careers entry route discovered when there is no plan: category, sector or both"`
	Limit         int           `help:"Items taken from each category or subtype (0 = no limit)"`
	Delay         time.Duration `help:"Pause between requests (0 uses the vertical default, negative disables)"`
	MaxRows       int           `name:"max-rows" help:"Stop after this many created or updated items (0 = no limit)"`
	Concurrency   int           `short:"c" default:"1" help:"Items processed at once"`
	ListingOnly   bool          `name:"listing-only" help:"Store listing cards without fetching detail pages"`
	NoImages      bool          `name:"no-images" help:"Skip thumbnail generation"`
	RefreshImages bool          `name:"refresh-images" help:"Regenerate thumbnails that already exist"`
	ImageDir      string        `name:"image-dir" type:"path" help:"Directory for generated thumbnails (default ~/.harvest/images)"`
	ImageBaseURL  string        `name:"image-base-url" help:"Public URL prefix of the image directory"`
	ImageModel    string        `name:"image-model" env:"GEMINI_IMAGE_MODEL" help:"Imagen model used for thumbnails"`
	MetricsFile   string        `name:"metrics-file" type:"path" help:"Write Prometheus metrics to this text file after the run"`
}

// LogsCmd is the "logs" subcommand.
type LogsCmd struct {
	RunID    string `name:"run-id" help:"Only entries of this run"`
	Vertical string `help:"Only entries of this vertical"`
	Ref      string `help:"Only entries for this ref"`
	Status   string `help:"Only entries with this status"`
	Limit    int    `short:"n" default:"50" help:"Maximum entries to show (0 = all)"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	Vertical string `arg:"" help:"Vertical name"`
	Ref      string `arg:"" optional:"" help:"Entity ref; omit to list entities"`
	Category string `help:"Only entities of this category"`
	Status   string `help:"Only entities whose last attempt had this status"`
	Limit    int    `short:"n" default:"20" help:"Maximum entities to list (0 = all)"`
}

// VerticalsCmd is the "verticals" subcommand.
type VerticalsCmd struct{}
