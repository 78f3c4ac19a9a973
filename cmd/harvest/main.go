package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/fs"
	"github.com/fwojciec/harvest/gemini"
	"github.com/fwojciec/harvest/htmltomarkdown"
	hhttp "github.com/fwojciec/harvest/http"
	"github.com/fwojciec/harvest/postgres"
	hslog "github.com/fwojciec/harvest/slog"
	"github.com/fwojciec/harvest/sqlite"
	"github.com/fwojciec/harvest/vertical"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Default SQLite path, used when --db and HARVEST_DB are unset.
	DBPath string

	// Image defaults used when --image-dir is unset.
	ImageDir string

	// Getenv reads the image API key variables. Defaults to os.Getenv.
	Getenv func(string) string

	SQLite   *sqlite.DB
	Postgres *postgres.DB

	// Fetcher replaces the HTTP fetcher when set, for end-to-end tests.
	Fetcher harvest.Fetcher
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath:   defaultPath("harvest.db"),
		ImageDir: defaultPath("images"),
		Getenv:   os.Getenv,
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Postgres != nil {
		return m.Postgres.Close()
	}
	if m.SQLite != nil {
		return m.SQLite.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("harvest"),
		kong.Description("Incremental ingestion of public job, apprenticeship, course and career listings."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'harvest --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd = strings.Fields(kongCtx.Command())[0]

	deps.Logger = newLogger(stderr, cli.LogLevel)

	if cmd == "verticals" {
		return kongCtx.Run(deps)
	}

	if err := m.openStore(ctx, cli, deps, stderr); err != nil {
		return err
	}
	defer m.Close()

	if cmd == "crawl" {
		fetcher := m.Fetcher
		if fetcher == nil {
			fetcher = hhttp.NewFetcher()
		}
		deps.Fetcher = hslog.NewLoggingFetcher(fetcher, deps.Logger)
		defer deps.Fetcher.Close()
		deps.Converter = htmltomarkdown.NewConverter()

		if !cli.Crawl.NoImages {
			images, err := m.images(ctx, &cli.Crawl, deps.Logger)
			if err != nil {
				fmt.Fprintf(stderr, "warning: images disabled: %s\n", harvest.ErrorMessage(err))
			} else {
				deps.Images = images
			}
		}
	}

	return kongCtx.Run(deps)
}

func (m *Main) openStore(ctx context.Context, cli *CLI, deps *Dependencies, stderr io.Writer) error {
	if cli.PostgresDSN != "" {
		m.Postgres = postgres.NewDB(cli.PostgresDSN)
		if err := m.Postgres.Open(ctx); err != nil {
			fmt.Fprintf(stderr, "Hint: check HARVEST_POSTGRES_DSN\n")
			return fmt.Errorf("failed to open postgres database: %w", err)
		}
		deps.Store = hslog.NewLoggingEntityStore(postgres.NewEntityStore(m.Postgres), deps.Logger)
		deps.Audit = hslog.NewLoggingAuditLog(postgres.NewAuditLog(m.Postgres), deps.Logger)
		return nil
	}

	path := cli.DB
	if path == "" {
		path = m.DBPath
	}
	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0755)
	}
	m.SQLite = sqlite.NewDB(path)
	if err := m.SQLite.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set HARVEST_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	deps.Store = hslog.NewLoggingEntityStore(sqlite.NewEntityStore(m.SQLite), deps.Logger)
	deps.Audit = hslog.NewLoggingAuditLog(sqlite.NewAuditLog(m.SQLite), deps.Logger)
	return nil
}

func (m *Main) images(ctx context.Context, c *CrawlCmd, logger *slog.Logger) (harvest.ImagePublisher, error) {
	apiKey := m.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = m.Getenv("GOOGLE_API_KEY")
	}
	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	themes := make(map[string]string)
	all, err := vertical.All()
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		themes[v.Name] = v.ImageTheme
	}
	gen := gemini.NewImageGenerator(client.Models, themes)
	if c.ImageModel != "" {
		gen.Model = c.ImageModel
	}

	dir := c.ImageDir
	if dir == "" {
		dir = m.ImageDir
	}
	store := fs.NewImageStore(dir, c.ImageBaseURL)

	return hslog.NewLoggingImagePublisher(gemini.NewPublisher(gen, store), logger), nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".harvest", name)
}
