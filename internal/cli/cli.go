package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/config"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/identity"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/logger"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/normalize"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/pipeline"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/schema"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/scraper"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/storage"
)

const (
	ExitSuccess       = 0
	ExitError         = 1
	ExitInvalidConfig = 2
	ExitMigration     = 3
)

type options struct {
	configPath string
	dbPath     string
	format     string
	verbose    bool

	stdout io.Writer
	stderr io.Writer
}

// NewRootCmd creates the root command. Results go to stdout, logs to stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "cricbuzz-scraper",
		Short: "Scrape cricbuzz match pages into SQLite",
		Long: `A CLI tool to scrape cricbuzz match pages into a local SQLite database.
Stores match results, squads, captains, scorecards and awards, and can enrich
players from their profile pages. Re-running a scrape refreshes stored matches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")
	flags.StringVar(&opts.format, "format", "text", "Output format: text, json or yaml")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging and include metrics in output")

	cmd.AddCommand(
		newScrapeCmd(opts),
		newEnrichCmd(opts),
		newMigrateCmd(opts),
		newBackfillCmd(opts),
		newShowCmd(opts),
	)
	return cmd
}

// session is the state shared by commands once config and storage are open
type session struct {
	cfg     *config.Config
	store   *storage.Storage
	metrics *logger.Metrics
	format  OutputFormat
	schema  schema.Report
}

// open loads config, installs the logger, opens storage and migrates it
func (o *options) open(ctx context.Context) (*session, error) {
	format, err := ParseFormat(o.format)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if o.verbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, o.stderr))

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, errors.Wrap(err, "initializing storage")
	}

	report, err := store.Migrate(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &session{
		cfg:     cfg,
		store:   store,
		metrics: logger.NewMetrics(),
		format:  format,
		schema:  report,
	}, nil
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		logger.Warn("Closing storage failed", logger.Fields{"error": err.Error()})
	}
	_ = logger.Default().Sync()
}

func (s *session) naming() *identity.Naming {
	return identity.NewNaming(s.cfg.Roles, normalize.DefaultMarkers)
}

func (s *session) pipeline() *pipeline.Pipeline {
	client := scraper.New(
		scraper.WithTimeout(s.cfg.Timeout),
		scraper.WithUserAgent(s.cfg.UserAgent),
		scraper.WithMetrics(s.metrics),
	)
	extractor := scraper.NewExtractor(s.naming(), s.cfg.SquadLimit, s.metrics)
	return pipeline.New(s.cfg, client, extractor, s.store, s.metrics)
}

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, config.ErrInvalid):
		return ExitInvalidConfig
	case errors.Is(err, schema.ErrMigration):
		return ExitMigration
	default:
		return ExitError
	}
}

// Run executes the CLI with args and returns the exit status
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

// Execute runs the CLI against the process arguments and exits
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
