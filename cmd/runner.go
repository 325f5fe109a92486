package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/importer"
	"github.com/desertthunder/ytmirror/internal/matcher"
	"github.com/desertthunder/ytmirror/internal/metrics"
	"github.com/desertthunder/ytmirror/internal/ordering"
	"github.com/desertthunder/ytmirror/internal/repositories"
	"github.com/desertthunder/ytmirror/internal/services"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/desertthunder/ytmirror/internal/tasks"
	"github.com/desertthunder/ytmirror/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	remote     services.RemoteAPI
	sources    services.Sources
	store      *repositories.Store
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	styles     *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Remote, Sources and Store are built from Config on first use when left nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Remote     services.RemoteAPI
	Sources    services.Sources
	Store      *repositories.Store
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	registry := prometheus.NewRegistry()

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		remote:     opts.Remote,
		sources:    opts.Sources,
		store:      opts.Store,
		registry:   registry,
		metrics:    metrics.New(registry),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		styles:     ui.Styles,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, syncCommand, queueCommand, importCommand, matchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig replaces the runner's config with the file at path when it exists.
func (r *Runner) loadConfig(path string) error {
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return nil
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	return nil
}

// openDatabase opens the configured database and brings its schema up to date.
func (r *Runner) openDatabase() (*sql.DB, error) {
	path, err := r.config.DatabasePath()
	if err != nil {
		return nil, err
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// migrateOrder assigns sort keys to membership rows written before sort keys existed. It runs once per
// database; later calls see the settings flag and return 0.
func (r *Runner) migrateOrder(ctx context.Context, db *sql.DB) (int, error) {
	n, err := ordering.MigrateLegacy(ctx, repositories.NewOrderMigrationStore(db))
	if err != nil {
		return 0, fmt.Errorf("failed to migrate playlist order: %w", err)
	}
	if n > 0 {
		r.logger.Info("assigned sort keys to legacy playlist rows", "rows", n)
	}
	return n, nil
}

// openStore returns the injected store, or opens one over the configured database. Either way the
// legacy order migration has run before it returns.
//
// The returned func releases the database and is safe to defer.
func (r *Runner) openStore(ctx context.Context) (*repositories.Store, func(), error) {
	store, done, err := r.openRawStore()
	if err != nil {
		return nil, nil, err
	}
	if _, err := r.migrateOrder(ctx, store.DB()); err != nil {
		done()
		return nil, nil, err
	}
	return store, done, nil
}

// openRawStore is openStore without the order migration.
func (r *Runner) openRawStore() (*repositories.Store, func(), error) {
	if r.store != nil {
		return r.store, func() {}, nil
	}
	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewStore(db), func() { db.Close() }, nil
}

func (r *Runner) remoteAPI() services.RemoteAPI {
	if r.remote == nil {
		yt := r.config.Credentials.YouTube
		r.remote = services.NewYouTubeService(yt.ProxyURL, yt.HeadersPath)
	}
	return r.remote
}

// externalSources builds every source the configuration has credentials for.
//
// Bandcamp needs none and is always available.
func (r *Runner) externalSources(ctx context.Context) services.Sources {
	if r.sources != nil {
		return r.sources
	}

	var list []services.ExternalSource
	creds := r.config.Credentials

	if spotify, err := services.NewSpotifySource(ctx, creds.Spotify); err == nil {
		list = append(list, spotify)
	} else {
		r.logger.Debug("spotify source unavailable", "error", err)
	}

	if lastfm, err := services.NewLastFMSource(creds.LastFM, 0); err == nil {
		list = append(list, lastfm)
	} else {
		r.logger.Debug("lastfm source unavailable", "error", err)
	}

	list = append(list, services.NewBandcampSource(r.httpClient))
	r.sources = services.NewSources(list...)
	return r.sources
}

func (r *Runner) scheduler(store *repositories.Store) *tasks.Scheduler {
	opts := tasks.OptionsFromConfig(r.config.Sync)
	return tasks.NewScheduler(store.Queue, store.Playlists, r.remoteAPI(), opts, r.metrics, r.logger)
}

func (r *Runner) matcher() *matcher.Matcher {
	return matcher.New(matcher.OptionsFromConfig(r.config.Matcher))
}

func (r *Runner) importer(ctx context.Context) *importer.Importer {
	opts := importer.Options{
		SearchDelay: r.config.Sync.CallDelay(),
		WithArtist:  r.config.Matcher.SearchWithArtist,
	}
	return importer.New(r.externalSources(ctx), r.remoteAPI(), r.matcher(), opts, r.metrics, r.logger)
}

// parseID parses a numeric playlist or entry ID argument.
func parseID(name, value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", shared.ErrInvalidArgument, name, value)
	}
	return id, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s", r.styles.Header(title))
}
