package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/analysis"
	"github.com/desertthunder/promptlist/internal/genres"
	"github.com/desertthunder/promptlist/internal/metrics"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/progress"
	"github.com/desertthunder/promptlist/internal/repositories"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
	"github.com/desertthunder/promptlist/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// HistoryStore saves and lists finished generations.
type HistoryStore interface {
	tasks.RecordSaver
	List(criteria map[string]any) ([]*models.GeneratedPlaylist, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	tokens     *services.TokenProvider
	catalog    services.Catalog
	completer  services.Completer
	resolver   *genres.Resolver
	progress   *progress.Store
	history    HistoryStore
	metrics    *metrics.Metrics
	generator  *tasks.Generator
	closers    []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Tokens     *services.TokenProvider
	Catalog    services.Catalog
	Completer  services.Completer
	History    HistoryStore
	Metrics    *metrics.Metrics
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
	if opts.Tokens == nil {
		opts.Tokens = services.NewTokenProvider(opts.Config.Credentials.Spotify)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		tokens:     opts.Tokens,
		catalog:    opts.Catalog,
		completer:  opts.Completer,
		history:    opts.History,
		metrics:    opts.Metrics,
	}
	r.resolver = genres.NewResolver(
		genres.WithTTL(r.config.Cache.GenreSeedTTL()),
		genres.WithLogger(r.logger),
	)
	r.progress = progress.NewStore(progress.WithCompletedTTL(r.config.Progress.CompletedTTL()))
	r.generator = r.newGenerator(r.logger)
	return r
}

// Load reads the config file named by the --config flag and wires every collaborator from it.
//
// A missing file falls back to the embedded defaults. Unreachable optional backends (Redis, the database)
// are logged and skipped.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if err := shared.LoadEnv(".env"); err != nil {
		r.logger.Warn("failed to load .env", "error", err)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		loaded, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		config = loaded
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}
	config.ApplyEnv()
	r.config = config

	r.tokens = services.NewTokenProvider(config.Credentials.Spotify)
	r.tokens.OnRefresh(func(tok *oauth2.Token) {
		if err := r.saveTokens(tok); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})
	r.catalog = r.defaultCatalog()

	if config.LLM.APIKey != "" {
		r.completer = services.NewLLMClient(config.LLM, r.logger)
	} else {
		r.logger.Debug("no LLM api key, prompt analysis uses the default profile")
	}

	resolverOpts := []genres.Option{genres.WithTTL(config.Cache.GenreSeedTTL()), genres.WithLogger(r.logger)}
	if config.Cache.RedisAddr != "" {
		cache := genres.NewRedisCache(config.Cache, r.logger)
		r.closers = append(r.closers, cache)
		resolverOpts = append(resolverOpts, genres.WithSharedCache(cache))
	}
	r.resolver = genres.NewResolver(resolverOpts...)
	r.progress = progress.NewStore(progress.WithCompletedTTL(config.Progress.CompletedTTL()))

	if db, err := shared.OpenDatabase(config.Database); err != nil {
		r.logger.Warn("database unavailable, generations will not be recorded", "path", config.Database.Path, "error", err)
	} else {
		r.closers = append(r.closers, db)
		r.history = repositories.NewGenerationRepository(db)
	}

	r.metrics = metrics.New(prometheus.NewRegistry())
	r.generator = r.newGenerator(r.logger)
	return ctx, nil
}

// Close releases the resources opened by [Runner.Load].
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// SetLogger replaces the logger used by the runner and by generators it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// newGenerator builds a generator over the runner's collaborators, logging to logger.
func (r *Runner) newGenerator(logger *log.Logger) *tasks.Generator {
	opts := []tasks.GeneratorOption{tasks.WithGeneratorLogger(logger)}
	if r.history != nil {
		opts = append(opts, tasks.WithRecords(r.history))
	}
	if r.metrics != nil {
		opts = append(opts, tasks.WithObserver(r.metrics))
	}
	return tasks.NewGenerator(analysis.NewAnalyzer(r.completer, logger), r.resolver, r.progress, opts...)
}

// defaultCatalog returns the configured account's catalog, or nil when no token is held.
func (r *Runner) defaultCatalog() services.Catalog {
	if !r.tokens.Authenticated() {
		return nil
	}
	return services.NewSpotifyService(r.config.Credentials.Spotify.APIBaseURL, r.tokens, r.logger)
}

// catalogFor serves [server.CatalogSource]: a caller's bearer token wins over the configured account.
func (r *Runner) catalogFor(bearer string) services.Catalog {
	if bearer != "" {
		return services.NewSpotifyServiceWithToken(r.config.Credentials.Spotify.APIBaseURL, bearer, r.logger)
	}
	return r.catalog
}

// saveTokens stores token in the config and writes it to the config file, if one is set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return errors.New("config is nil")
	}
	if token == nil {
		return fmt.Errorf("failed to update spotify configuration: %w", errors.New("token cannot be nil"))
	}

	r.config.Credentials.Spotify.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		r.config.Credentials.Spotify.RefreshToken = token.RefreshToken
	}

	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		generateCommand, estimateCommand, modesCommand, historyCommand, serveCommand, authCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
