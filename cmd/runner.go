package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alx/internal/pacer"
	"github.com/desertthunder/alx/internal/services"
	"github.com/desertthunder/alx/internal/shared"
	"github.com/desertthunder/alx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The AniList client, pacer and database are built on first use from the loaded config,
// unless they were injected through [RunnerOpts].
type Runner struct {
	config      *shared.Config
	configPath  string
	catalog     services.Catalog
	anilist     *services.AniListService
	limiter     tasks.Limiter
	pacer       *pacer.Pacer
	db          *sql.DB
	ownsDB      bool
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	input       io.Reader
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Catalog     services.Catalog
	Limiter     tasks.Limiter
	DB          *sql.DB
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		catalog:     opts.Catalog,
		limiter:     opts.Limiter,
		db:          opts.DB,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       opts.Input,
		openBrowser: opts.OpenBrowser,
	}
}

// SetLogger replaces the runner's logger, e.g. while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Before loads the config named by --config and applies the log level flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch {
	case cmd.Bool("verbose"):
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("quiet"):
		shared.SetLogLevel(r.logger, log.WarnLevel)
	}

	if r.config != nil {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// After releases the database handle if the runner opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db, r.ownsDB = nil, false
	return err
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// service returns the AniList client, building it from config on first use.
func (r *Runner) service() services.Catalog {
	if r.catalog == nil {
		r.anilist = services.NewAniListService(services.AniListOptions{
			Endpoint:   r.cfg().Credentials.AniList.Endpoint,
			HTTPClient: r.httpClient,
			Logger:     r.logger.WithPrefix("anilist"),
		})
		r.catalog = r.anilist
	}
	return r.catalog
}

// rateLimited is implemented by clients that report the service's budget.
type rateLimited interface {
	SetRateLimitHook(services.RateLimitHook)
}

// pace returns the limiter shared by every remote call of this process.
//
// A freshly built pacer is subscribed to the catalog's rate limit reports.
func (r *Runner) pace() tasks.Limiter {
	if r.limiter != nil {
		return r.limiter
	}

	m := r.cfg().Migration
	r.pacer = pacer.New(pacer.Options{
		SafetyMargin:    m.SafetyMargin,
		DefaultInterval: time.Duration(m.DefaultIntervalMS) * time.Millisecond,
		Logger:          r.logger.WithPrefix("pacer"),
	})
	if rl, ok := r.service().(rateLimited); ok {
		rl.SetRateLimitHook(r.pacer.Update)
	}
	r.limiter = r.pacer
	return r.limiter
}

// database opens the run history database on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, err
	}
	r.db, r.ownsDB = db, true
	return db, nil
}

// engine builds a migration engine from config and the command's overrides.
func (r *Runner) engine(policy tasks.DeletePolicy, dryRun bool) *tasks.ListEngine {
	m := r.cfg().Migration
	return tasks.NewListEngine(r.service(), r.pace(), tasks.EngineOptions{
		PageSize:       m.PageSize,
		SearchPageSize: m.SearchPageSize,
		Threshold:      m.MatchThreshold,
		DeletePolicy:   policy,
		DryRun:         dryRun,
		Logger:         r.logger,
	})
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
