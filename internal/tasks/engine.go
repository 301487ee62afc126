package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/services"
	"github.com/desertthunder/alx/internal/shared"
)

// MigrationEngine defines the caller-facing migration operation.
type MigrationEngine interface {
	// Begin authenticates with token and moves every planning entry from dir.Source to
	// dir.Destination, streaming progress and outcomes on progress.
	Begin(ctx context.Context, token string, dir models.Direction, progress chan<- ProgressUpdate) (*RunResult, error)
}

// RunResult is everything one call to Begin produced.
type RunResult struct {
	Viewer       *models.Viewer
	Direction    models.Direction
	DeletePolicy DeletePolicy
	DryRun       bool
	Fetched      int
	Eligible     int
	Outcomes     []models.Outcome
	Counts       models.OutcomeCounts
	StartedAt    time.Time
	CompletedAt  time.Time
}

// EngineOptions configures a [ListEngine].
type EngineOptions struct {
	PageSize       int
	SearchPageSize int
	Threshold      int
	DeletePolicy   DeletePolicy
	DryRun         bool
	Logger         *log.Logger
}

// ListEngine implements [MigrationEngine] on a [services.Catalog].
type ListEngine struct {
	catalog  services.Catalog
	limiter  Limiter
	walker   *Walker
	resolver *Resolver
	executor *Executor
	opts     EngineOptions
	logger   *log.Logger
}

// NewListEngine wires a walker, resolver and executor around catalog, all sharing limiter.
func NewListEngine(catalog services.Catalog, limiter Limiter, opts EngineOptions) *ListEngine {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = DeleteAlways
	}

	resolver := NewResolver(catalog, limiter, ResolverOptions{
		Threshold: opts.Threshold,
		PageSize:  opts.SearchPageSize,
		Logger:    opts.Logger.WithPrefix("resolver"),
	})

	return &ListEngine{
		catalog:  catalog,
		limiter:  limiter,
		walker:   NewWalker(catalog, limiter, opts.PageSize, opts.Logger.WithPrefix("walker")),
		resolver: resolver,
		executor: NewExecutor(catalog, limiter, resolver, ExecutorOptions{
			DeletePolicy: opts.DeletePolicy,
			DryRun:       opts.DryRun,
			Logger:       opts.Logger.WithPrefix("executor"),
		}),
		opts:   opts,
		logger: opts.Logger,
	}
}

// Resolver returns the engine's resolver.
func (e *ListEngine) Resolver() *Resolver {
	return e.resolver
}

// Begin runs one migration.
//
// Authentication and enumeration failures abort before any entry is touched and
// wrap [shared.ErrAuthentication] or [shared.ErrFetch]. An empty source list
// yields a single [models.OutcomeNoEntriesFound]. Per-entry failures are outcomes,
// not errors. On cancellation the partial result is returned with ctx's error.
func (e *ListEngine) Begin(ctx context.Context, token string, dir models.Direction, progress chan<- ProgressUpdate) (*RunResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	result := &RunResult{
		Direction:    dir,
		DeletePolicy: e.opts.DeletePolicy,
		DryRun:       e.opts.DryRun,
		StartedAt:    time.Now(),
	}
	finish := func(err error) (*RunResult, error) {
		result.Counts = models.Count(result.Outcomes)
		result.CompletedAt = time.Now()
		return result, err
	}

	sendProgress(progress, authenticatingUpdate())
	if err := e.limiter.Wait(ctx); err != nil {
		return finish(err)
	}
	viewer, err := e.catalog.Authenticate(ctx, token)
	if err != nil {
		if !errors.Is(err, shared.ErrAuthentication) {
			err = fmt.Errorf("%w: %w", shared.ErrAuthentication, err)
		}
		return finish(err)
	}
	result.Viewer = viewer
	sendProgress(progress, authenticatedUpdate(viewer))
	e.logger.Info("starting migration", "user", viewer.Name, "direction", dir, "policy", e.opts.DeletePolicy, "dry_run", e.opts.DryRun)

	entries, err := e.walker.FetchAll(ctx, viewer.ID, dir.Source, progress)
	if err != nil {
		return finish(err)
	}
	result.Fetched = len(entries)

	if len(entries) == 0 {
		o := models.Outcome{Kind: models.OutcomeNoEntriesFound}
		result.Outcomes = []models.Outcome{o}
		sendBlocking(ctx, progress, runLevelUpdate(o, fmt.Sprintf("No %s entries found", dir.Source.Label())))
		return finish(nil)
	}

	eligible := FilterEligible(entries, dir.Source)
	result.Eligible = len(eligible)
	sendProgress(progress, filteredUpdate(len(entries), len(eligible), dir.Source))

	outcomes, err := e.executor.Run(ctx, eligible, dir, progress)
	result.Outcomes = outcomes
	if err != nil {
		return finish(err)
	}

	res, err := finish(nil)
	sendProgress(progress, completedUpdate(res.Counts))
	e.logger.Info("migration complete", "moved", res.Counts.Moved, "would_move", res.Counts.WouldMove,
		"skipped", res.Counts.Skipped(), "failed", res.Counts.Failed, "lost", res.Counts.Lost)
	return res, err
}
