package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/alx/internal/metrics"
	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
)

// DeletePolicy decides when the source entry is deleted.
type DeletePolicy string

const (
	// DeleteAlways deletes every entry that has a native title, match or not.
	// Entries without a match are lost.
	DeleteAlways DeletePolicy = "always"
	// DeleteOnMatch deletes only entries that resolved to a destination.
	DeleteOnMatch DeletePolicy = "on_match"
)

// ParseDeletePolicy accepts "always" or "on_match". Empty means [DeleteAlways].
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch DeletePolicy(s) {
	case "", DeleteAlways:
		return DeleteAlways, nil
	case DeleteOnMatch:
		return DeleteOnMatch, nil
	default:
		return "", fmt.Errorf("%w: delete policy %q (must be always or on_match)", shared.ErrInvalidArgument, s)
	}
}

// ExecutorOptions configures an [Executor].
type ExecutorOptions struct {
	DeletePolicy DeletePolicy
	DryRun       bool
	Logger       *log.Logger
}

// Executor moves eligible entries to the destination list, strictly one at a time.
type Executor struct {
	editor   ListEditor
	limiter  Limiter
	resolver *Resolver
	policy   DeletePolicy
	dryRun   bool
	logger   *log.Logger
}

// NewExecutor creates an executor.
func NewExecutor(editor ListEditor, limiter Limiter, resolver *Resolver, opts ExecutorOptions) *Executor {
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = DeleteAlways
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Executor{
		editor:   editor,
		limiter:  limiter,
		resolver: resolver,
		policy:   opts.DeletePolicy,
		dryRun:   opts.DryRun,
		logger:   opts.Logger,
	}
}

// Run processes entries in order and returns one outcome per entry.
//
// For each entry: an entry without a native title is skipped untouched. Otherwise
// the title is resolved, the source entry is deleted (per the delete policy), and
// if a match was found a planning entry with progress 0 is created for it.
// Failures are recorded as [models.OutcomeFailed] and the run continues.
//
// An empty input yields a single [models.OutcomeNoEligibleEntries] and no calls.
// If ctx is done the run stops; outcomes so far are returned with ctx's error.
func (e *Executor) Run(ctx context.Context, entries []models.Entry, dir models.Direction, progress chan<- ProgressUpdate) ([]models.Outcome, error) {
	if len(entries) == 0 {
		o := models.Outcome{Kind: models.OutcomeNoEligibleEntries}
		metrics.RecordOutcome(o.Kind.String())
		sendBlocking(ctx, progress, runLevelUpdate(o, fmt.Sprintf("No planning %s entries to migrate", dir.Source.Label())))
		return []models.Outcome{o}, nil
	}

	total := len(entries)
	outcomes := make([]models.Outcome, 0, total)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		step := i + 1
		title := entry.Title().Display()
		sendBlocking(ctx, progress, movingUpdate(step, total, title))
		metrics.SetProgress(percent(step, total))

		o := e.process(ctx, entry, dir)
		outcomes = append(outcomes, o)
		metrics.RecordOutcome(o.Kind.String())
		sendBlocking(ctx, progress, outcomeUpdate(step, total, o))

		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
	}

	return outcomes, nil
}

// process handles a single entry. It never returns an error; failures become outcomes.
func (e *Executor) process(ctx context.Context, entry models.Entry, dir models.Direction) models.Outcome {
	o := models.Outcome{EntryID: entry.ID, Title: entry.Title().Display()}
	if entry.Media != nil {
		o.MediaID = entry.Media.ID
	}
	logger := e.logger.With("entry_id", entry.ID, "media_id", o.MediaID)

	native := entry.Title().NativeValue()
	if native == "" {
		o.Kind = models.OutcomeSkippedNoTitle
		logger.Info("skipped: no native title")
		return o
	}

	res, err := e.resolver.Resolve(ctx, native, dir.Destination)
	if err != nil {
		logger.Error("resolve failed", "err", err)
		return failed(o, err)
	}

	matched := res.Kind == ResolvedMatch
	if matched {
		o.DestinationID = res.Candidate.ID
		o.Score = res.Score
	}

	if e.dryRun {
		if matched {
			o.Kind = models.OutcomeWouldMove
		} else {
			o.Kind = models.OutcomeSkippedNoMatch
		}
		return o
	}

	if matched || e.policy == DeleteAlways {
		if err := e.limiter.Wait(ctx); err != nil {
			return failed(o, fmt.Errorf("%w: delete entry %d: %w", shared.ErrRemoteMutation, entry.ID, err))
		}
		if err := e.editor.DeleteEntry(ctx, entry.ID); err != nil {
			logger.Error("delete failed", "err", err)
			return failed(o, fmt.Errorf("%w: delete entry %d: %w", shared.ErrRemoteMutation, entry.ID, err))
		}
		o.SourceDeleted = true
	}

	if !matched {
		o.Kind = models.OutcomeSkippedNoMatch
		if o.SourceDeleted {
			logger.Warn("no match: source entry deleted without replacement", "title", o.Title)
		} else {
			logger.Info("no match: source entry kept", "title", o.Title)
		}
		return o
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return failed(o, fmt.Errorf("%w: create media %d: %w", shared.ErrRemoteMutation, o.DestinationID, err))
	}
	if err := e.editor.SaveEntry(ctx, o.DestinationID, models.StatusPlanning, 0); err != nil {
		logger.Error("create failed after delete", "destination_id", o.DestinationID, "err", err)
		return failed(o, fmt.Errorf("%w: create media %d: %w", shared.ErrRemoteMutation, o.DestinationID, err))
	}

	o.Kind = models.OutcomeMoved
	logger.Info("moved", "destination_id", o.DestinationID, "score", o.Score)
	return o
}

func failed(o models.Outcome, err error) models.Outcome {
	o.Kind = models.OutcomeFailed
	o.Reason = err.Error()
	return o
}
