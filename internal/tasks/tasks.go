// package tasks implements the AniList list migration engine.
//
// The [MigrationEngine] authenticates, walks every page of the source list, filters
// the planning entries and hands them to the [Executor], which resolves, deletes and
// recreates them one at a time. Every remote call waits on the shared [Limiter] first.
package tasks

import (
	"context"

	"github.com/desertthunder/alx/internal/models"
)

// Limiter hands out remote call slots. [pacer.Pacer] implements it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// PageFetcher is the part of [services.Catalog] the [Walker] uses.
type PageFetcher interface {
	FetchPage(ctx context.Context, userID int, mediaType models.MediaType, pageIndex, perPage int) (*models.Page, error)
}

// Searcher is the part of [services.Catalog] the [Resolver] uses.
type Searcher interface {
	Search(ctx context.Context, query string, mediaType models.MediaType, perPage int) (*models.SearchResult, error)
}

// ListEditor is the part of [services.Catalog] the [Executor] uses.
type ListEditor interface {
	DeleteEntry(ctx context.Context, entryID int) error
	SaveEntry(ctx context.Context, mediaID int, status models.Status, progress int) error
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// sendBlocking delivers per-entry updates (the "moving" event and its outcome)
// and run-level outcomes. These are never dropped; it blocks until the receiver
// takes the update or ctx is done.
func sendBlocking(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	case <-ctx.Done():
	}
}
