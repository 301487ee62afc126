package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
)

// DefaultPageSize is the number of list entries requested per page.
const DefaultPageSize = 25

// Walker enumerates every entry of one list partition, page by page.
type Walker struct {
	fetcher  PageFetcher
	limiter  Limiter
	pageSize int
	logger   *log.Logger
}

// NewWalker creates a walker. A non-positive pageSize uses [DefaultPageSize].
func NewWalker(fetcher PageFetcher, limiter Limiter, pageSize int, logger *log.Logger) *Walker {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Walker{fetcher: fetcher, limiter: limiter, pageSize: pageSize, logger: logger}
}

// FetchAll returns every entry of the user's mediaType list in page then in-page order.
//
// Pages are requested from index 0 until one reports no further pages. Any failure
// discards what was fetched so far and returns an error wrapping [shared.ErrFetch].
// An empty list is not an error.
func (w *Walker) FetchAll(ctx context.Context, userID int, mediaType models.MediaType, progress chan<- ProgressUpdate) ([]models.Entry, error) {
	entries := []models.Entry{}

	for index := 0; ; index++ {
		sendProgress(progress, fetchPageUpdate(index, mediaType, len(entries)))

		if err := w.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", shared.ErrFetch, index, err)
		}

		page, err := w.fetcher.FetchPage(ctx, userID, mediaType, index, w.pageSize)
		if err != nil {
			w.logger.Error("page fetch failed", "media_type", mediaType, "page", index, "err", err)
			return nil, fmt.Errorf("%w: page %d: %w", shared.ErrFetch, index, err)
		}

		entries = append(entries, page.Entries...)
		w.logger.Debug("fetched page", "media_type", mediaType, "page", index, "entries", len(page.Entries), "has_more", page.HasMore)

		if !page.HasMore {
			break
		}
	}

	return entries, nil
}
