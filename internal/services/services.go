// package services implements the AniList catalog client.
package services

import (
	"context"

	"github.com/desertthunder/alx/internal/models"
)

// Catalog is the set of remote operations the migration engine needs.
type Catalog interface {
	// Authenticate validates token and returns the viewer it belongs to.
	Authenticate(ctx context.Context, token string) (*models.Viewer, error)

	// FetchPage returns one page of the user's list for mediaType. pageIndex is zero-based.
	FetchPage(ctx context.Context, userID int, mediaType models.MediaType, pageIndex, perPage int) (*models.Page, error)

	// Search returns up to perPage media of mediaType matching query, most popular first.
	Search(ctx context.Context, query string, mediaType models.MediaType, perPage int) (*models.SearchResult, error)

	// DeleteEntry removes a list entry by its entry ID.
	DeleteEntry(ctx context.Context, entryID int) error

	// SaveEntry creates or updates the viewer's list entry for mediaID.
	SaveEntry(ctx context.Context, mediaID int, status models.Status, progress int) error
}

// RateLimitHook receives the requests-per-minute budget reported by the service.
//
// It may be called from any goroutine that issues requests.
type RateLimitHook func(rpm int)
