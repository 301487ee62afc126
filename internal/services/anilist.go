// AniList GraphQL implementation of [Catalog]
//
// Schema reference: https://docs.anilist.co
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/alx/internal/metrics"
	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
)

const (
	viewerQuery = `query { Viewer { id name } }`

	listQuery = `query ($userId: Int, $type: MediaType, $page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage }
    mediaList(userId: $userId, type: $type) {
      id
      status
      media { id type title { native romaji english userPreferred } }
    }
  }
}`

	searchQuery = `query ($search: String, $type: MediaType, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    pageInfo { total }
    media(search: $search, type: $type, sort: POPULARITY_DESC) {
      id
      type
      title { native romaji english userPreferred }
    }
  }
}`

	deleteMutation = `mutation ($id: Int) {
  DeleteMediaListEntry(id: $id) { deleted }
}`

	saveMutation = `mutation ($mediaId: Int, $status: MediaListStatus, $progress: Int) {
  SaveMediaListEntry(mediaId: $mediaId, status: $status, progress: $progress) { id status }
}`
)

// AniListOptions configures an [AniListService].
type AniListOptions struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// AniListService talks to the AniList GraphQL API.
//
// Search and raw queries work anonymously; list reads and mutations need [AniListService.Authenticate].
type AniListService struct {
	endpoint string
	base     *http.Client
	logger   *log.Logger

	mu     sync.RWMutex
	api    *APIService
	viewer *models.Viewer
	hook   RateLimitHook
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// NewAniListService creates an anonymous client.
func NewAniListService(opts AniListOptions) *AniListService {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &AniListService{
		endpoint: opts.Endpoint,
		base:     opts.HTTPClient,
		logger:   opts.Logger,
		api:      NewAPIService(opts.Endpoint, opts.HTTPClient),
	}
}

// Name returns the service name.
func (s *AniListService) Name() string {
	return "AniList"
}

// SetRateLimitHook registers fn to receive every X-RateLimit-Limit the service reports.
func (s *AniListService) SetRateLimitHook(fn RateLimitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Viewer returns the authenticated user, or nil before [AniListService.Authenticate].
func (s *AniListService) Viewer() *models.Viewer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewer
}

// Authenticate validates token by querying the viewer, then uses it for all later requests.
func (s *AniListService) Authenticate(ctx context.Context, token string) (*models.Viewer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", shared.ErrAuthentication)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, s.base), src)
	client.Timeout = s.base.Timeout
	api := NewAPIService(s.endpoint, client)

	var data struct {
		Viewer *models.Viewer `json:"Viewer"`
	}
	if err := s.do(ctx, api, opViewer, viewerQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Viewer == nil || data.Viewer.ID == 0 {
		return nil, fmt.Errorf("%w: token did not resolve to a user", shared.ErrAuthentication)
	}

	s.mu.Lock()
	s.api = api
	s.viewer = data.Viewer
	s.mu.Unlock()

	s.logger.Debug("authenticated", "user", data.Viewer.Name, "user_id", data.Viewer.ID)
	return data.Viewer, nil
}

// FetchPage returns page pageIndex (zero-based) of the user's list for mediaType.
func (s *AniListService) FetchPage(ctx context.Context, userID int, mediaType models.MediaType, pageIndex, perPage int) (*models.Page, error) {
	api, err := s.authenticated()
	if err != nil {
		return nil, err
	}

	vars := map[string]any{
		"userId":  userID,
		"type":    string(mediaType),
		"page":    pageIndex + 1,
		"perPage": perPage,
	}

	var data struct {
		Page struct {
			PageInfo struct {
				HasNextPage bool `json:"hasNextPage"`
			} `json:"pageInfo"`
			MediaList []models.Entry `json:"mediaList"`
		} `json:"Page"`
	}
	if err := s.do(ctx, api, "list", listQuery, vars, &data); err != nil {
		return nil, err
	}

	return &models.Page{
		Index:   pageIndex,
		Size:    perPage,
		HasMore: data.Page.PageInfo.HasNextPage,
		Entries: data.Page.MediaList,
	}, nil
}

// Search returns up to perPage media of mediaType matching query, most popular first.
func (s *AniListService) Search(ctx context.Context, query string, mediaType models.MediaType, perPage int) (*models.SearchResult, error) {
	vars := map[string]any{
		"search":  query,
		"type":    string(mediaType),
		"perPage": perPage,
	}

	var data struct {
		Page struct {
			PageInfo struct {
				Total int `json:"total"`
			} `json:"pageInfo"`
			Media []models.SearchCandidate `json:"media"`
		} `json:"Page"`
	}
	if err := s.do(ctx, s.client(), "search", searchQuery, vars, &data); err != nil {
		return nil, err
	}

	return &models.SearchResult{
		Total:      data.Page.PageInfo.Total,
		Candidates: data.Page.Media,
	}, nil
}

// DeleteEntry removes a list entry by its entry ID.
func (s *AniListService) DeleteEntry(ctx context.Context, entryID int) error {
	api, err := s.authenticated()
	if err != nil {
		return err
	}

	var data struct {
		DeleteMediaListEntry struct {
			Deleted bool `json:"deleted"`
		} `json:"DeleteMediaListEntry"`
	}
	if err := s.do(ctx, api, "delete", deleteMutation, map[string]any{"id": entryID}, &data); err != nil {
		return err
	}
	if !data.DeleteMediaListEntry.Deleted {
		return fmt.Errorf("entry %d was not deleted", entryID)
	}
	return nil
}

// SaveEntry creates or updates the viewer's list entry for mediaID.
func (s *AniListService) SaveEntry(ctx context.Context, mediaID int, status models.Status, progress int) error {
	api, err := s.authenticated()
	if err != nil {
		return err
	}

	vars := map[string]any{
		"mediaId":  mediaID,
		"status":   string(status),
		"progress": progress,
	}

	var data struct {
		SaveMediaListEntry *struct {
			ID int `json:"id"`
		} `json:"SaveMediaListEntry"`
	}
	if err := s.do(ctx, api, "save", saveMutation, vars, &data); err != nil {
		return err
	}
	if data.SaveMediaListEntry == nil || data.SaveMediaListEntry.ID == 0 {
		return fmt.Errorf("no entry returned for media %d", mediaID)
	}
	return nil
}

// Query sends a raw GraphQL document and returns the undecoded response.
//
// Non-2xx responses are returned as-is, not as errors.
func (s *AniListService) Query(ctx context.Context, query string, vars map[string]any) (*APIResponse, error) {
	start := time.Now()
	resp, err := s.client().GraphQL(ctx, query, vars)
	if err != nil {
		metrics.ObserveRequest("query", 0, time.Since(start))
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	metrics.ObserveRequest("query", resp.StatusCode, time.Since(start))
	s.notifyRateLimit(resp.Headers)
	return resp, nil
}

func (s *AniListService) client() *APIService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

func (s *AniListService) authenticated() (*APIService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.viewer == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.api, nil
}

// do posts a query, reports the rate limit header and decodes data into out.
func (s *AniListService) do(ctx context.Context, api *APIService, op, query string, vars map[string]any, out any) error {
	start := time.Now()
	resp, err := api.GraphQL(ctx, query, vars)
	if err != nil {
		metrics.ObserveRequest(op, 0, time.Since(start))
		return fmt.Errorf("%w: %s: %w", shared.ErrAPIRequest, op, err)
	}
	metrics.ObserveRequest(op, resp.StatusCode, time.Since(start))
	s.notifyRateLimit(resp.Headers)

	var env envelope
	decodeErr := json.Unmarshal(resp.Body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || len(env.Errors) > 0 {
		apiErr := newAPIError(op, resp.StatusCode, resp.Headers, env.Errors)
		s.logger.Debug("request failed", "op", op, "status", apiErr.StatusCode, "err", apiErr)
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: %s: failed to decode response: %w", shared.ErrAPIRequest, op, decodeErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %s: failed to decode data: %w", shared.ErrAPIRequest, op, err)
	}
	return nil
}

func (s *AniListService) notifyRateLimit(h http.Header) {
	v := h.Get("X-RateLimit-Limit")
	if v == "" {
		return
	}
	rpm, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || rpm <= 0 {
		return
	}

	s.mu.RLock()
	hook := s.hook
	s.mu.RUnlock()
	if hook != nil {
		hook(rpm)
	}
}
