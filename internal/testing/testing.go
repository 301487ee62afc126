// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/alx/internal/models"
)

// Call is one recorded [MockCatalog] invocation.
type Call struct {
	Method string
	Arg    int
	Query  string
}

// MockCatalog is an in-memory test double for [services.Catalog].
//
// Pages are served by zero-based index. Searches are answered from Results keyed
// by query; a missing key returns an empty result. The Err fields inject failures.
type MockCatalog struct {
	Viewer  *models.Viewer
	Pages   map[models.MediaType][]models.Page
	Results map[string][]models.SearchCandidate

	AuthErr   error
	FetchErr  map[int]error
	SearchErr map[string]error
	DeleteErr map[int]error
	SaveErr   map[int]error

	mu    sync.Mutex
	calls []Call
}

// NewMockCatalog returns a catalog for viewer 1 with no pages.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Viewer:    &models.Viewer{ID: 1, Name: "tester"},
		Pages:     map[models.MediaType][]models.Page{},
		Results:   map[string][]models.SearchCandidate{},
		FetchErr:  map[int]error{},
		SearchErr: map[string]error{},
		DeleteErr: map[int]error{},
		SaveErr:   map[int]error{},
	}
}

// SetEntries splits entries into pages of size for mediaType.
func (m *MockCatalog) SetEntries(mediaType models.MediaType, size int, entries []models.Entry) {
	var pages []models.Page
	for i := 0; i < len(entries); i += size {
		end := min(i+size, len(entries))
		pages = append(pages, models.Page{Index: len(pages), Size: size, Entries: entries[i:end]})
	}
	for i := range pages {
		pages[i].HasMore = i < len(pages)-1
	}
	m.Pages[mediaType] = pages
}

func (m *MockCatalog) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns the recorded invocations in order.
func (m *MockCatalog) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Count returns how many times method was called.
func (m *MockCatalog) Count(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockCatalog) Authenticate(ctx context.Context, token string) (*models.Viewer, error) {
	m.record(Call{Method: "Authenticate", Query: token})
	if m.AuthErr != nil {
		return nil, m.AuthErr
	}
	return m.Viewer, nil
}

func (m *MockCatalog) FetchPage(ctx context.Context, userID int, mediaType models.MediaType, pageIndex, perPage int) (*models.Page, error) {
	m.record(Call{Method: "FetchPage", Arg: pageIndex})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.FetchErr[pageIndex]; err != nil {
		return nil, err
	}
	pages := m.Pages[mediaType]
	if pageIndex >= len(pages) {
		return &models.Page{Index: pageIndex, Size: perPage}, nil
	}
	page := pages[pageIndex]
	return &page, nil
}

func (m *MockCatalog) Search(ctx context.Context, query string, mediaType models.MediaType, perPage int) (*models.SearchResult, error) {
	m.record(Call{Method: "Search", Query: query, Arg: perPage})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.SearchErr[query]; err != nil {
		return nil, err
	}
	candidates := m.Results[query]
	if len(candidates) > perPage {
		candidates = candidates[:perPage]
	}
	return &models.SearchResult{Total: len(m.Results[query]), Candidates: candidates}, nil
}

func (m *MockCatalog) DeleteEntry(ctx context.Context, entryID int) error {
	m.record(Call{Method: "DeleteEntry", Arg: entryID})
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.DeleteErr[entryID]
}

func (m *MockCatalog) SaveEntry(ctx context.Context, mediaID int, status models.Status, progress int) error {
	m.record(Call{Method: "SaveEntry", Arg: mediaID, Query: string(status)})
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.SaveErr[mediaID]
}

// CountingLimiter is a pacer stand-in that counts slots without waiting.
type CountingLimiter struct {
	mu    sync.Mutex
	waits int
	Err   error
}

func (c *CountingLimiter) Wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits++
	if c.Err != nil {
		return c.Err
	}
	return ctx.Err()
}

// Waits returns how many slots were requested.
func (c *CountingLimiter) Waits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waits
}

// Entry builds a list entry with native title for mediaType.
func Entry(id int, mediaType models.MediaType, status models.Status, native string) models.Entry {
	return models.Entry{
		ID:     id,
		Status: status,
		Media: &models.Media{
			ID:    id * 100,
			Type:  mediaType,
			Title: models.Title{Native: native, Romaji: native},
		},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
