package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
)

// fakeAniList answers GraphQL posts with handle and records every request.
type fakeAniList struct {
	t      *testing.T
	handle func(w http.ResponseWriter, req GraphQLRequest, auth string)

	mu       sync.Mutex
	requests []GraphQLRequest
	auths    []string
}

func (f *fakeAniList) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("failed to decode request: %v", err)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.auths = append(f.auths, r.Header.Get("Authorization"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	f.handle(w, req, r.Header.Get("Authorization"))
}

func newFakeAniList(t *testing.T, handle func(w http.ResponseWriter, req GraphQLRequest, auth string)) (*fakeAniList, *AniListService) {
	t.Helper()
	fake := &fakeAniList{t: t, handle: handle}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return fake, NewAniListService(AniListOptions{Endpoint: server.URL})
}

const viewerOK = `{"data":{"Viewer":{"id":42,"name":"mira"}}}`

func authenticate(t *testing.T, srv *AniListService) {
	t.Helper()
	if _, err := srv.Authenticate(context.Background(), "secret"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
}

func TestAniListAuthenticate(t *testing.T) {
	t.Run("Valid Token", func(t *testing.T) {
		fake, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			fmt.Fprint(w, viewerOK)
		})

		viewer, err := srv.Authenticate(context.Background(), "  secret \n")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if viewer.ID != 42 || viewer.Name != "mira" {
			t.Errorf("unexpected viewer %+v", viewer)
		}
		if srv.Viewer() == nil {
			t.Error("expected viewer to be stored")
		}
		if fake.auths[0] != "Bearer secret" {
			t.Errorf("expected bearer token header, got %q", fake.auths[0])
		}
	})

	t.Run("Empty Token", func(t *testing.T) {
		fake, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {})

		_, err := srv.Authenticate(context.Background(), "   ")
		if !errors.Is(err, shared.ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
		if len(fake.requests) != 0 {
			t.Error("expected no request for an empty token")
		}
	})

	t.Run("Invalid Token", func(t *testing.T) {
		_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"data":null,"errors":[{"message":"Invalid token","status":400}]}`)
		})

		_, err := srv.Authenticate(context.Background(), "bad")
		if !errors.Is(err, shared.ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
			t.Errorf("expected APIError with status 400, got %v", err)
		}
		if srv.Viewer() != nil {
			t.Error("viewer should not be stored after a failed authentication")
		}
	})

	t.Run("Bare Bad Request", func(t *testing.T) {
		_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"data":null,"errors":[{"message":"Unauthorized.","status":400}]}`)
		})

		_, err := srv.Authenticate(context.Background(), "expired")
		if !errors.Is(err, shared.ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
		if errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("token refusal should not read as a request error: %v", err)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := srv.Authenticate(context.Background(), "bad")
		if !errors.Is(err, shared.ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
	})
}

func TestAniListRequiresAuthentication(t *testing.T) {
	_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
		t.Error("no request expected")
	})
	ctx := context.Background()

	if _, err := srv.FetchPage(ctx, 1, models.MediaTypeAnime, 0, 25); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("FetchPage: expected ErrNotAuthenticated, got %v", err)
	}
	if err := srv.DeleteEntry(ctx, 1); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("DeleteEntry: expected ErrNotAuthenticated, got %v", err)
	}
	if err := srv.SaveEntry(ctx, 1, models.StatusPlanning, 0); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("SaveEntry: expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAniListFetchPage(t *testing.T) {
	fake, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
		if strings.Contains(req.Query, "Viewer") {
			fmt.Fprint(w, viewerOK)
			return
		}
		fmt.Fprint(w, `{"data":{"Page":{"pageInfo":{"hasNextPage":true},"mediaList":[
			{"id":1,"status":"PLANNING","media":{"id":10,"type":"ANIME","title":{"native":"進撃の巨人","romaji":"Shingeki no Kyojin"}}},
			{"id":2,"status":"COMPLETED","media":null}
		]}}}`)
	})
	authenticate(t, srv)

	page, err := srv.FetchPage(context.Background(), 42, models.MediaTypeAnime, 0, 25)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if page.Index != 0 || page.Size != 25 || !page.HasMore {
		t.Errorf("unexpected page metadata %+v", page)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Entries))
	}
	first := page.Entries[0]
	if first.ID != 1 || first.Status != models.StatusPlanning || first.Type() != models.MediaTypeAnime {
		t.Errorf("unexpected first entry %+v", first)
	}
	if first.Title().NativeValue() != "進撃の巨人" {
		t.Errorf("unexpected native title %q", first.Title().NativeValue())
	}
	if page.Entries[1].Media != nil {
		t.Error("expected nil media to decode as nil")
	}

	vars := fake.requests[1].Variables
	if vars["page"] != float64(1) {
		t.Errorf("expected zero-based index 0 to be sent as page 1, got %v", vars["page"])
	}
	if vars["userId"] != float64(42) || vars["type"] != "ANIME" || vars["perPage"] != float64(25) {
		t.Errorf("unexpected variables %v", vars)
	}
}

func TestAniListSearch(t *testing.T) {
	fake, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
		fmt.Fprint(w, `{"data":{"Page":{"pageInfo":{"total":2},"media":[
			{"id":5,"type":"MANGA","title":{"native":"鋼の錬金術師"}},
			{"id":6,"type":"MANGA","title":{"native":""}}
		]}}}`)
	})

	result, err := srv.Search(context.Background(), "鋼の錬金術師", models.MediaTypeManga, 20)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Total != 2 || len(result.Candidates) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Candidates[0].ID != 5 {
		t.Errorf("expected service order to be kept, got %+v", result.Candidates)
	}

	req := fake.requests[0]
	if !strings.Contains(req.Query, "POPULARITY_DESC") {
		t.Error("expected search sorted by popularity")
	}
	if req.Variables["perPage"] != float64(20) || req.Variables["type"] != "MANGA" {
		t.Errorf("unexpected variables %v", req.Variables)
	}
	if fake.auths[0] != "" {
		t.Error("anonymous search should not send a token")
	}
}

func TestAniListMutations(t *testing.T) {
	t.Run("DeleteEntry", func(t *testing.T) {
		fake, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			switch {
			case strings.Contains(req.Query, "Viewer"):
				fmt.Fprint(w, viewerOK)
			case req.Variables["id"] == float64(1):
				fmt.Fprint(w, `{"data":{"DeleteMediaListEntry":{"deleted":true}}}`)
			default:
				fmt.Fprint(w, `{"data":{"DeleteMediaListEntry":{"deleted":false}}}`)
			}
		})
		authenticate(t, srv)

		if err := srv.DeleteEntry(context.Background(), 1); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if err := srv.DeleteEntry(context.Background(), 2); err == nil {
			t.Error("expected error when the service reports deleted=false")
		}
		if !strings.Contains(fake.requests[1].Query, "DeleteMediaListEntry") {
			t.Error("expected DeleteMediaListEntry mutation")
		}
	})

	t.Run("SaveEntry", func(t *testing.T) {
		fake, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			if strings.Contains(req.Query, "Viewer") {
				fmt.Fprint(w, viewerOK)
				return
			}
			fmt.Fprint(w, `{"data":{"SaveMediaListEntry":{"id":99,"status":"PLANNING"}}}`)
		})
		authenticate(t, srv)

		if err := srv.SaveEntry(context.Background(), 5, models.StatusPlanning, 0); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		vars := fake.requests[1].Variables
		if vars["mediaId"] != float64(5) || vars["status"] != "PLANNING" || vars["progress"] != float64(0) {
			t.Errorf("unexpected variables %v", vars)
		}
	})
}

func TestAniListRateLimit(t *testing.T) {
	t.Run("Hook Receives Reported Budget", func(t *testing.T) {
		_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			w.Header().Set("X-RateLimit-Limit", "90")
			fmt.Fprint(w, `{"data":{"Page":{"pageInfo":{"total":0},"media":[]}}}`)
		})

		var got []int
		srv.SetRateLimitHook(func(rpm int) { got = append(got, rpm) })

		if _, err := srv.Search(context.Background(), "x", models.MediaTypeAnime, 20); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0] != 90 {
			t.Errorf("expected hook called with 90, got %v", got)
		}
	})

	t.Run("Malformed Header Ignored", func(t *testing.T) {
		_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			w.Header().Set("X-RateLimit-Limit", "lots")
			fmt.Fprint(w, `{"data":{"Page":{"pageInfo":{"total":0},"media":[]}}}`)
		})

		called := false
		srv.SetRateLimitHook(func(int) { called = true })
		if _, err := srv.Search(context.Background(), "x", models.MediaTypeAnime, 20); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if called {
			t.Error("hook should not be called for a malformed header")
		}
	})

	t.Run("Too Many Requests", func(t *testing.T) {
		_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"data":null,"errors":[{"message":"Too Many Requests.","status":429}]}`)
		})

		_, err := srv.Search(context.Background(), "x", models.MediaTypeAnime, 20)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.RetryAfter != 30*time.Second {
			t.Errorf("expected RetryAfter 30s, got %v", err)
		}
	})
}

func TestAniListErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `oops`, shared.ErrServiceUnavailable},
		{"graphql error with 200", http.StatusOK, `{"data":null,"errors":[{"message":"Validation error","status":400}]}`, shared.ErrAPIRequest},
		{"not found", http.StatusNotFound, `{"errors":[{"message":"Not Found.","status":404}]}`, shared.ErrAPIRequest},
		{"bad request outside viewer", http.StatusBadRequest, `{"errors":[{"message":"Validation error","status":400}]}`, shared.ErrAPIRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := srv.Search(context.Background(), "x", models.MediaTypeAnime, 20)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("Malformed Body", func(t *testing.T) {
		_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
			fmt.Fprint(w, `not json`)
		})

		_, err := srv.Search(context.Background(), "x", models.MediaTypeAnime, 20)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestAniListQuery(t *testing.T) {
	_, srv := newFakeAniList(t, func(w http.ResponseWriter, req GraphQLRequest, auth string) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errors":[{"message":"bad"}]}`)
	})

	var rpm int
	srv.SetRateLimitHook(func(v int) { rpm = v })

	resp, err := srv.Query(context.Background(), "{ nope }", nil)
	if err != nil {
		t.Fatalf("Query() should not fail on a non-2xx status, got %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || !resp.IsJSON {
		t.Errorf("unexpected response %+v", resp)
	}
	if rpm != 60 {
		t.Errorf("expected rate limit hook called with 60, got %d", rpm)
	}
}

func TestOAuth(t *testing.T) {
	t.Run("ImplicitGrantURL", func(t *testing.T) {
		got := ImplicitGrantURL("21239")
		want := "https://anilist.co/api/v2/oauth/authorize?client_id=21239&response_type=token"
		if got != want {
			t.Errorf("ImplicitGrantURL() = %s, want %s", got, want)
		}
	})

	t.Run("NewOAuthConfig", func(t *testing.T) {
		cfg := NewOAuthConfig(shared.AniListConfig{ClientID: "1", ClientSecret: "s", RedirectURI: "http://localhost:3000/callback"})
		url := cfg.AuthCodeURL("state")
		if !strings.HasPrefix(url, anilistAuthURL) || !strings.Contains(url, "state=state") {
			t.Errorf("unexpected auth code URL %s", url)
		}
		if cfg.Endpoint.TokenURL != anilistTokenURL {
			t.Errorf("unexpected token URL %s", cfg.Endpoint.TokenURL)
		}
	})
}
