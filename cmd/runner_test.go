package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/repositories"
	"github.com/desertthunder/alx/internal/shared"
	tu "github.com/desertthunder/alx/internal/testing"
)

// fixture is a runner wired to an in-memory catalog and database.
type fixture struct {
	runner  *Runner
	catalog *tu.MockCatalog
	limiter *tu.CountingLimiter
	output  *bytes.Buffer
	config  *shared.Config
	db      *repositories.RunRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv(shared.TokenEnvVar, "")

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.Credentials.AniList.Token = "test-token"
	config.Credentials.AniList.TokenPath = filepath.Join(t.TempDir(), "token")

	catalog := tu.NewMockCatalog()
	catalog.SetEntries(models.MediaTypeAnime, 25, []models.Entry{
		tu.Entry(1, models.MediaTypeAnime, models.StatusPlanning, "進撃の巨人"),
		tu.Entry(2, models.MediaTypeAnime, models.StatusCurrent, "ワンピース"),
		tu.Entry(3, models.MediaTypeAnime, models.StatusPlanning, ""),
		tu.Entry(4, models.MediaTypeAnime, models.StatusPlanning, "無名"),
	})
	catalog.Results["進撃の巨人"] = []models.SearchCandidate{
		{ID: 900, Type: models.MediaTypeManga, Title: models.Title{Native: "進撃の巨人", Romaji: "Shingeki no Kyojin"}},
	}

	limiter := &tu.CountingLimiter{}
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:  config,
		Catalog: catalog,
		Limiter: limiter,
		DB:      db,
		Logger:  shared.DiscardLogger(),
		Output:  output,
		Input:   strings.NewReader(""),
		OpenBrowser: func(string) error {
			return errors.New("no browser in tests")
		},
	})

	return &fixture{
		runner:  runner,
		catalog: catalog,
		limiter: limiter,
		output:  output,
		config:  config,
		db:      repositories.NewRunRepository(db),
	}
}

func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	return f.runner.App().Run(context.Background(), append([]string{"alx"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := tu.NewMockCatalog()
			limiter := &tu.CountingLimiter{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Catalog:    catalog,
				Limiter:    limiter,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.service() != catalog {
				t.Error("expected injected catalog to be used")
			}
			if runner.pace() != limiter {
				t.Error("expected injected limiter to be used")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.cfg() == nil {
				t.Fatal("expected default config")
			}
			if runner.cfg().Migration.MatchThreshold != 85 {
				t.Errorf("expected default threshold 85, got %d", runner.cfg().Migration.MatchThreshold)
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default with timeout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.httpClient == nil || runner.httpClient.Timeout == 0 {
				t.Error("expected a default http client with a timeout")
			}
		})

		t.Run("builds the AniList client and pacer lazily", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger()})

			if runner.catalog != nil || runner.limiter != nil {
				t.Fatal("expected no client before first use")
			}
			runner.pace()
			if runner.anilist == nil {
				t.Error("expected AniList client to be built")
			}
			if runner.pacer == nil || runner.limiter != runner.pacer {
				t.Error("expected pacer to be the limiter")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "migrate", "search", "history", "api", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil || cmd.Name != want[i] {
				t.Errorf("command %d: expected %s, got %+v", i, want[i], cmd)
			}
		}
	})

	t.Run("After keeps an injected database open", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "history", "list"); err != nil {
			t.Fatalf("history list error = %v", err)
		}
		if _, err := f.db.List(nil); err != nil {
			t.Errorf("expected database to stay open, got %v", err)
		}
	})
}

func TestMigrate(t *testing.T) {
	t.Run("moves matched entries and records the run", func(t *testing.T) {
		f := newFixture(t)
		report := filepath.Join(t.TempDir(), "report.md")

		if err := f.run(t, "migrate", "--report", report); err != nil {
			t.Fatalf("migrate error = %v", err)
		}

		out := f.output.String()
		for _, want := range []string{"anime-to-manga", "-> media 900", "no native title", "no match found", "Moved: 1"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}

		if got := f.catalog.Count("DeleteEntry"); got != 2 {
			t.Errorf("expected 2 deletions under the always policy, got %d", got)
		}
		if got := f.catalog.Count("SaveEntry"); got != 1 {
			t.Errorf("expected 1 creation, got %d", got)
		}

		runs, err := f.db.List(nil)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 recorded run, got %d", len(runs))
		}
		run := runs[0]
		if run.Status() != models.RunStatusCompleted || run.Moved() != 1 || run.Lost() != 1 || run.Total() != 3 {
			t.Errorf("unexpected run record: status=%s moved=%d lost=%d total=%d", run.Status(), run.Moved(), run.Lost(), run.Total())
		}

		tu.AssertFileExists(t, report)
		if content := tu.MustReadFile(t, report); !strings.Contains(content, "# Run #1: anime-to-manga") {
			t.Errorf("expected report title, got:\n%s", content)
		}
	})

	t.Run("dry run never mutates", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "migrate", "--dry-run"); err != nil {
			t.Fatalf("migrate error = %v", err)
		}

		if f.catalog.Count("DeleteEntry") != 0 || f.catalog.Count("SaveEntry") != 0 {
			t.Errorf("expected no mutations, got calls %+v", f.catalog.Calls())
		}
		if out := f.output.String(); !strings.Contains(out, "Would move") || !strings.Contains(out, "(dry run)") {
			t.Errorf("expected dry run output, got:\n%s", out)
		}

		runs, _ := f.db.List(nil)
		if len(runs) != 1 || !runs[0].DryRun() {
			t.Errorf("expected one dry run recorded, got %d", len(runs))
		}
	})

	t.Run("on_match policy keeps unmatched entries", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "migrate", "--delete-policy", "on_match"); err != nil {
			t.Fatalf("migrate error = %v", err)
		}
		if got := f.catalog.Count("DeleteEntry"); got != 1 {
			t.Errorf("expected only the matched entry deleted, got %d", got)
		}
	})

	t.Run("metrics listener", func(t *testing.T) {
		f := newFixture(t)
		f.config.Server.Port = 0

		if err := f.run(t, "migrate", "--metrics", "--no-history"); err != nil {
			t.Fatalf("migrate error = %v", err)
		}
		if got := f.catalog.Count("SaveEntry"); got != 1 {
			t.Errorf("expected 1 creation, got %d", got)
		}
	})

	t.Run("no-history skips recording", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "migrate", "--no-history"); err != nil {
			t.Fatalf("migrate error = %v", err)
		}
		if runs, _ := f.db.List(nil); len(runs) != 0 {
			t.Errorf("expected no recorded runs, got %d", len(runs))
		}
	})

	t.Run("authentication failure aborts", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.AuthErr = errors.New("invalid token")

		err := f.run(t, "migrate")
		if !errors.Is(err, shared.ErrAuthentication) {
			t.Fatalf("expected ErrAuthentication, got %v", err)
		}
		if f.catalog.Count("FetchPage") != 0 {
			t.Error("expected no fetch after authentication failure")
		}
		if runs, _ := f.db.List(nil); len(runs) != 0 {
			t.Errorf("expected nothing recorded without a viewer, got %d", len(runs))
		}
	})

	t.Run("fetch failure is recorded as aborted", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.FetchErr[0] = errors.New("boom")

		err := f.run(t, "migrate")
		if !errors.Is(err, shared.ErrFetch) {
			t.Fatalf("expected ErrFetch, got %v", err)
		}
		runs, _ := f.db.List(nil)
		if len(runs) != 1 || runs[0].Status() != models.RunStatusAborted {
			t.Errorf("expected one aborted run, got %+v", runs)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t)
		f.config.Credentials.AniList.Token = ""

		err := f.run(t, "migrate")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Fatalf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("invalid arguments", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
		}{
			{name: "direction", args: []string{"migrate", "--direction", "sideways"}},
			{name: "delete policy", args: []string{"migrate", "--delete-policy", "sometimes"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				if err := f.run(t, tt.args...); err == nil {
					t.Fatal("expected error")
				}
				if len(f.catalog.Calls()) != 0 {
					t.Errorf("expected no remote calls, got %+v", f.catalog.Calls())
				}
			})
		}
	})
}

func TestAuth(t *testing.T) {
	t.Run("login with token saves it", func(t *testing.T) {
		f := newFixture(t)
		path := f.config.Credentials.AniList.TokenPath

		if err := f.run(t, "auth", "login", "--token", "fresh-token"); err != nil {
			t.Fatalf("login error = %v", err)
		}

		if content := tu.MustReadFile(t, path); strings.TrimSpace(content) != "fresh-token" {
			t.Errorf("expected saved token, got %q", content)
		}
		if !strings.Contains(f.output.String(), "Signed in as tester") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
		if f.limiter.Waits() != 1 {
			t.Errorf("expected authentication to take one pacer slot, got %d", f.limiter.Waits())
		}
	})

	t.Run("login rejects an invalid token", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.AuthErr = errors.New("invalid token")

		err := f.run(t, "auth", "login", "--token", "bad")
		if !errors.Is(err, shared.ErrAuthentication) {
			t.Fatalf("expected ErrAuthentication, got %v", err)
		}
		if _, err := os.Stat(f.config.Credentials.AniList.TokenPath); !os.IsNotExist(err) {
			t.Error("expected no token file")
		}
	})

	t.Run("login reads a pasted token", func(t *testing.T) {
		f := newFixture(t)
		f.runner.input = strings.NewReader("pasted-token\n")

		if err := f.run(t, "auth", "login", "--no-browser"); err != nil {
			t.Fatalf("login error = %v", err)
		}
		calls := f.catalog.Calls()
		if len(calls) != 1 || calls[0].Query != "pasted-token" {
			t.Errorf("expected authentication with the pasted token, got %+v", calls)
		}
	})

	t.Run("status", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "auth", "status"); err != nil {
			t.Fatalf("status error = %v", err)
		}
		if !strings.Contains(f.output.String(), "Signed in as tester (id 1)") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
	})

	t.Run("logout removes the token file", func(t *testing.T) {
		f := newFixture(t)
		path := f.config.Credentials.AniList.TokenPath
		if err := shared.SaveToken(path, "saved"); err != nil {
			t.Fatal(err)
		}

		if err := f.run(t, "auth", "logout"); err != nil {
			t.Fatalf("logout error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected token file to be removed")
		}
		if !strings.Contains(f.output.String(), "still set in the config") {
			t.Errorf("expected warning about config token, got %s", f.output.String())
		}
	})
}

func TestSearch(t *testing.T) {
	t.Run("marks the accepted candidate", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "search", "進撃の巨人"); err != nil {
			t.Fatalf("search error = %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "✓ 100") || !strings.Contains(out, "Would match media 900") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if f.catalog.Count("Authenticate") != 0 {
			t.Error("expected search without authentication")
		}
	})

	t.Run("json output", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "search", "--json", "進撃の巨人"); err != nil {
			t.Fatalf("search error = %v", err)
		}

		var got []scoredJSON
		if err := json.Unmarshal(f.output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, f.output.String())
		}
		if len(got) != 1 || got[0].ID != 900 || !got[0].Accepted || got[0].Score != 100 {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "search", "無名"); err != nil {
			t.Fatalf("search error = %v", err)
		}
		if !strings.Contains(f.output.String(), "No candidates found") {
			t.Errorf("unexpected output:\n%s", f.output.String())
		}
	})

	t.Run("missing title", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	if err := f.run(t, "migrate"); err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if err := f.run(t, "migrate", "--dry-run"); err != nil {
		t.Fatalf("migrate error = %v", err)
	}

	t.Run("list", func(t *testing.T) {
		f.output.Reset()
		if err := f.run(t, "history", "list"); err != nil {
			t.Fatalf("history list error = %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "completed*") || strings.Count(out, "anime-to-manga") != 2 {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("show by sequence", func(t *testing.T) {
		f.output.Reset()
		if err := f.run(t, "history", "show", "1"); err != nil {
			t.Fatalf("history show error = %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "Run #1") || !strings.Contains(out, "-> media 900") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("show writes a report", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.csv")
		if err := f.run(t, "history", "show", "--report", path, "#2"); err != nil {
			t.Fatalf("history show error = %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.HasPrefix(content, "Position,Outcome") {
			t.Errorf("unexpected report:\n%s", content)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := f.run(t, "history", "delete", "1"); err != nil {
			t.Fatalf("history delete error = %v", err)
		}
		err := f.run(t, "history", "show", "1")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		if err := f.run(t, "history", "show", "does-not-exist"); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	f := newFixture(t)
	f.runner.config = nil
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := f.run(t, "--config", path, "setup"); err != nil {
		t.Fatalf("setup error = %v", err)
	}

	tu.AssertFileExists(t, path)
	if !strings.Contains(f.output.String(), "setup complete") {
		t.Errorf("unexpected output: %s", f.output.String())
	}
	if _, err := shared.LoadConfig(path); err != nil {
		t.Errorf("created config does not load: %v", err)
	}
}

func TestAPIQuery(t *testing.T) {
	t.Run("prints the raw response", func(t *testing.T) {
		var body map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":{"Media":{"id":1}}}`))
		}))
		defer srv.Close()

		config := shared.DefaultConfig()
		config.Credentials.AniList.Endpoint = srv.URL
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:  config,
			Limiter: &tu.CountingLimiter{},
			Logger:  shared.DiscardLogger(),
			Output:  output,
		})

		err := runner.App().Run(context.Background(), []string{"alx", "api", "query", "--vars", `{"id":1}`, "--pretty=false", "query { Media(id: $id) { id } }"})
		if err != nil {
			t.Fatalf("api query error = %v", err)
		}

		if got := strings.TrimSpace(output.String()); got != `{"data":{"Media":{"id":1}}}` {
			t.Errorf("unexpected output: %s", got)
		}
		if vars, ok := body["variables"].(map[string]any); !ok || vars["id"] != float64(1) {
			t.Errorf("expected variables to be sent, got %+v", body)
		}
	})

	t.Run("rejects non-object vars", func(t *testing.T) {
		f := newFixture(t)

		err := f.run(t, "api", "query", "--vars", "[1,2]", "{ Viewer { id } }")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("needs the AniList client", func(t *testing.T) {
		f := newFixture(t)

		err := f.run(t, "api", "query", "{ Viewer { id } }")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSetupRollback(t *testing.T) {
	f := newFixture(t)

	if err := f.run(t, "setup", "--rollback"); err != nil {
		t.Fatalf("setup --rollback error = %v", err)
	}
	if !strings.Contains(f.output.String(), "Rolled back to schema version 0") {
		t.Errorf("unexpected output: %s", f.output.String())
	}
}
