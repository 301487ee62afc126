package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func newRun(dir models.Direction) *models.RunRecord {
	return models.NewRunRecord(0, 42, dir, "always", false)
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("NextSequence() = %d, want %d", got, want)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun(models.AnimeToManga)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewRunRecord(0, 42, models.MangaToAnime, "on_match", true)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if got.Direction() != "manga-to-anime" {
			t.Errorf("expected direction manga-to-anime, got %s", got.Direction())
		}
		if got.ViewerID() != 42 || got.DeletePolicy() != "on_match" || !got.DryRun() {
			t.Errorf("unexpected run %+v", got)
		}
		if got.Status() != models.RunStatusRunning {
			t.Errorf("expected status running, got %s", got.Status())
		}
		if got.CompletedAt() != nil {
			t.Error("running run should not have a completion time")
		}
	})

	t.Run("GetBySequence", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		first, second := newRun(models.AnimeToManga), newRun(models.MangaToAnime)
		for _, r := range []*models.RunRecord{first, second} {
			if err := repo.Create(r); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		got, err := repo.GetBySequence(2)
		if err != nil {
			t.Fatalf("failed to get run by sequence: %v", err)
		}
		if got.ID() != second.ID() {
			t.Errorf("expected run %s, got %s", second.ID(), got.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun(models.AnimeToManga)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.Finish([]models.Outcome{
			{Kind: models.OutcomeMoved, SourceDeleted: true},
			{Kind: models.OutcomeSkippedNoMatch, SourceDeleted: true},
			{Kind: models.OutcomeFailed},
		}, errors.New("interrupted"))

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunStatusAborted || got.ErrorMessage() != "interrupted" {
			t.Errorf("expected aborted run with message, got %s %q", got.Status(), got.ErrorMessage())
		}
		if got.Total() != 3 || got.Moved() != 1 || got.Skipped() != 1 || got.Failed() != 1 || got.Lost() != 1 {
			t.Errorf("unexpected counts total=%d moved=%d skipped=%d failed=%d lost=%d",
				got.Total(), got.Moved(), got.Skipped(), got.Failed(), got.Lost())
		}
		if got.CompletedAt() == nil {
			t.Error("expected completion time")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun(models.AnimeToManga)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		if _, err := repo.Get(run.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		runs := []*models.RunRecord{
			newRun(models.AnimeToManga),
			newRun(models.MangaToAnime),
			newRun(models.AnimeToManga),
		}
		for _, r := range runs {
			if err := repo.Create(r); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}
		runs[2].Finish(nil, nil)
		if err := repo.Update(runs[2]); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []int
		}{
			{"all newest first", map[string]any{}, []int{3, 2, 1}},
			{"by direction", map[string]any{"direction": "anime-to-manga"}, []int{3, 1}},
			{"by status", map[string]any{"status": models.RunStatusCompleted}, []int{3}},
			{"by viewer", map[string]any{"viewer_id": 7}, nil},
			{"limit", map[string]any{"limit": 2}, []int{3, 2}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list runs: %v", err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("expected %d runs, got %d", len(tt.want), len(got))
				}
				for i, seq := range tt.want {
					if got[i].Sequence() != seq {
						t.Errorf("run %d: expected sequence %d, got %d", i, seq, got[i].Sequence())
					}
				}
			})
		}
	})
}

func TestOutcomeRepository(t *testing.T) {
	t.Run("CreateAll and ListByRun", func(t *testing.T) {
		db := setupTestDB(t)
		runs := NewRunRepository(db)
		repo := NewOutcomeRepository(db)

		run := newRun(models.AnimeToManga)
		if err := runs.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		outcomes := []models.Outcome{
			{Kind: models.OutcomeMoved, EntryID: 1, MediaID: 100, DestinationID: 900, Title: "進撃の巨人", Score: 100, SourceDeleted: true},
			{Kind: models.OutcomeSkippedNoTitle, EntryID: 2, MediaID: 200},
			{Kind: models.OutcomeFailed, EntryID: 3, MediaID: 300, Title: "x", Reason: "failed to modify remote list: boom"},
		}
		if err := repo.CreateAll(run.ID(), outcomes[:2]); err != nil {
			t.Fatalf("failed to create outcomes: %v", err)
		}
		if err := repo.CreateAll(run.ID(), outcomes[2:]); err != nil {
			t.Fatalf("failed to append outcomes: %v", err)
		}

		got, err := repo.ListByRun(run.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}
		if len(got) != len(outcomes) {
			t.Fatalf("expected %d outcomes, got %d", len(outcomes), len(got))
		}
		for i := range outcomes {
			if got[i] != outcomes[i] {
				t.Errorf("outcome %d = %+v, want %+v", i, got[i], outcomes[i])
			}
		}
	})

	t.Run("run-level outcome", func(t *testing.T) {
		db := setupTestDB(t)
		runs := NewRunRepository(db)
		repo := NewOutcomeRepository(db)

		run := newRun(models.MangaToAnime)
		if err := runs.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if err := repo.CreateAll(run.ID(), []models.Outcome{{Kind: models.OutcomeNoEligibleEntries}}); err != nil {
			t.Fatalf("failed to create outcome: %v", err)
		}

		got, err := repo.ListByRun(run.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}
		if len(got) != 1 || got[0].Kind != models.OutcomeNoEligibleEntries {
			t.Errorf("unexpected outcomes %+v", got)
		}
	})

	t.Run("unknown run lists nothing", func(t *testing.T) {
		repo := NewOutcomeRepository(setupTestDB(t))

		got, err := repo.ListByRun("missing")
		if err != nil {
			t.Fatalf("ListByRun() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no outcomes, got %d", len(got))
		}
	})
}
