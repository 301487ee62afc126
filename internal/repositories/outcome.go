package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
)

// OutcomeRepository stores the per-entry outcomes of a run in processing order.
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository creates a new OutcomeRepository with the given database connection
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// CreateAll appends outcomes to runID in a single transaction, continuing after
// any outcomes already stored for the run.
func (r *OutcomeRepository) CreateAll(runID string, outcomes []models.Outcome) error {
	if runID == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrValidation)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position) + 1, 0) FROM outcomes WHERE run_id = ?`, runID).Scan(&next); err != nil {
		return fmt.Errorf("failed to read outcome position: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO outcomes (
			id, run_id, position, kind, entry_id, media_id, destination_id,
			title, score, source_deleted, reason, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, o := range outcomes {
		_, err := stmt.Exec(
			shared.GenerateID(),
			runID,
			next+i,
			o.Kind.String(),
			o.EntryID,
			o.MediaID,
			o.DestinationID,
			nullString(o.Title),
			o.Score,
			o.SourceDeleted,
			nullString(o.Reason),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outcome %d: %w", next+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outcomes: %w", err)
	}

	return nil
}

// ListByRun returns the outcomes of runID in processing order.
func (r *OutcomeRepository) ListByRun(runID string) ([]models.Outcome, error) {
	query := `
		SELECT kind, entry_id, media_id, destination_id, title, score, source_deleted, reason
		FROM outcomes
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.Outcome
	for rows.Next() {
		var (
			kind          string
			entryID       sql.NullInt64
			mediaID       sql.NullInt64
			destinationID sql.NullInt64
			title         sql.NullString
			score         sql.NullInt64
			sourceDeleted bool
			reason        sql.NullString
		)

		if err := rows.Scan(&kind, &entryID, &mediaID, &destinationID, &title, &score, &sourceDeleted, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		k, err := models.ParseOutcomeKind(kind)
		if err != nil {
			return nil, err
		}

		outcomes = append(outcomes, models.Outcome{
			Kind:          k,
			EntryID:       int(entryID.Int64),
			MediaID:       int(mediaID.Int64),
			DestinationID: int(destinationID.Int64),
			Title:         title.String,
			Score:         int(score.Int64),
			SourceDeleted: sourceDeleted,
			Reason:        reason.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return outcomes, nil
}
