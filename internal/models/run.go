package models

import (
	"errors"
	"time"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// RunRecord is a persisted migration run.
//
// It is written by the caller of the migration engine, never by the engine itself.
type RunRecord struct {
	id           string
	sequence     int
	viewerID     int
	direction    string
	deletePolicy string
	dryRun       bool
	status       string
	total        int
	moved        int
	skipped      int
	failed       int
	lost         int
	errorMessage string
	startedAt    time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

var _ Model = (*RunRecord)(nil)

// NewRunRecord creates a running [RunRecord] started now.
func NewRunRecord(sequence, viewerID int, direction Direction, deletePolicy string, dryRun bool) *RunRecord {
	now := time.Now()
	return &RunRecord{
		sequence:     sequence,
		viewerID:     viewerID,
		direction:    direction.String(),
		deletePolicy: deletePolicy,
		dryRun:       dryRun,
		status:       RunStatusRunning,
		startedAt:    now,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (r *RunRecord) ID() string              { return r.id }
func (r *RunRecord) Sequence() int           { return r.sequence }
func (r *RunRecord) ViewerID() int           { return r.viewerID }
func (r *RunRecord) Direction() string       { return r.direction }
func (r *RunRecord) DeletePolicy() string    { return r.deletePolicy }
func (r *RunRecord) DryRun() bool            { return r.dryRun }
func (r *RunRecord) Status() string          { return r.status }
func (r *RunRecord) Total() int              { return r.total }
func (r *RunRecord) Moved() int              { return r.moved }
func (r *RunRecord) Skipped() int            { return r.skipped }
func (r *RunRecord) Failed() int             { return r.failed }
func (r *RunRecord) Lost() int               { return r.lost }
func (r *RunRecord) ErrorMessage() string    { return r.errorMessage }
func (r *RunRecord) StartedAt() time.Time    { return r.startedAt }
func (r *RunRecord) CompletedAt() *time.Time { return r.completedAt }
func (r *RunRecord) CreatedAt() time.Time    { return r.createdAt }
func (r *RunRecord) UpdatedAt() time.Time    { return r.updatedAt }
func (r *RunRecord) DeletedAt() *time.Time   { return r.deletedAt }

func (r *RunRecord) SetID(id string)               { r.id = id }
func (r *RunRecord) SetSequence(seq int)           { r.sequence = seq }
func (r *RunRecord) SetStatus(status string)       { r.status = status }
func (r *RunRecord) SetErrorMessage(msg string)    { r.errorMessage = msg }
func (r *RunRecord) SetStartedAt(t time.Time)      { r.startedAt = t }
func (r *RunRecord) SetCompletedAt(t *time.Time)   { r.completedAt = t }
func (r *RunRecord) SetCreatedAt(t time.Time)      { r.createdAt = t }
func (r *RunRecord) SetUpdatedAt(t time.Time)      { r.updatedAt = t }
func (r *RunRecord) SetDeletedAt(t *time.Time)     { r.deletedAt = t }
func (r *RunRecord) SetDirection(direction string) { r.direction = direction }

// SetCounts overwrites the aggregate counters.
func (r *RunRecord) SetCounts(total, moved, skipped, failed, lost int) {
	r.total, r.moved, r.skipped, r.failed, r.lost = total, moved, skipped, failed, lost
}

// Finish marks the run completed, or aborted when err is non-nil, and tallies outcomes.
func (r *RunRecord) Finish(outcomes []Outcome, err error) {
	c := Count(outcomes)
	total := 0
	for _, o := range outcomes {
		if !o.Kind.IsRunLevel() {
			total++
		}
	}
	moved := c.Moved
	if r.dryRun {
		moved = c.WouldMove
	}
	r.SetCounts(total, moved, c.Skipped(), c.Failed, c.Lost)

	now := time.Now()
	r.completedAt = &now
	r.updatedAt = now
	if err != nil {
		r.status = RunStatusAborted
		r.errorMessage = err.Error()
	} else {
		r.status = RunStatusCompleted
	}
}

// Validate checks required fields.
func (r *RunRecord) Validate() error {
	if r.id == "" {
		return errors.New("run id is required")
	}
	if _, err := ParseDirection(r.direction); err != nil {
		return err
	}
	switch r.status {
	case RunStatusRunning, RunStatusCompleted, RunStatusAborted:
	default:
		return errors.New("invalid run status: " + r.status)
	}
	return nil
}
