// Package repositories implements SQLite persistence for migration history.
//
// Key Implementations:
//   - [RunRepository] : One row per migration run with its aggregate counts
//   - [OutcomeRepository] : The ordered per-entry outcomes of a run
//
// Runs are soft-deleted via deleted_at and excluded from queries by default.
// Outcomes belong to their run and are removed with it by a cascading foreign key.
//
// Sequence numbers provide stable, human-readable run handles (e.g. run #15) independent of UUIDs.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
