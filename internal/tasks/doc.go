// Package tasks moves planning entries between a user's AniList anime and manga lists with real-time progress reporting.
//
// # Pipeline
//
// [ListEngine.Begin] implements [MigrationEngine] in four stages:
//
//  1. Authenticate the token and learn the viewer's user ID
//  2. [Walker.FetchAll] : page through the whole source list (25 per page, from page 0)
//  3. [FilterEligible] : keep PLANNING entries of the source type, over the complete list
//  4. [Executor.Run] : for each entry in order, resolve, delete the source, create the destination
//
// Authentication and enumeration failures abort the run before anything is changed.
// Per-entry failures become [models.OutcomeFailed] outcomes and never stop the run.
//
// # Resolution
//
// [Resolver.Resolve] searches the destination type by popularity (20 candidates) and accepts
// the first candidate whose native title scores at least 85 with [matching.Ratio].
//
// # Deletion
//
// With [DeleteAlways] the source entry is deleted before the destination exists, and also
// when nothing matched. Such entries show up as [models.Outcome.Lost]. [DeleteOnMatch]
// keeps unmatched entries in place.
//
// # Pacing
//
// Every remote call, authentication included, first waits on the shared [Limiter].
//
// # Progress Reporting
//
// Status updates are sent without blocking and may be dropped when the channel is full.
// Updates that carry an [models.Outcome] block until received or the context ends.
package tasks
