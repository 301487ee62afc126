// Package models defines domain entities and persistence interfaces for the alx list converter.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing AniList data
//   - [Entry] : One list entry owned by the viewer, with its [Media]
//   - [Page] : One fetched page of list entries
//   - [SearchCandidate] : A media returned by a title search
//   - [Outcome] : The per-entry result of a migration run
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [RunRecord] : A recorded migration run with its aggregate counts
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
package models
