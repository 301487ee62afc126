// Package services implements the [Catalog] interface against the AniList GraphQL API.
//
// # Catalog Interface
//
// The migration engine only sees [Catalog]: authenticate, page through a list,
// search, delete an entry and save an entry. Tests substitute an in-memory fake.
//
// # AniList Implementation
//
// [AniListService] sends every request through [APIService], which posts the GraphQL
// document and returns the raw response. After [AniListService.Authenticate] the
// transport is an [oauth2.NewClient] wrapping a static bearer token.
//
// Every response's X-RateLimit-Limit header is forwarded to the [RateLimitHook], which
// the CLI points at the pacer.
//
// # Error Handling
//
// Failed responses become [*APIError] values that unwrap to sentinels from the shared package:
//   - [shared.ErrAuthentication] : 401, or a GraphQL "Invalid token" error
//   - [shared.ErrRateLimited] : 429, with RetryAfter parsed from Retry-After
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrAPIRequest] : anything else
//
// List reads and mutations before Authenticate return [shared.ErrNotAuthenticated].
//
// # Paging
//
// AniList pages are numbered from 1. [models.Page.Index] is zero-based and is sent as Index+1.
package services
