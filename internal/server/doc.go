// Package server provides the small HTTP surface alx needs: routing, middleware,
// the AniList OAuth callback and a status endpoint for long migrations.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first). [Logging] and [Recover] are provided.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback. It checks the state parameter,
// turns AniList's error and error_description parameters into a [DeniedError], exchanges the
// code and hands the token to a [Verifier] (the viewer query) before sending the result through
// a channel. Only the first callback is processed; the browser gets a page describing the outcome.
//
// `alx auth login --code` starts a listener on the configured server address, opens the browser,
// and shuts the listener down once the token arrives.
//
// # Status Handler
//
// [StatusHandler] serves /health (the current run phase and percent as JSON) and /metrics
// (Prometheus exposition) while `alx migrate --metrics` is running.
//
// # Lifecycle
//
// [Start] binds the listener before returning; [Serve] blocks until its context is cancelled and then shuts down gracefully.
package server
