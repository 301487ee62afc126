package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
)

// exchangeTimeout bounds the token request made from inside the callback.
const exchangeTimeout = 30 * time.Second

var (
	ErrStateMismatch = errors.New("callback state does not match")
	ErrMissingCode   = errors.New("callback carried no authorization code")
	ErrEmptyToken    = errors.New("token endpoint returned no access token")
)

// DeniedError is the error AniList reports through the callback's error and
// error_description parameters, e.g. when the user presses Cancel.
type DeniedError struct {
	Code        string
	Description string
}

func (e *DeniedError) Error() string {
	if e.Description == "" {
		return "anilist declined authorization: " + e.Code
	}
	return fmt.Sprintf("anilist declined authorization: %s (%s)", e.Code, e.Description)
}

// Verifier confirms an exchanged token before the sign-in is reported and
// returns the viewer's display name.
type Verifier func(ctx context.Context, token *oauth2.Token) (viewer string, err error)

// OAuthResult is the outcome of one callback. Viewer is set when a [Verifier] accepted the token.
type OAuthResult struct {
	Token  *oauth2.Token
	Viewer string
	err    error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the AniList authorization code callback on /callback.
type OAuthHandler struct {
	config *oauth2.Config
	state  string
	verify Verifier

	handled atomic.Bool
	once    sync.Once
	results chan OAuthResult
}

// NewOAuthHandler creates a callback handler expecting state. verify may be nil,
// in which case any exchanged token is reported.
func NewOAuthHandler(config *oauth2.Config, state string, verify Verifier) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		verify:  verify,
		results: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP completes the sign-in. Only the first callback is processed; later
// ones get 409 without touching the result.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.handled.CompareAndSwap(false, true) {
		http.Error(w, "Callback already handled", http.StatusConflict)
		return
	}

	result, status := h.complete(r.Context(), r.URL.Query())
	h.Send(result)
	renderCallback(w, status, result)
}

func (h *OAuthHandler) complete(ctx context.Context, q url.Values) (OAuthResult, int) {
	if q.Get("state") != h.state {
		return OAuthResult{err: ErrStateMismatch}, http.StatusBadRequest
	}
	if code := q.Get("error"); code != "" {
		status := http.StatusBadRequest
		if code == "access_denied" {
			status = http.StatusForbidden
		}
		return OAuthResult{err: &DeniedError{Code: code, Description: q.Get("error_description")}}, status
	}

	code := q.Get("code")
	if code == "" {
		return OAuthResult{err: ErrMissingCode}, http.StatusBadRequest
	}

	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		return OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)}, http.StatusBadGateway
	}
	if token.AccessToken == "" {
		return OAuthResult{err: ErrEmptyToken}, http.StatusBadGateway
	}

	result := OAuthResult{Token: token}
	if h.verify != nil {
		viewer, err := h.verify(ctx, token)
		if err != nil {
			return OAuthResult{err: err}, http.StatusUnauthorized
		}
		result.Viewer = viewer
	}
	return result, http.StatusOK
}

// Send delivers result to [OAuthHandler.Result]. Only the first call has an effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>alx: {{.Heading}}</title>
    <style>
        body { font-family: Overpass, -apple-system, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0b1622; }
        .card { text-align: center; background: #151f2e; padding: 2rem; border-radius: 6px; max-width: 32rem; }
        h1 { margin: 0 0 1rem 0; color: {{if .OK}}#3db4f2{{else}}#e85d75{{end}}; }
        p { color: #9fadbd; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>{{.Heading}}</h1>
        <p>{{.Detail}}</p>
    </div>
</body>
</html>
`))

type callbackView struct {
	OK      bool
	Heading string
	Detail  string
}

func renderCallback(w http.ResponseWriter, status int, result OAuthResult) {
	view := callbackView{OK: result.err == nil}
	switch {
	case view.OK && result.Viewer != "":
		view.Heading = "✓ Signed in to AniList"
		view.Detail = fmt.Sprintf("Signed in as %s. You can close this window and return to alx.", result.Viewer)
	case view.OK:
		view.Heading = "✓ Signed in to AniList"
		view.Detail = "You can close this window and return to alx."
	default:
		view.Heading = "✗ AniList sign-in failed"
		view.Detail = result.err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, view)
}
