package services

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/alx/internal/shared"
)

// APIError is a failed AniList request: a non-2xx status, GraphQL errors in the body, or both.
//
// It unwraps to one of [shared.ErrAuthentication], [shared.ErrRateLimited],
// [shared.ErrServiceUnavailable] or [shared.ErrAPIRequest].
type APIError struct {
	Operation  string
	StatusCode int
	Messages   []string
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%v: %s: status %d: %s (retry after %s)", e.Err, e.Operation, e.StatusCode, msg, e.RetryAfter)
	}
	return fmt.Sprintf("%v: %s: status %d: %s", e.Err, e.Operation, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// opViewer names the token check. Every 400 or 401 it gets means the token was refused.
const opViewer = "viewer"

type gqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// newAPIError classifies a failed response.
func newAPIError(op string, status int, headers http.Header, errs []gqlError) *APIError {
	apiErr := &APIError{Operation: op, StatusCode: status}
	for _, e := range errs {
		apiErr.Messages = append(apiErr.Messages, e.Message)
		if (apiErr.StatusCode == 0 || apiErr.StatusCode == http.StatusOK) && e.Status != 0 {
			apiErr.StatusCode = e.Status
		}
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized, mentionsInvalidToken(apiErr.Messages),
		op == opViewer && apiErr.StatusCode == http.StatusBadRequest:
		apiErr.Err = shared.ErrAuthentication
	case apiErr.StatusCode == http.StatusTooManyRequests:
		apiErr.Err = shared.ErrRateLimited
		apiErr.RetryAfter = parseRetryAfter(headers.Get("Retry-After"))
	case apiErr.StatusCode >= 500:
		apiErr.Err = shared.ErrServiceUnavailable
	default:
		apiErr.Err = shared.ErrAPIRequest
	}
	return apiErr
}

func mentionsInvalidToken(messages []string) bool {
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m), "invalid token") {
			return true
		}
	}
	return false
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
