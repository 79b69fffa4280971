package data

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotConfigured = errors.New("provider not configured")
	ErrNotFound      = errors.New("no matching entity")
	ErrRateLimited   = errors.New("rate limited or unauthorized")
	ErrUnavailable   = errors.New("provider unavailable")
	ErrMalformed     = errors.New("malformed provider payload")
)

// ProviderError is the single failure type every provider client returns.
type ProviderError struct {
	Source string
	Op     string
	Kind   error
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Source, e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(source, op string, kind, err error) *ProviderError {
	return &ProviderError{Source: source, Op: op, Kind: kind, Err: err}
}

// StatusError maps a non-2xx HTTP status to a ProviderError.
func StatusError(source, op string, status int) *ProviderError {
	kind := ErrUnavailable
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		kind = ErrRateLimited
	case http.StatusNotFound:
		kind = ErrNotFound
	}
	return NewProviderError(source, op, kind, fmt.Errorf("unexpected status code: %d", status))
}

// KindOf returns a short label of err's kind for logs and metrics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unavailable"
	}
}
