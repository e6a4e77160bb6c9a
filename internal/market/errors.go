package market

import (
	"errors"
	"fmt"
)

// ErrNoData reports that normalization produced zero points. It is distinct
// from transport failures so the caller can respond with ticker suggestions.
var ErrNoData = errors.New("no price data")

// ValidationError is a missing or malformed request parameter, caught before
// any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError means the provider had no data for the requested instrument.
// Suggestions carries alternative tickers when any are known.
type NotFoundError struct {
	Symbol      string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no data found for %q", e.Symbol)
}

// RateLimitError means the upstream provider throttled us.
type RateLimitError struct {
	Provider string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded, retry later", e.Provider)
}

// TransportError wraps a network or timeout failure reaching a provider.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reaching %s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError means the provider answered with malformed or unexpected data.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned unexpected data: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
