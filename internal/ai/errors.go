package ai

import (
	"fmt"
	"net/http"
)

// CompletionError is a failed chat completion against the model provider.
// StatusCode is zero when no HTTP response was received.
type CompletionError struct {
	Provider   string
	Model      string
	StatusCode int
	Reason     string
	Err        error
}

// NewCompletionError wraps a failed completion call
func NewCompletionError(provider, model string, statusCode int, reason string, err error) *CompletionError {
	return &CompletionError{
		Provider:   provider,
		Model:      model,
		StatusCode: statusCode,
		Reason:     reason,
		Err:        err,
	}
}

func (e *CompletionError) Error() string {
	msg := fmt.Sprintf("%s completion with %s failed", e.Provider, e.Model)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether Groq refused the call for quota.
func (e *CompletionError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Retryable reports whether the same request may succeed later: rate
// limits, provider outages and transport failures.
func (e *CompletionError) Retryable() bool {
	return e.StatusCode == 0 || e.RateLimited() || e.StatusCode >= http.StatusInternalServerError
}

// MissingKeyError means the client was built without its API key.
type MissingKeyError struct {
	Env string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("model client needs an API key: %s is not set", e.Env)
}
