package provider

import (
	"context"
	"errors"
	"fmt"
)

// Embedder turns text into a fixed-dimension vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer generates a single completion for a prompt
type Completer interface {
	Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// Provider is a hosted model service offering both embedding and generation
type Provider interface {
	Embedder
	Completer
	// Ping checks that the hosted service is reachable
	Ping(ctx context.Context) error
}

// ProviderError reports a failed call to a hosted model. Transient errors
// (throttling, 5xx, transport) are retried by Retrying.
type ProviderError struct {
	Provider  string
	Op        string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a ProviderError marked transient
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// TransientStatus reports whether an HTTP status code from a hosted model
// should be retried
func TransientStatus(code int) bool {
	return code == 429 || code >= 500
}
