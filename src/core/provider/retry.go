package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ragbot/src/log"
)

// Retrying decorates a Provider with exponential backoff for transient errors
type Retrying struct {
	next            Provider
	maxRetries      uint64
	initialInterval time.Duration
	maxElapsedTime  time.Duration
}

func NewRetrying(next Provider, maxRetries uint64, initialInterval time.Duration) *Retrying {
	if initialInterval <= 0 {
		initialInterval = 500 * time.Millisecond
	}
	return &Retrying{
		next:            next,
		maxRetries:      maxRetries,
		initialInterval: initialInterval,
		maxElapsedTime:  2 * time.Minute,
	}
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := r.retry(ctx, "embed", func() error {
		var err error
		vector, err = r.next.Embed(ctx, text)
		return err
	})
	return vector, err
}

func (r *Retrying) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	var text string
	err := r.retry(ctx, "complete", func() error {
		var err error
		text, err = r.next.Complete(ctx, prompt, maxOutputTokens)
		return err
	})
	return text, err
}

func (r *Retrying) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *Retrying) retry(ctx context.Context, op string, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initialInterval
	eb.MaxElapsedTime = r.maxElapsedTime

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		log.Debug("transient provider error", "op", op, "attempt", attempt, "error", err.Error())
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(eb, r.maxRetries), ctx))
}
