package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/src/core/provider"
)

type flakyProvider struct {
	failures   int
	transient  bool
	embedCalls int
	compCalls  int
}

func (p *flakyProvider) fail() error {
	return &provider.ProviderError{Provider: "fake", Op: "call", Transient: p.transient, Err: errors.New("boom")}
}

func (p *flakyProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.embedCalls++
	if p.embedCalls <= p.failures {
		return nil, p.fail()
	}
	return []float32{1, 2, 3}, nil
}

func (p *flakyProvider) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	p.compCalls++
	if p.compCalls <= p.failures {
		return "", p.fail()
	}
	return "ok", nil
}

func (p *flakyProvider) Ping(ctx context.Context) error { return nil }

func TestRetryingRecoversFromTransientErrors(t *testing.T) {
	fake := &flakyProvider{failures: 2, transient: true}
	r := provider.NewRetrying(fake, 3, time.Millisecond)

	vec, err := r.Embed(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 3, fake.embedCalls)

	text, err := r.Complete(context.Background(), "prompt", 512)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, fake.compCalls)
}

func TestRetryingStopsOnPermanentError(t *testing.T) {
	fake := &flakyProvider{failures: 5, transient: false}
	r := provider.NewRetrying(fake, 3, time.Millisecond)

	_, err := r.Complete(context.Background(), "prompt", 512)
	require.Error(t, err)
	assert.Equal(t, 1, fake.compCalls)

	var pe *provider.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.False(t, pe.Transient)
}

func TestRetryingGivesUpAfterMaxRetries(t *testing.T) {
	fake := &flakyProvider{failures: 10, transient: true}
	r := provider.NewRetrying(fake, 2, time.Millisecond)

	_, err := r.Embed(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, provider.IsTransient(err))
	assert.Equal(t, 3, fake.embedCalls)
}

func TestTransientStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{code: 200, want: false},
		{code: 400, want: false},
		{code: 404, want: false},
		{code: 429, want: true},
		{code: 500, want: true},
		{code: 503, want: true},
	}

	for _, tt := range tests {
		if got := provider.TransientStatus(tt.code); got != tt.want {
			t.Errorf("TransientStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
