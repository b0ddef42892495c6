package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryingProvider retries failed calls of the wrapped provider with
// exponential backoff. Context cancellation and deadline expiry are final.
type RetryingProvider struct {
	next        LLMProvider
	maxAttempts uint
	initial     time.Duration
}

var _ LLMProvider = &RetryingProvider{}

// WithRetry wraps next. maxAttempts <= 1 returns next unchanged.
func WithRetry(next LLMProvider, maxAttempts int, initialInterval time.Duration) LLMProvider {
	if maxAttempts <= 1 {
		return next
	}
	if initialInterval <= 0 {
		initialInterval = 500 * time.Millisecond
	}
	return &RetryingProvider{
		next:        next,
		maxAttempts: uint(maxAttempts),
		initial:     initialInterval,
	}
}

func (r *RetryingProvider) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	return Retry(ctx, r.maxAttempts, r.initial, func() (string, error) {
		return r.next.Chat(ctx, history, opts...)
	})
}

func (r *RetryingProvider) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return Retry(ctx, r.maxAttempts, r.initial, func() (string, error) {
		return r.next.Generate(ctx, prompt, opts...)
	})
}

// Retry runs op up to maxAttempts times. It is shared with the embedding providers.
func Retry[T any](ctx context.Context, maxAttempts uint, initial time.Duration, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial

	return backoff.Retry(ctx, func() (T, error) {
		res, err := op()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxAttempts))
}
