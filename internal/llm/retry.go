package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// #region constants

const maxRetries = 2 // max 2 retries = 3 total attempts

// #endregion

// #region config

// RetryConfig bounds the retry loop around collaborator calls.
type RetryConfig struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // doubled on every retry
}

// DefaultRetryConfig returns the standard bounded retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  500 * time.Millisecond,
	}
}

// #endregion config

// #region retrier

// Retrier wraps a LanguageModel with bounded retry and exponential backoff.
// Transient failures (timeouts, unavailability) are retried; permanent
// failures propagate on the first attempt. It satisfies LanguageModel so
// callers stay agnostic to the policy.
type Retrier struct {
	model LanguageModel
	cfg   RetryConfig
	sleep func(context.Context, time.Duration) error
}

// NewRetrier wraps model with the given retry policy.
func NewRetrier(model LanguageModel, cfg RetryConfig) *Retrier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Retrier{model: model, cfg: cfg, sleep: sleepCtx}
}

// Complete calls the wrapped model, retrying transient failures.
func (r *Retrier) Complete(ctx context.Context, prompt string) (string, error) {
	var out string
	err := r.do(ctx, "complete", func(ctx context.Context) error {
		var err error
		out, err = r.model.Complete(ctx, prompt)
		return err
	})
	return out, err
}

// Embed calls the wrapped model, retrying transient failures.
func (r *Retrier) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.do(ctx, "embed", func(ctx context.Context) error {
		var err error
		out, err = r.model.Embed(ctx, text)
		return err
	})
	return out, err
}

// #endregion retrier

// #region do

func (r *Retrier) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.BaseDelay << (attempt - 1)
			slog.Warn("retrying model call",
				"op", op, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s: backoff interrupted: %w", op, err)
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		// The caller's deadline is gone; another attempt cannot succeed.
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, lastErr)
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// #endregion do
