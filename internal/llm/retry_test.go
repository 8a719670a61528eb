package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedModel struct {
	errs  []error // error per attempt, nil = success
	calls int
}

func (s *scriptedModel) Complete(ctx context.Context, prompt string) (string, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	return "ok", nil
}

func (s *scriptedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	return []float32{1}, nil
}

func noSleep(r *Retrier) {
	r.sleep = func(context.Context, time.Duration) error { return nil }
}

func TestRetrierSucceedsFirstAttempt(t *testing.T) {
	m := &scriptedModel{}
	r := NewRetrier(m, DefaultRetryConfig())
	noSleep(r)

	out, err := r.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if m.calls != 1 {
		t.Fatalf("expected 1 call, got %d", m.calls)
	}
}

func TestRetrierRetriesTransient(t *testing.T) {
	m := &scriptedModel{errs: []error{ErrModelUnavailable, ErrModelTimeout, nil}}
	r := NewRetrier(m, DefaultRetryConfig())
	noSleep(r)

	out, err := r.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if m.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", m.calls)
	}
}

func TestRetrierExhaustsBudget(t *testing.T) {
	m := &scriptedModel{errs: []error{ErrModelUnavailable, ErrModelUnavailable, ErrModelUnavailable, ErrModelUnavailable}}
	r := NewRetrier(m, DefaultRetryConfig())
	noSleep(r)

	_, err := r.Complete(context.Background(), "p")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	// maxRetries=2 means 3 total attempts
	if m.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", m.calls)
	}
}

func TestRetrierPermanentFailureNotRetried(t *testing.T) {
	m := &scriptedModel{errs: []error{ErrSchemaViolation}}
	r := NewRetrier(m, DefaultRetryConfig())
	noSleep(r)

	_, err := r.Complete(context.Background(), "p")
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
	if m.calls != 1 {
		t.Fatalf("expected 1 call, got %d", m.calls)
	}
}

func TestRetrierStopsOnCancelledContext(t *testing.T) {
	m := &scriptedModel{errs: []error{ErrModelTimeout, ErrModelTimeout, ErrModelTimeout}}
	r := NewRetrier(m, DefaultRetryConfig())
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel during the first backoff
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := r.Complete(ctx, "p")
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if m.calls != 1 {
		t.Fatalf("expected 1 call, got %d", m.calls)
	}
}

func TestRetrierEmbed(t *testing.T) {
	m := &scriptedModel{errs: []error{ErrModelUnavailable, nil}}
	r := NewRetrier(m, DefaultRetryConfig())
	noSleep(r)

	vec, err := r.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 1 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if m.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", m.calls)
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(ErrModelUnavailable) || !IsTransient(ErrModelTimeout) {
		t.Fatal("availability and timeout must be transient")
	}
	if IsTransient(ErrSchemaViolation) {
		t.Fatal("schema violations must not be transient")
	}
	if IsTransient(errors.New("other")) {
		t.Fatal("unknown errors must not be transient")
	}
}
