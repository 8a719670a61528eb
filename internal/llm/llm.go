package llm

import (
	"context"
	"errors"
)

// #region errors
var (
	// ErrModelUnavailable marks transport-level failures reaching the model.
	ErrModelUnavailable = errors.New("language model unavailable")
	// ErrModelTimeout marks a caller-supplied deadline expiring mid-call.
	ErrModelTimeout = errors.New("language model timeout")
	// ErrSchemaViolation marks a response that cannot satisfy the requested
	// structure. Permanent: retrying the same request will not help.
	ErrSchemaViolation = errors.New("language model schema violation")
)

// IsTransient reports whether the error is worth retrying.
// Timeouts and availability failures are transient; schema violations
// and everything else propagate immediately.
func IsTransient(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelTimeout)
}

// #endregion errors

// #region interfaces
// LanguageModel is the narrow capability interface the pipeline consumes.
// Any backing model can be substituted; response structure is validated
// at the call sites, never trusted.
type LanguageModel interface {
	// Complete sends a prompt and returns the raw model text.
	Complete(ctx context.Context, prompt string) (string, error)
	// Embed returns an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embedder is the embedding-only subset of LanguageModel.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// #endregion interfaces
