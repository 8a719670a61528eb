package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dtremaine/clauseflow/internal/contract"
	"github.com/dtremaine/clauseflow/internal/llm"
)

// #region errors
// ErrIndexUnavailable marks a failed round trip to the similarity-search
// collaborator. It is surfaced, never silently retried: wrong or partial
// guidance would corrupt downstream risk verdicts.
var ErrIndexUnavailable = errors.New("policy index unavailable")

// #endregion errors

// #region vector-index
// Match is one similarity-search hit.
type Match struct {
	ID    string
	Text  string
	Score float32
}

// VectorIndex is the similarity-search collaborator interface.
type VectorIndex interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)
}

// #endregion vector-index

// #region index
// Index retrieves playbook guidance for a clause category. Side-effect-free.
type Index struct {
	vectors  VectorIndex
	embedder llm.Embedder
}

// NewIndex creates a policy index over the given collaborators.
func NewIndex(vectors VectorIndex, embedder llm.Embedder) *Index {
	return &Index{vectors: vectors, embedder: embedder}
}

// #endregion index

// #region search
// Search returns up to k guidance passages for the category, ordered by
// descending similarity. Scores are clamped to [0, 1].
func (i *Index) Search(ctx context.Context, category string, k int) ([]contract.PolicyGuidance, error) {
	if k <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf("Company policy for %s clause", category)
	embedding, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %v: %w", category, err, ErrIndexUnavailable)
	}

	matches, err := i.vectors.Query(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("query %q: %v: %w", category, err, ErrIndexUnavailable)
	}

	guidance := make([]contract.PolicyGuidance, 0, len(matches))
	for _, m := range matches {
		if m.Text == "" {
			continue
		}
		guidance = append(guidance, contract.PolicyGuidance{
			Category:        category,
			PassageText:     m.Text,
			SimilarityScore: clamp01(m.Score),
		})
	}
	sort.SliceStable(guidance, func(a, b int) bool {
		return guidance[a].SimilarityScore > guidance[b].SimilarityScore
	})
	if len(guidance) > k {
		guidance = guidance[:k]
	}
	return guidance, nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion search
