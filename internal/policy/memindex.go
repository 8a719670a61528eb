package policy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dtremaine/clauseflow/internal/llm"
)

// #region mem-index
// MemoryIndex is an in-process VectorIndex over embedded playbook passages.
// It stands in for a hosted vector store in single-node deployments and in
// tests; the engine only ever sees the VectorIndex interface.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []memEntry
}

type memEntry struct {
	id        string
	text      string
	embedding []float32
}

// NewMemoryIndex returns an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add stores one passage with its embedding.
func (m *MemoryIndex) Add(id, text string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, memEntry{id: id, text: text, embedding: embedding})
}

// Len returns the number of indexed passages.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// #endregion mem-index

// #region query
// Query returns the topK entries by cosine similarity to embedding,
// ordered descending.
func (m *MemoryIndex) Query(_ context.Context, embedding []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.entries))
	for _, e := range m.entries {
		matches = append(matches, Match{
			ID:    e.id,
			Text:  e.text,
			Score: cosineSimilarity(embedding, e.embedding),
		})
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// #endregion query

// #region build
// BuildMemoryIndex embeds every playbook passage and loads it into a fresh
// MemoryIndex. Ingestion-time collaborator responsibility, run once at
// startup, not per document.
func BuildMemoryIndex(ctx context.Context, embedder llm.Embedder, pb Playbook) (*MemoryIndex, error) {
	idx := NewMemoryIndex()
	for _, cat := range pb.Categories {
		for i, passage := range cat.Passages {
			emb, err := embedder.Embed(ctx, passage)
			if err != nil {
				return nil, fmt.Errorf("embed playbook passage %s[%d]: %w", cat.Name, i, err)
			}
			idx.Add(fmt.Sprintf("%s-%d", cat.Name, i), passage, emb)
		}
	}
	return idx, nil
}

// #endregion build

// #region cosine
// cosineSimilarity computes the cosine of the angle between a and b,
// rescaled from [-1, 1] to [0, 1]. Zero-length or mismatched vectors
// score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return float32((cos + 1) / 2)
}

// #endregion cosine
