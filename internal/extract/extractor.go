package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dtremaine/clauseflow/internal/contract"
	"github.com/dtremaine/clauseflow/internal/llm"
	"github.com/dtremaine/clauseflow/internal/policy"
)

// #region errors
// ErrExtractionFailed marks an extraction that produced no usable clauses:
// empty input, an exhausted model retry budget, or unparseable model output.
var ErrExtractionFailed = errors.New("clause extraction failed")

// #endregion errors

// #region extractor
// Extractor segments raw contract text into category-labelled clause spans
// using the language-model collaborator. Side-effect-free.
type Extractor struct {
	model    llm.LanguageModel
	playbook policy.Playbook
}

// NewExtractor creates an extractor over the given model and category set.
func NewExtractor(model llm.LanguageModel, pb policy.Playbook) *Extractor {
	return &Extractor{model: model, playbook: pb}
}

// #endregion extractor

// #region span-candidate
// spanCandidate is the per-clause shape the model is asked to emit.
type spanCandidate struct {
	Category   string  `json:"category"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float32 `json:"confidence"`
}

// #endregion span-candidate

// #region extract
// Extract returns the document's clauses, ordered by source position with
// non-overlapping spans. Overlaps in the model output are resolved by
// keeping the higher-confidence span and dropping the other; ties keep the
// earlier span. Deterministic given identical model output.
func (e *Extractor) Extract(ctx context.Context, documentText string) ([]contract.Clause, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, fmt.Errorf("%w: document text is empty", ErrExtractionFailed)
	}

	raw, err := e.model.Complete(ctx, e.buildPrompt(documentText))
	if err != nil {
		return nil, fmt.Errorf("%w: segmentation call: %v", ErrExtractionFailed, err)
	}

	var candidates []spanCandidate
	if err := json.Unmarshal([]byte(stripFences(raw)), &candidates); err != nil {
		return nil, fmt.Errorf("%w: unparseable segmentation output: %v", ErrExtractionFailed, err)
	}

	valid := e.validate(candidates, len(documentText))
	kept := resolveOverlaps(valid)

	clauses := make([]contract.Clause, 0, len(kept))
	for _, c := range kept {
		clauses = append(clauses, contract.Clause{
			ID:         uuid.New().String(),
			Category:   c.Category,
			SourceText: documentText[c.Start:c.End],
			Span:       contract.Span{Start: c.Start, End: c.End},
			Confidence: c.Confidence,
		})
	}
	return clauses, nil
}

// #endregion extract

// #region validate
// validate drops candidates with unknown categories or spans that cannot be
// clamped into the document.
func (e *Extractor) validate(candidates []spanCandidate, docLen int) []spanCandidate {
	var valid []spanCandidate
	for _, c := range candidates {
		if !e.playbook.Known(c.Category) {
			slog.Debug("dropping span with unknown category", "category", c.Category)
			continue
		}
		if c.Start < 0 {
			c.Start = 0
		}
		if c.End > docLen {
			c.End = docLen
		}
		if c.Start >= c.End {
			continue
		}
		valid = append(valid, c)
	}
	return valid
}

// #endregion validate

// #region resolve-overlaps
// resolveOverlaps greedily accepts spans in descending confidence order,
// rejecting any span that overlaps an already-accepted one, then restores
// source order. Ties break toward the earlier, then shorter, span.
func resolveOverlaps(candidates []spanCandidate) []spanCandidate {
	byConfidence := make([]spanCandidate, len(candidates))
	copy(byConfidence, candidates)
	sort.SliceStable(byConfidence, func(a, b int) bool {
		if byConfidence[a].Confidence != byConfidence[b].Confidence {
			return byConfidence[a].Confidence > byConfidence[b].Confidence
		}
		if byConfidence[a].Start != byConfidence[b].Start {
			return byConfidence[a].Start < byConfidence[b].Start
		}
		return byConfidence[a].End < byConfidence[b].End
	})

	var kept []spanCandidate
	for _, c := range byConfidence {
		overlaps := false
		for _, k := range kept {
			if c.Start < k.End && k.Start < c.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(a, b int) bool { return kept[a].Start < kept[b].Start })
	return kept
}

// #endregion resolve-overlaps

// #region prompt
func (e *Extractor) buildPrompt(documentText string) string {
	names := make([]string, 0, len(e.playbook.Categories))
	for _, c := range e.playbook.Categories {
		names = append(names, fmt.Sprintf("%q", c.Name))
	}

	return fmt.Sprintf(`You are an expert AI paralegal. Segment the contract below into clauses.

Instructions:
1. Identify every clause whose category is one of [%s].
2. For each clause report its category, its character offsets into the
   contract text (start inclusive, end exclusive), and your confidence in
   the span as a float between 0 and 1.
3. Respond ONLY with a valid JSON array. No introductory text, no markdown
   fences. Each element must have the shape:
   {"category": "...", "start": 0, "end": 0, "confidence": 0.0}

---
CONTRACT TEXT:
---
%s`, strings.Join(names, ", "), documentText)
}

// stripFences removes markdown code fences some models wrap around JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// #endregion prompt
