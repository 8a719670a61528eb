package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/dtremaine/clauseflow/internal/policy"
)

type fakeModel struct {
	response string
	err      error
}

func (f *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func (f *fakeModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

const doc = "This agreement is confidential. Liability is capped at fees paid. Governed by Delaware law."

func TestExtractHappyPath(t *testing.T) {
	model := &fakeModel{response: `[
		{"category": "Confidentiality", "start": 0, "end": 31, "confidence": 0.9},
		{"category": "Limitation of Liability", "start": 32, "end": 66, "confidence": 0.8},
		{"category": "Governing Law", "start": 67, "end": 92, "confidence": 0.85}
	]`}
	e := NewExtractor(model, policy.DefaultPlaybook())

	clauses, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(clauses) != 3 {
		t.Fatalf("expected 3 clauses, got %d", len(clauses))
	}
	if clauses[0].Category != "Confidentiality" {
		t.Fatalf("expected Confidentiality first, got %s", clauses[0].Category)
	}
	if clauses[0].SourceText != doc[0:31] {
		t.Fatalf("source text mismatch: %q", clauses[0].SourceText)
	}
	if clauses[0].ID == "" {
		t.Fatal("expected generated clause ID")
	}
	for i := 1; i < len(clauses); i++ {
		if clauses[i].Span.Start < clauses[i-1].Span.End {
			t.Fatalf("clauses out of order or overlapping: %+v", clauses)
		}
	}
}

func TestExtractStripsFences(t *testing.T) {
	model := &fakeModel{response: "```json\n[{\"category\": \"Confidentiality\", \"start\": 0, \"end\": 31, \"confidence\": 0.9}]\n```"}
	e := NewExtractor(model, policy.DefaultPlaybook())

	clauses, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(clauses))
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	e := NewExtractor(&fakeModel{response: "[]"}, policy.DefaultPlaybook())

	_, err := e.Extract(context.Background(), "   \n  ")
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractModelError(t *testing.T) {
	e := NewExtractor(&fakeModel{err: errors.New("offline")}, policy.DefaultPlaybook())

	_, err := e.Extract(context.Background(), doc)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractUnparseableOutput(t *testing.T) {
	e := NewExtractor(&fakeModel{response: "I found three clauses."}, policy.DefaultPlaybook())

	_, err := e.Extract(context.Background(), doc)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractDropsUnknownCategory(t *testing.T) {
	model := &fakeModel{response: `[
		{"category": "Confidentiality", "start": 0, "end": 31, "confidence": 0.9},
		{"category": "Dress Code", "start": 32, "end": 66, "confidence": 0.99}
	]`}
	e := NewExtractor(model, policy.DefaultPlaybook())

	clauses, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(clauses))
	}
	if clauses[0].Category != "Confidentiality" {
		t.Fatalf("unexpected category %s", clauses[0].Category)
	}
}

func TestExtractClampsSpans(t *testing.T) {
	model := &fakeModel{response: `[
		{"category": "Confidentiality", "start": -5, "end": 31, "confidence": 0.9},
		{"category": "Governing Law", "start": 67, "end": 9999, "confidence": 0.8},
		{"category": "Termination for Cause", "start": 50, "end": 40, "confidence": 0.7}
	]`}
	e := NewExtractor(model, policy.DefaultPlaybook())

	clauses, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses after clamping, got %d", len(clauses))
	}
	if clauses[0].Span.Start != 0 {
		t.Fatalf("expected start clamped to 0, got %d", clauses[0].Span.Start)
	}
	if clauses[1].Span.End != len(doc) {
		t.Fatalf("expected end clamped to %d, got %d", len(doc), clauses[1].Span.End)
	}
}

func TestResolveOverlapsKeepsHigherConfidence(t *testing.T) {
	candidates := []spanCandidate{
		{Category: "Confidentiality", Start: 0, End: 40, Confidence: 0.6},
		{Category: "Indemnification", Start: 20, End: 60, Confidence: 0.9},
		{Category: "Governing Law", Start: 70, End: 90, Confidence: 0.5},
	}

	kept := resolveOverlaps(candidates)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept spans, got %d", len(kept))
	}
	if kept[0].Category != "Indemnification" {
		t.Fatalf("expected higher-confidence span kept, got %s", kept[0].Category)
	}
	if kept[1].Category != "Governing Law" {
		t.Fatalf("expected non-overlapping span kept, got %s", kept[1].Category)
	}
}

func TestResolveOverlapsTieKeepsEarlier(t *testing.T) {
	candidates := []spanCandidate{
		{Category: "Indemnification", Start: 20, End: 60, Confidence: 0.8},
		{Category: "Confidentiality", Start: 0, End: 40, Confidence: 0.8},
	}

	kept := resolveOverlaps(candidates)
	if len(kept) != 1 {
		t.Fatalf("expected 1 kept span, got %d", len(kept))
	}
	if kept[0].Category != "Confidentiality" {
		t.Fatalf("tie must keep the earlier span, got %s", kept[0].Category)
	}
}

func TestResolveOverlapsDeterministic(t *testing.T) {
	candidates := []spanCandidate{
		{Category: "Confidentiality", Start: 0, End: 30, Confidence: 0.7},
		{Category: "Indemnification", Start: 10, End: 50, Confidence: 0.7},
		{Category: "Governing Law", Start: 40, End: 80, Confidence: 0.7},
	}

	first := resolveOverlaps(candidates)
	for i := 0; i < 10; i++ {
		again := resolveOverlaps(candidates)
		if len(again) != len(first) {
			t.Fatal("overlap resolution not deterministic")
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatal("overlap resolution not deterministic")
			}
		}
	}
}
