package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dtremaine/clauseflow/internal/contract"
	"github.com/dtremaine/clauseflow/internal/llm"
	"github.com/dtremaine/clauseflow/internal/policy"
)

// #region errors
// ErrVerdictParse marks model output that could not be constrained to the
// three-level risk enum plus justification. The scorer never guesses a
// default: a silently defaulted verdict would mask a real risk.
var ErrVerdictParse = errors.New("verdict parse failed")

// #endregion errors

// #region constants

const defaultTopK = 3 // guidance passages per clause

// #endregion

// #region scorer
// Scorer produces a structured risk verdict per clause by comparing clause
// text against retrieved playbook guidance.
type Scorer struct {
	model    llm.LanguageModel
	index    *policy.Index
	playbook policy.Playbook
	topK     int
	now      func() time.Time
}

// NewScorer creates a scorer. topK <= 0 selects the default of 3 guidance
// passages per clause.
func NewScorer(model llm.LanguageModel, index *policy.Index, pb policy.Playbook, topK int) *Scorer {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Scorer{
		model:    model,
		index:    index,
		playbook: pb,
		topK:     topK,
		now:      time.Now,
	}
}

// #endregion scorer

// #region verdict-shape
// modelVerdict is the structured shape the model is asked to emit.
type modelVerdict struct {
	RiskLevel        string `json:"risk_level"`
	Justification    string `json:"justification"`
	SuggestedRewrite string `json:"suggested_rewrite"`
}

// #endregion verdict-shape

// #region score
// Score evaluates one clause. Guidance retrieval failures and verdict parse
// failures are surfaced to the caller; aggregation-level isolation lives in
// ScoreReport.
func (s *Scorer) Score(ctx context.Context, clause contract.Clause) (contract.RiskVerdict, error) {
	guidance, err := s.index.Search(ctx, clause.Category, s.topK)
	if err != nil {
		return contract.RiskVerdict{}, fmt.Errorf("score %s: %w", clause.Category, err)
	}

	raw, err := s.model.Complete(ctx, s.buildPrompt(clause, guidance))
	if err != nil {
		return contract.RiskVerdict{}, fmt.Errorf("score %s: %w", clause.Category, err)
	}

	var mv modelVerdict
	if err := json.Unmarshal([]byte(stripFences(raw)), &mv); err != nil {
		return contract.RiskVerdict{}, fmt.Errorf("%w: %s: %v", ErrVerdictParse, clause.Category, err)
	}
	level, ok := contract.ParseRiskLevel(mv.RiskLevel)
	if !ok {
		return contract.RiskVerdict{}, fmt.Errorf("%w: %s: risk_level %q not in {Low, Medium, High}",
			ErrVerdictParse, clause.Category, mv.RiskLevel)
	}
	if mv.Justification == "" {
		return contract.RiskVerdict{}, fmt.Errorf("%w: %s: empty justification", ErrVerdictParse, clause.Category)
	}

	verdict := contract.RiskVerdict{
		ClauseID:      clause.ID,
		Category:      clause.Category,
		RiskLevel:     level,
		Justification: mv.Justification,
	}
	// Rewrites accompany only verdicts a reviewer must act on.
	if level == contract.RiskMedium || level == contract.RiskHigh {
		verdict.SuggestedRewrite = mv.SuggestedRewrite
	}
	return verdict, nil
}

// #endregion score

// #region score-report
// ScoreReport scores every clause and appends missing-required-clause flags.
// A single clause failure does not abort the report: failed clauses are
// recorded as RiskUnknown with the failure reason attached so the report
// stays visible for human judgment.
func (s *Scorer) ScoreReport(ctx context.Context, contractID string, clauses []contract.Clause) (contract.RiskReport, error) {
	report := contract.RiskReport{
		ContractID: contractID,
		CreatedAt:  s.now().UTC(),
	}

	seen := make(map[string]bool, len(clauses))
	for _, clause := range clauses {
		seen[clause.Category] = true

		verdict, err := s.Score(ctx, clause)
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation aborts the whole report; a partially scored
				// report must never reach the approval checkpoint.
				return contract.RiskReport{}, fmt.Errorf("score report %s: %w", contractID, err)
			}
			slog.Warn("clause scoring failed, recording unknown verdict",
				"contract_id", contractID, "category", clause.Category, "error", err)
			verdict = contract.RiskVerdict{
				ClauseID:      clause.ID,
				Category:      clause.Category,
				RiskLevel:     contract.RiskUnknown,
				Justification: "clause could not be evaluated",
				FailureReason: err.Error(),
			}
		}
		report.Verdicts = append(report.Verdicts, verdict)
	}

	// Required categories with no extracted clause are flagged at Medium
	// risk with a rewrite drawn from the playbook's preferred language.
	for _, cat := range s.playbook.Categories {
		if !cat.Required || seen[cat.Name] {
			continue
		}
		report.Verdicts = append(report.Verdicts, s.missingClauseVerdict(ctx, cat.Name))
	}

	return report, nil
}

// missingClauseVerdict builds the flag for a required category the document
// never mentions. Guidance retrieval is best-effort here: the verdict is
// deterministic even when the index is down.
func (s *Scorer) missingClauseVerdict(ctx context.Context, category string) contract.RiskVerdict {
	rewrite := fmt.Sprintf("Insert the playbook's standard %s clause.", category)
	if guidance, err := s.index.Search(ctx, category, 1); err == nil && len(guidance) > 0 {
		rewrite = guidance[0].PassageText
	}
	return contract.RiskVerdict{
		Category:         category,
		RiskLevel:        contract.RiskMedium,
		Justification:    fmt.Sprintf("required %s clause not found in the document", category),
		SuggestedRewrite: rewrite,
	}
}

// #endregion score-report

// #region prompt
func (s *Scorer) buildPrompt(clause contract.Clause, guidance []contract.PolicyGuidance) string {
	var ctxBlock strings.Builder
	if len(guidance) == 0 {
		ctxBlock.WriteString("No playbook context available.")
	}
	for i, g := range guidance {
		if i > 0 {
			ctxBlock.WriteString("\n---\n")
		}
		ctxBlock.WriteString(g.PassageText)
	}

	return fmt.Sprintf(`You are an expert AI paralegal specializing in contract risk analysis. Your
primary goal is to ensure compliance with our company's legal playbook.

Instructions:
1. Analyze the clause text from the contract.
2. Consult the relevant playbook sections provided below.
3. Compare the clause against the playbook's guidance and assign a risk
   level: "Low", "Medium" or "High".
4. Justify the risk level, referencing specific points from the playbook.
5. If the risk level is Medium or High, propose a rewrite that would bring
   the clause into compliance; otherwise leave suggested_rewrite empty.
6. Respond ONLY with a valid JSON object of the shape:
   {"risk_level": "Low | Medium | High", "justification": "...", "suggested_rewrite": "..."}

---
COMPANY PLAYBOOK CONTEXT for '%s':
---
%s
---
CLAUSE TEXT:
---
%s`, clause.Category, ctxBlock.String(), clause.SourceText)
}

// stripFences removes markdown code fences some models wrap around JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// #endregion prompt
