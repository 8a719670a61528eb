package contract

import "time"

// #region risk-level
// RiskLevel is the scored outcome class for a single clause.
type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskUnknown RiskLevel = "Unknown" // clause could not be evaluated
)

// Valid reports whether the level is one of the three scorable classes.
// RiskUnknown is reserved for clauses whose evaluation failed and is never
// a legal model output.
func (l RiskLevel) Valid() bool {
	return l == RiskLow || l == RiskMedium || l == RiskHigh
}

// ParseRiskLevel maps free-form model output onto a scorable risk level.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch s {
	case "Low", "low", "LOW":
		return RiskLow, true
	case "Medium", "medium", "MEDIUM":
		return RiskMedium, true
	case "High", "high", "HIGH":
		return RiskHigh, true
	}
	return "", false
}

// #endregion risk-level

// #region clause
// Span is a half-open [Start, End) character range into the source document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Clause is a bounded span of contract text assigned a legal category.
// Immutable once extracted.
type Clause struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	SourceText string  `json:"source_text"`
	Span       Span    `json:"span"`
	Confidence float32 `json:"confidence"`
}

// #endregion clause

// #region policy-guidance
// PolicyGuidance is one retrieved playbook passage with its similarity score.
// Ephemeral: produced per scorer invocation, never persisted on its own.
type PolicyGuidance struct {
	Category        string  `json:"category"`
	PassageText     string  `json:"passage_text"`
	SimilarityScore float32 `json:"similarity_score"` // in [0, 1]
}

// #endregion policy-guidance

// #region risk-verdict
// RiskVerdict is the scored outcome for one clause. Immutable.
// SuggestedRewrite is set only for Medium/High verdicts or for clauses
// flagged missing-but-required. FailureReason is set only for RiskUnknown.
type RiskVerdict struct {
	ClauseID         string    `json:"clause_id"`
	Category         string    `json:"category"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Justification    string    `json:"justification"`
	SuggestedRewrite string    `json:"suggested_rewrite,omitempty"`
	FailureReason    string    `json:"failure_reason,omitempty"`
}

// #endregion risk-verdict

// #region risk-report
// RiskReport aggregates the verdicts for one contract ingestion.
// Verdict order follows clause source order, with missing-required-clause
// flags appended in playbook order.
type RiskReport struct {
	ContractID string        `json:"contract_id"`
	Verdicts   []RiskVerdict `json:"verdicts"`
	CreatedAt  time.Time     `json:"created_at"`
}

// HighestRisk returns the most severe scorable level in the report,
// treating Unknown as above High (an unevaluated clause cannot be assumed safe).
func (r RiskReport) HighestRisk() RiskLevel {
	rank := map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskUnknown: 3}
	highest := RiskLow
	for _, v := range r.Verdicts {
		if rank[v.RiskLevel] > rank[highest] {
			highest = v.RiskLevel
		}
	}
	return highest
}

// #endregion risk-report
