package events

// StageEvent is the audit record emitted once per committed stage
// transition.
type StageEvent struct {
	Timestamp  string `json:"timestamp"` // RFC3339 string
	ContractID string `json:"contract_id"`
	FromStage  string `json:"from_stage"`
	ToStage    string `json:"to_stage"`
	Note       string `json:"note"` // ALWAYS string ("" if none)
}
