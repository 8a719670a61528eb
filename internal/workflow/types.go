package workflow

import (
	"errors"
	"time"

	"github.com/dtremaine/clauseflow/internal/contract"
	"github.com/dtremaine/clauseflow/internal/sign"
)

// #region errors
var (
	// ErrInvalidTransition marks an operation submitted against a stage
	// that does not accept it.
	ErrInvalidTransition = errors.New("invalid stage transition")
	// ErrInvalidDate marks a meeting date that is not in the future.
	ErrInvalidDate = errors.New("invalid meeting date")
	// ErrContractExists marks an ingest for a contract ID already on file.
	ErrContractExists = errors.New("contract already exists")
	// ErrNotFound marks a lookup for an unknown contract ID.
	ErrNotFound = errors.New("contract not found")
)

// #endregion errors

// #region stages
// Stage is a checkpoint in the contract review workflow.
type Stage string

const (
	StageAnalyzing        Stage = "analyzing"
	StageAwaitingApproval Stage = "awaiting_approval"
	StageSigning          Stage = "signing"
	StageAwaitingDate     Stage = "awaiting_date"
	StageScheduling       Stage = "scheduling"
	StageCompleted        Stage = "completed"
	StageRejected         Stage = "rejected"
)

// legalTransitions is the full transition map. Anything absent is illegal.
var legalTransitions = map[Stage][]Stage{
	StageAnalyzing:        {StageAwaitingApproval},
	StageAwaitingApproval: {StageSigning, StageRejected},
	StageSigning:          {StageAwaitingDate},
	StageAwaitingDate:     {StageScheduling},
	StageScheduling:       {StageCompleted},
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageAnalyzing, StageAwaitingApproval, StageSigning,
		StageAwaitingDate, StageScheduling, StageCompleted, StageRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageRejected
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to Stage) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// #endregion stages

// #region decisions
// Decision is a reviewer's verdict at the approval checkpoint.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// #endregion decisions

// #region state
// Transition is one entry in a contract's stage history.
type Transition struct {
	From Stage     `json:"from"`
	To   Stage     `json:"to"`
	Note string    `json:"note,omitempty"`
	At   time.Time `json:"at"`
}

// Meeting records a booked signing meeting.
type Meeting struct {
	MeetingID string    `json:"meeting_id"`
	Date      time.Time `json:"date"`
}

// WorkflowState is the full durable record for one contract. Everything a
// resumed process needs to continue from the last checkpoint lives here.
type WorkflowState struct {
	ContractID string               `json:"contract_id"`
	Stage      Stage                `json:"stage"`
	DocHash    string               `json:"doc_hash"`
	Report     *contract.RiskReport `json:"report,omitempty"`
	Signature  *sign.Signature      `json:"signature,omitempty"`
	Meeting    *Meeting             `json:"meeting,omitempty"`
	StageErr   string               `json:"stage_err,omitempty"`
	History    []Transition         `json:"history"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// #endregion state
