package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/dtremaine/clauseflow/internal/contract"
	"github.com/dtremaine/clauseflow/internal/events"
	"github.com/dtremaine/clauseflow/internal/schedule"
	"github.com/dtremaine/clauseflow/internal/sign"
)

// #region collaborators
// ClauseExtractor locates policy-relevant clauses in a contract document.
type ClauseExtractor interface {
	Extract(ctx context.Context, documentText string) ([]contract.Clause, error)
}

// RiskScorer produces a risk report for extracted clauses.
type RiskScorer interface {
	ScoreReport(ctx context.Context, contractID string, clauses []contract.Clause) (contract.RiskReport, error)
}

// #endregion collaborators

// #region engine-struct
// Engine drives contracts through the review workflow. Every operation
// loads the durable state, validates the requested transition against the
// legality map, performs the stage's work, and commits state plus history
// atomically before emitting events. The engine holds no in-memory state
// between calls, so a restarted process picks up exactly where the
// database says it left off.
type Engine struct {
	store     *Store
	extractor ClauseExtractor
	scorer    RiskScorer
	signer    sign.Service
	scheduler schedule.Service
	emitter   events.Emitter
	now       func() time.Time
}

// NewEngine wires the engine's collaborators.
func NewEngine(store *Store, extractor ClauseExtractor, scorer RiskScorer,
	signer sign.Service, scheduler schedule.Service, emitter events.Emitter) *Engine {
	return &Engine{
		store:     store,
		extractor: extractor,
		scorer:    scorer,
		signer:    signer,
		scheduler: scheduler,
		emitter:   emitter,
		now:       time.Now,
	}
}

// #endregion engine-struct

// #region ingest
// Ingest registers a new contract, runs the analysis pipeline, and parks
// the workflow at the approval checkpoint. If extraction or scoring fails
// the contract is held at the analyzing stage with the failure recorded,
// and the same document can be re-submitted under a new contract ID.
func (e *Engine) Ingest(ctx context.Context, contractID, documentText string) (WorkflowState, error) {
	if contractID == "" {
		return WorkflowState{}, fmt.Errorf("empty contract id")
	}

	now := e.now().UTC()
	st := WorkflowState{
		ContractID: contractID,
		Stage:      StageAnalyzing,
		DocHash:    sign.HashDocument(documentText),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.store.Create(st); err != nil {
		return WorkflowState{}, err
	}

	clauses, err := e.extractor.Extract(ctx, documentText)
	if err != nil {
		return e.holdWithError(st, fmt.Errorf("extract clauses: %w", err))
	}

	report, err := e.scorer.ScoreReport(ctx, contractID, clauses)
	if err != nil {
		return e.holdWithError(st, fmt.Errorf("score clauses: %w", err))
	}

	st.Report = &report
	st.StageErr = ""
	return e.advance(st, []Stage{StageAwaitingApproval},
		fmt.Sprintf("analysis complete: highest risk %s", report.HighestRisk()))
}

// #endregion ingest

// #region approval
// SubmitApproval resolves the approval checkpoint. A rejection terminates
// the workflow. An approval signs the document and advances through the
// signing stage to the date checkpoint; if signing fails the contract
// stays at the approval checkpoint and the decision can be re-submitted.
// A previously recorded signature is reused rather than re-created.
func (e *Engine) SubmitApproval(ctx context.Context, contractID string, decision Decision, note string) (WorkflowState, error) {
	if !decision.Valid() {
		return WorkflowState{}, fmt.Errorf("unknown decision %q", decision)
	}

	st, err := e.store.Get(contractID)
	if err != nil {
		return WorkflowState{}, err
	}
	if st.Stage != StageAwaitingApproval {
		return WorkflowState{}, fmt.Errorf("%w: approval submitted at stage %s", ErrInvalidTransition, st.Stage)
	}

	if decision == DecisionReject {
		return e.advance(st, []Stage{StageRejected}, note)
	}

	if st.Signature == nil {
		sig, err := e.signer.Sign(ctx, st.DocHash)
		if err != nil {
			return e.holdWithError(st, fmt.Errorf("sign document: %w", err))
		}
		st.Signature = &sig
	}
	st.StageErr = ""
	return e.advance(st, []Stage{StageSigning, StageAwaitingDate}, note)
}

// #endregion approval

// #region meeting
// SubmitMeetingDate resolves the date checkpoint. The date must be in the
// future; a past or zero date is rejected without touching the stored
// state. Booking failure holds the contract at the date checkpoint; a
// previously recorded meeting is reused rather than booked again.
func (e *Engine) SubmitMeetingDate(ctx context.Context, contractID string, date time.Time) (WorkflowState, error) {
	st, err := e.store.Get(contractID)
	if err != nil {
		return WorkflowState{}, err
	}
	if st.Stage != StageAwaitingDate {
		return WorkflowState{}, fmt.Errorf("%w: meeting date submitted at stage %s", ErrInvalidTransition, st.Stage)
	}
	if !date.After(e.now()) {
		return WorkflowState{}, fmt.Errorf("%w: %s is not in the future", ErrInvalidDate, date.Format(time.RFC3339))
	}

	if st.Meeting == nil {
		conf, err := e.scheduler.Schedule(ctx, contractID, date)
		if err != nil {
			return e.holdWithError(st, fmt.Errorf("schedule meeting: %w", err))
		}
		st.Meeting = &Meeting{MeetingID: conf.MeetingID, Date: conf.Date}
	}
	st.StageErr = ""
	return e.advance(st, []Stage{StageScheduling, StageCompleted},
		fmt.Sprintf("meeting %s booked for %s", st.Meeting.MeetingID, st.Meeting.Date.Format(time.RFC3339)))
}

// #endregion meeting

// #region get-state
// GetState returns the current durable state for a contract.
func (e *Engine) GetState(contractID string) (WorkflowState, error) {
	return e.store.Get(contractID)
}

// #endregion get-state

// #region advance
// advance walks the state through the given stages, validating each hop,
// and commits the result with one history entry per hop in a single
// transaction. Events are emitted only after the commit succeeds.
func (e *Engine) advance(st WorkflowState, stages []Stage, note string) (WorkflowState, error) {
	now := e.now().UTC()
	var newTransitions []Transition

	for _, next := range stages {
		if !CanTransition(st.Stage, next) {
			return WorkflowState{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st.Stage, next)
		}
		tr := Transition{From: st.Stage, To: next, Note: note, At: now}
		newTransitions = append(newTransitions, tr)
		st.History = append(st.History, tr)
		st.Stage = next
	}
	st.UpdatedAt = now

	if err := e.store.Save(st, newTransitions); err != nil {
		return WorkflowState{}, err
	}

	for _, tr := range newTransitions {
		e.emitter.Emit(events.StageEvent{
			Timestamp:  tr.At.Format(time.RFC3339Nano),
			ContractID: st.ContractID,
			FromStage:  string(tr.From),
			ToStage:    string(tr.To),
			Note:       tr.Note,
		})
	}

	return st, nil
}

// holdWithError records a stage failure without changing the stage, so the
// contract can be retried from the same checkpoint after the collaborator
// recovers.
func (e *Engine) holdWithError(st WorkflowState, cause error) (WorkflowState, error) {
	st.StageErr = cause.Error()
	st.UpdatedAt = e.now().UTC()
	if err := e.store.Save(st, nil); err != nil {
		return WorkflowState{}, fmt.Errorf("record stage error: %w", err)
	}
	return st, cause
}

// #endregion advance
