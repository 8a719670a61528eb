package workflow

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dtremaine/clauseflow/internal/contract"
	"github.com/dtremaine/clauseflow/internal/sign"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS workflow_states (
	contract_id    TEXT PRIMARY KEY,
	stage          TEXT NOT NULL,
	doc_hash       TEXT NOT NULL,
	report_json    TEXT,
	signature_json TEXT,
	meeting_json   TEXT,
	stage_err      TEXT,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stage_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	contract_id  TEXT NOT NULL,
	from_stage   TEXT NOT NULL,
	to_stage     TEXT NOT NULL,
	note         TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (contract_id) REFERENCES workflow_states(contract_id)
);

CREATE INDEX IF NOT EXISTS idx_history_contract ON stage_history(contract_id);
`

// #endregion schema

// #region store-struct
// Store persists workflow state in SQLite. Every committed checkpoint is
// readable by a fresh process, which is what makes pause/resume work.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create
// Create inserts a brand-new workflow state. The state's History must hold
// the transitions recorded so far (usually none at creation time).
func (s *Store) Create(st WorkflowState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	reportJSON, sigJSON, meetingJSON, err := marshalAttachments(st)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO workflow_states
		 (contract_id, stage, doc_hash, report_json, signature_json, meeting_json, stage_err, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ContractID, string(st.Stage), st.DocHash,
		nullIfEmpty(reportJSON), nullIfEmpty(sigJSON), nullIfEmpty(meetingJSON),
		nullIfEmpty(st.StageErr),
		st.CreatedAt.Format(time.RFC3339Nano), st.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrContractExists, st.ContractID)
		}
		return fmt.Errorf("insert state: %w", err)
	}

	for _, tr := range st.History {
		if err := insertTransition(tx, st.ContractID, tr); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// #endregion create

// #region get
// Get loads a workflow state and its full stage history.
func (s *Store) Get(contractID string) (WorkflowState, error) {
	var st WorkflowState
	var stage string
	var reportJSON, sigJSON, meetingJSON, stageErr sql.NullString
	var createdStr, updatedStr string

	err := s.db.QueryRow(
		`SELECT contract_id, stage, doc_hash, report_json, signature_json, meeting_json, stage_err, created_at, updated_at
		 FROM workflow_states WHERE contract_id = ?`, contractID,
	).Scan(&st.ContractID, &stage, &st.DocHash, &reportJSON, &sigJSON, &meetingJSON, &stageErr, &createdStr, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkflowState{}, fmt.Errorf("%w: %s", ErrNotFound, contractID)
	}
	if err != nil {
		return WorkflowState{}, fmt.Errorf("get state %s: %w", contractID, err)
	}

	st.Stage = Stage(stage)
	if reportJSON.Valid {
		var rep contract.RiskReport
		if err := json.Unmarshal([]byte(reportJSON.String), &rep); err != nil {
			return WorkflowState{}, fmt.Errorf("unmarshal report: %w", err)
		}
		st.Report = &rep
	}
	if sigJSON.Valid {
		var sig sign.Signature
		if err := json.Unmarshal([]byte(sigJSON.String), &sig); err != nil {
			return WorkflowState{}, fmt.Errorf("unmarshal signature: %w", err)
		}
		st.Signature = &sig
	}
	if meetingJSON.Valid {
		var m Meeting
		if err := json.Unmarshal([]byte(meetingJSON.String), &m); err != nil {
			return WorkflowState{}, fmt.Errorf("unmarshal meeting: %w", err)
		}
		st.Meeting = &m
	}
	if stageErr.Valid {
		st.StageErr = stageErr.String
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)

	history, err := s.loadHistory(contractID)
	if err != nil {
		return WorkflowState{}, err
	}
	st.History = history

	return st, nil
}

// #endregion get

// #region save
// Save updates an existing state and appends the given new transitions in
// a single transaction. The state's History field must already include the
// new transitions; only newTransitions rows are inserted.
func (s *Store) Save(st WorkflowState, newTransitions []Transition) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	reportJSON, sigJSON, meetingJSON, err := marshalAttachments(st)
	if err != nil {
		return err
	}

	res, err := tx.Exec(
		`UPDATE workflow_states
		 SET stage = ?, doc_hash = ?, report_json = ?, signature_json = ?, meeting_json = ?, stage_err = ?, updated_at = ?
		 WHERE contract_id = ?`,
		string(st.Stage), st.DocHash,
		nullIfEmpty(reportJSON), nullIfEmpty(sigJSON), nullIfEmpty(meetingJSON),
		nullIfEmpty(st.StageErr),
		st.UpdatedAt.Format(time.RFC3339Nano), st.ContractID,
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, st.ContractID)
	}

	for _, tr := range newTransitions {
		if err := insertTransition(tx, st.ContractID, tr); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// #endregion save

// #region list
// ListContracts returns all contract IDs with their current stage, newest first.
func (s *Store) ListContracts() (map[string]Stage, error) {
	rows, err := s.db.Query(
		`SELECT contract_id, stage FROM workflow_states ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Stage)
	for rows.Next() {
		var id, stage string
		if err := rows.Scan(&id, &stage); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[id] = Stage(stage)
	}
	return out, rows.Err()
}

// #endregion list

// #region helpers
func (s *Store) loadHistory(contractID string) ([]Transition, error) {
	rows, err := s.db.Query(
		`SELECT from_stage, to_stage, note, created_at
		 FROM stage_history WHERE contract_id = ? ORDER BY id ASC`, contractID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []Transition
	for rows.Next() {
		var tr Transition
		var from, to, createdStr string
		var note sql.NullString
		if err := rows.Scan(&from, &to, &note, &createdStr); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		tr.From = Stage(from)
		tr.To = Stage(to)
		if note.Valid {
			tr.Note = note.String
		}
		tr.At, _ = time.Parse(time.RFC3339Nano, createdStr)
		history = append(history, tr)
	}
	return history, rows.Err()
}

func insertTransition(tx *sql.Tx, contractID string, tr Transition) error {
	_, err := tx.Exec(
		`INSERT INTO stage_history (contract_id, from_stage, to_stage, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		contractID, string(tr.From), string(tr.To), nullIfEmpty(tr.Note),
		tr.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func marshalAttachments(st WorkflowState) (report, sig, meeting string, err error) {
	if st.Report != nil {
		b, err := json.Marshal(st.Report)
		if err != nil {
			return "", "", "", fmt.Errorf("marshal report: %w", err)
		}
		report = string(b)
	}
	if st.Signature != nil {
		b, err := json.Marshal(st.Signature)
		if err != nil {
			return "", "", "", fmt.Errorf("marshal signature: %w", err)
		}
		sig = string(b)
	}
	if st.Meeting != nil {
		b, err := json.Marshal(st.Meeting)
		if err != nil {
			return "", "", "", fmt.Errorf("marshal meeting: %w", err)
		}
		meeting = string(b)
	}
	return report, sig, meeting, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// #endregion helpers
