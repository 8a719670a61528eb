package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region errors
// ErrSchedulingFailed marks a failed booking attempt. The workflow records
// it and stays at the date checkpoint so the caller can retry.
var ErrSchedulingFailed = errors.New("scheduling failed")

// #endregion errors

// #region types
// Confirmation is the scheduling collaborator's booking receipt.
type Confirmation struct {
	MeetingID   string    `json:"meeting_id"`
	Date        time.Time `json:"date"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// Service is the scheduling collaborator invoked at the date checkpoint.
// Duplicate-meeting prevention is the engine's responsibility: it checks
// for a recorded meeting before re-invoking.
type Service interface {
	Schedule(ctx context.Context, contractID string, date time.Time) (Confirmation, error)
}

// #endregion types

// #region local-scheduler
// LocalScheduler books meetings in-process, assigning opaque meeting IDs.
type LocalScheduler struct {
	now func() time.Time
}

// NewLocalScheduler returns a scheduler using the wall clock.
func NewLocalScheduler() *LocalScheduler {
	return &LocalScheduler{now: time.Now}
}

// Schedule books a signing meeting for the contract.
func (s *LocalScheduler) Schedule(ctx context.Context, contractID string, date time.Time) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
	}
	if contractID == "" {
		return Confirmation{}, fmt.Errorf("%w: empty contract id", ErrSchedulingFailed)
	}
	return Confirmation{
		MeetingID:   uuid.New().String(),
		Date:        date,
		ConfirmedAt: s.now().UTC(),
	}, nil
}

// #endregion local-scheduler
