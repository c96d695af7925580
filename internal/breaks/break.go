// Package breaks detects breaks from a queue of system-state signals and
// keeps the ended and revoked breaks of the user.
package breaks

import (
	"time"

	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/period"
	"github.com/actionsum/worktally/internal/state"

	"github.com/pkg/errors"
)

// Break descriptions
const (
	DescriptionSystemLocked = "System Locked"
	DescriptionInactivity   = "Lack of activity"
)

var (
	// ErrInvalidArgument is returned when a required field is missing
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidBreakEnd is returned when a break would end before it started
	// or on another calendar day
	ErrInvalidBreakEnd = errors.New("invalid break end")

	// ErrBreakNotFound is returned when revoking a break that is not ended
	ErrBreakNotFound = errors.New("break not found")
)

// StartedBreak is an open break
type StartedBreak struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	Description string    `json:"description"`
}

// EndBreak closes the break at endTime, which must not precede the start and
// must fall on the same calendar day
func (b StartedBreak) EndBreak(endTime time.Time) (EndedBreak, error) {
	if endTime.Before(b.StartedAt) {
		return EndedBreak{}, errors.Wrapf(ErrInvalidBreakEnd, "break %s ends at %s before it started at %s",
			b.ID, endTime.Format(time.RFC3339), b.StartedAt.Format(time.RFC3339))
	}
	if !clock.SameDay(b.StartedAt, endTime) {
		return EndedBreak{}, errors.Wrapf(ErrInvalidBreakEnd, "break %s started on %s and cannot end on %s",
			b.ID, b.StartedAt.Format("2006-01-02"), endTime.In(b.StartedAt.Location()).Format("2006-01-02"))
	}
	return EndedBreak{
		ID:          b.ID,
		StartedAt:   b.StartedAt,
		EndedAt:     endTime,
		Description: b.Description,
	}, nil
}

// EndedBreak is a closed break. RevokedAt is set once the user voids it.
type EndedBreak struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at"`
	Description string     `json:"description"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// BreakDuration returns EndedAt - StartedAt
func (b EndedBreak) BreakDuration() time.Duration {
	return b.EndedAt.Sub(b.StartedAt)
}

// Period returns the break span
func (b EndedBreak) Period() period.Period {
	return period.Period{Start: b.StartedAt, End: b.EndedAt}
}

// IsRevoked reports whether the break was voided
func (b EndedBreak) IsRevoked() bool {
	return b.RevokedAt != nil
}

// Revoke voids the break at revokeTime
func (b EndedBreak) Revoke(revokeTime time.Time) RevokedBreak {
	at := revokeTime
	b.RevokedAt = &at
	return RevokedBreak{EndedBreak: b, RevokedAt: revokeTime}
}

// RevokedBreak is an ended break the user voided
type RevokedBreak struct {
	EndedBreak EndedBreak `json:"break"`
	RevokedAt  time.Time  `json:"revoked_at"`
}

// ActivityToProcess is one signal queued for break detection
type ActivityToProcess struct {
	Timestamp    time.Time
	State        state.SystemState
	OccurrenceID string
}

// NewActivityToProcess validates and builds a queue item
func NewActivityToProcess(timestamp time.Time, st state.SystemState, occurrenceID string) (ActivityToProcess, error) {
	switch {
	case st.IsZero():
		return ActivityToProcess{}, errors.Wrap(ErrInvalidArgument, "system state is required")
	case timestamp.IsZero():
		return ActivityToProcess{}, errors.Wrap(ErrInvalidArgument, "timestamp is required")
	case occurrenceID == "":
		return ActivityToProcess{}, errors.Wrap(ErrInvalidArgument, "occurrence id is required")
	}
	return ActivityToProcess{Timestamp: timestamp, State: st, OccurrenceID: occurrenceID}, nil
}

// BreakStarted is published when a break opens
type BreakStarted struct {
	Break StartedBreak
}

// BreakEnded is published when a break closes
type BreakEnded struct {
	Break EndedBreak
}

// BreakRevoked is published when the user voids an ended break
type BreakRevoked struct {
	Break RevokedBreak
}

func (BreakStarted) EventName() string { return "BreakStarted" }
func (BreakEnded) EventName() string   { return "BreakEnded" }
func (BreakRevoked) EventName() string { return "BreakRevoked" }
