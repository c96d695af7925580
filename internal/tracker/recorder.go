package tracker

import (
	stderrors "errors"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/events"
	"github.com/actionsum/worktally/internal/workday"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ActivityStore persists ended activities
type ActivityStore interface {
	SaveActivity(a activity.EndedActivity) error
}

// Recorder persists ended activities and folds every event into the ledger
type Recorder struct {
	store  ActivityStore
	ledger *workday.Ledger
	log    zerolog.Logger
}

// NewRecorder creates a recorder
func NewRecorder(store ActivityStore, ledger *workday.Ledger, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, ledger: ledger, log: log}
}

// Handle is an events.Handler. The event is folded into the ledger before it
// is persisted, so a storage failure never hides it from the live workday.
func (r *Recorder) Handle(e events.Event) error {
	foldErr := r.ledger.Handle(e)

	switch ev := e.(type) {
	case activity.PeriodicActivityStarted:
		r.log.Debug().Str("app", ev.Activity.Application).Time("started_at", ev.Activity.StartedAt).Msg("activity started")
	case activity.PeriodicActivityEnded:
		if err := r.store.SaveActivity(ev.Activity); err != nil {
			return stderrors.Join(foldErr, errors.Wrap(err, "failed to persist activity"))
		}
	case breaks.BreakStarted:
		r.log.Info().Str("break_id", ev.Break.ID).Str("reason", ev.Break.Description).
			Time("started_at", ev.Break.StartedAt).Msg("break started")
	case breaks.BreakEnded:
		r.log.Info().Str("break_id", ev.Break.ID).Dur("duration", ev.Break.BreakDuration()).Msg("break ended")
	case breaks.BreakRevoked:
		r.log.Info().Str("break_id", ev.Break.EndedBreak.ID).Msg("break revoked")
	}
	return foldErr
}
