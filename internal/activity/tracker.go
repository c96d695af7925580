// Package activity groups focus signals into periodic activities: one
// activity per focused application, ended when focus moves elsewhere.
package activity

import (
	"sync"
	"time"

	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/events"
	"github.com/actionsum/worktally/internal/period"
	"github.com/actionsum/worktally/internal/state"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrMissingState is returned when Track receives an empty state
	ErrMissingState = errors.New("system state is required")

	// ErrStaleSignal is returned for a signal older than the current activity
	ErrStaleSignal = errors.New("signal precedes the current activity")
)

// StartedActivity is the activity in progress
type StartedActivity struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	Application string    `json:"application"`
	Title       string    `json:"title"`
}

// EndedActivity is a finished activity span
type EndedActivity struct {
	StartedActivity
	EndedAt time.Time `json:"ended_at"`
}

// Duration returns EndedAt - StartedAt
func (a EndedActivity) Duration() time.Duration {
	return a.EndedAt.Sub(a.StartedAt)
}

// Period returns the activity span
func (a EndedActivity) Period() period.Period {
	return period.Period{Start: a.StartedAt, End: a.EndedAt}
}

// PeriodicActivityStarted is published when a new activity begins
type PeriodicActivityStarted struct {
	Activity StartedActivity
}

// PeriodicActivityEnded is published when an activity ends
type PeriodicActivityEnded struct {
	Activity EndedActivity
}

func (PeriodicActivityStarted) EventName() string { return "PeriodicActivityStarted" }
func (PeriodicActivityEnded) EventName() string   { return "PeriodicActivityEnded" }

// Tracker turns signals into activities. Lock, mouse and input signals keep
// the current activity alive; breaks are subtracted later by the ledgers.
// Activities crossing midnight are split at the day boundary.
type Tracker struct {
	publisher events.Publisher
	newID     func() string

	mu      sync.Mutex
	current *StartedActivity
	ended   []EndedActivity
}

// NewTracker creates an idle tracker
func NewTracker(publisher events.Publisher) *Tracker {
	return &Tracker{
		publisher: publisher,
		newID:     func() string { return uuid.New().String() },
	}
}

// WithIDGenerator replaces the activity id source
func (t *Tracker) WithIDGenerator(fn func() string) *Tracker {
	t.newID = fn
	return t
}

// Track applies one signal observed at ts
func (t *Tracker) Track(ts time.Time, st state.SystemState) error {
	if st.IsZero() {
		return ErrMissingState
	}

	t.mu.Lock()
	var pending []events.Event

	if t.current != nil {
		if ts.Before(t.current.StartedAt) {
			t.mu.Unlock()
			return errors.Wrapf(ErrStaleSignal, "signal at %s, activity %s started at %s",
				ts.Format(time.RFC3339), t.current.ID, t.current.StartedAt.Format(time.RFC3339))
		}
		if !clock.SameDay(t.current.StartedAt, ts) {
			// split at midnight; the same application carries on from the start of ts's day
			carried := *t.current
			endOfDay := clock.StartOfDay(carried.StartedAt).AddDate(0, 0, 1).Add(-time.Nanosecond)
			pending = append(pending, t.endLocked(endOfDay))

			t.current = &StartedActivity{ID: t.newID(), StartedAt: clock.StartOfDay(ts), Application: carried.Application, Title: carried.Title}
			pending = append(pending, PeriodicActivityStarted{Activity: *t.current})
		}
	}

	if st.Kind == state.FocusOnApplication && (t.current == nil || t.current.Application != st.Application) {
		if t.current != nil {
			pending = append(pending, t.endLocked(ts))
		}
		t.current = &StartedActivity{ID: t.newID(), StartedAt: ts, Application: st.Application, Title: st.Title}
		pending = append(pending, PeriodicActivityStarted{Activity: *t.current})
	}
	t.mu.Unlock()

	for _, e := range pending {
		t.publisher.Publish(e)
	}
	return nil
}

// Stop ends the current activity at ts, if there is one
func (t *Tracker) Stop(ts time.Time) {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return
	}
	if ts.Before(t.current.StartedAt) {
		ts = t.current.StartedAt
	}
	e := t.endLocked(ts)
	t.mu.Unlock()

	t.publisher.Publish(e)
}

func (t *Tracker) endLocked(ts time.Time) events.Event {
	ended := EndedActivity{StartedActivity: *t.current, EndedAt: ts}
	t.ended = append(t.ended, ended)
	t.current = nil
	return PeriodicActivityEnded{Activity: ended}
}

// GetCurrentActivity returns the activity in progress
func (t *Tracker) GetCurrentActivity() (StartedActivity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return StartedActivity{}, false
	}
	return *t.current, true
}

// GetEndedActivities returns a copy of every ended activity still retained
func (t *Tracker) GetEndedActivities() []EndedActivity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]EndedActivity(nil), t.ended...)
}

// PruneBefore forgets ended activities that finished before cutoff
func (t *Tracker) PruneBefore(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.ended[:0]
	for _, a := range t.ended {
		if !a.EndedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := len(t.ended) - len(kept)
	t.ended = kept
	return removed
}
