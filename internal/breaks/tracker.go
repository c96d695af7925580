package breaks

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/events"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// detectorState is either noBreakOpen or breakOpen
type detectorState interface {
	isDetectorState()
}

type noBreakOpen struct{}

type breakOpen struct {
	started StartedBreak
}

func (noBreakOpen) isDetectorState() {}
func (breakOpen) isDetectorState()   {}

// Tracker is the break-detection state machine. AddActivityToProcess and
// Drain are expected from a single scheduler goroutine; queries and
// RevokeBreak may run concurrently with them.
type Tracker struct {
	threshold time.Duration
	clock     clock.Clock
	store     Store
	publisher events.Publisher
	newID     func() string
	log       zerolog.Logger

	mu                 sync.Mutex
	queue              []ActivityToProcess
	current            detectorState
	lastTimeOfActivity time.Time
}

// Option customises a Tracker
type Option func(*Tracker)

// WithIDGenerator overrides the id source for breaks opened by the
// wall-clock check
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) { t.newID = fn }
}

// WithLogger sets the tracker logger
func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// NewTracker creates a tracker with no open break
func NewTracker(threshold time.Duration, clk clock.Clock, store Store, publisher events.Publisher, opts ...Option) *Tracker {
	t := &Tracker{
		threshold: threshold,
		clock:     clk,
		store:     store,
		publisher: publisher,
		newID:     func() string { return uuid.New().String() },
		log:       zerolog.Nop(),
		current:   noBreakOpen{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddActivityToProcess enqueues a signal and drains the queue synchronously
func (t *Tracker) AddActivityToProcess(activity ActivityToProcess) error {
	if activity.State.IsZero() || activity.Timestamp.IsZero() || activity.OccurrenceID == "" {
		return errors.Wrap(ErrInvalidArgument, "activity to process is incomplete")
	}

	t.mu.Lock()
	t.queue = append(t.queue, activity)
	pending, err := t.drainLocked()
	t.mu.Unlock()

	t.publish(pending)
	return err
}

// Drain processes anything queued and runs the wall-clock inactivity check
func (t *Tracker) Drain() error {
	t.mu.Lock()
	pending, err := t.drainLocked()
	t.mu.Unlock()

	t.publish(pending)
	return err
}

func (t *Tracker) drainLocked() ([]events.Event, error) {
	var (
		pending []events.Event
		errs    []error
	)

	for len(t.queue) > 0 {
		item := t.queue[0]
		t.queue = t.queue[1:]

		next, emitted, err := t.transition(t.current, item)
		if err != nil {
			// the item is consumed; callers must not re-enqueue it
			errs = append(errs, errors.Wrapf(err, "processing signal %s", item.OccurrenceID))
			continue
		}
		t.current = next
		pending = append(pending, emitted...)
	}

	if _, open := t.current.(noBreakOpen); open && !t.lastTimeOfActivity.IsZero() {
		now := t.clock.Now()
		if now.Sub(t.lastTimeOfActivity) > t.threshold {
			started := StartedBreak{ID: t.newID(), StartedAt: now, Description: DescriptionInactivity}
			t.current = breakOpen{started: started}
			pending = append(pending, BreakStarted{Break: started})
		}
	}

	return pending, stderrors.Join(errs...)
}

// transition applies one signal to the current state. It must not mutate the
// tracker when it returns an error.
func (t *Tracker) transition(current detectorState, item ActivityToProcess) (detectorState, []events.Event, error) {
	switch s := current.(type) {
	case noBreakOpen:
		switch {
		case item.State.IsLocked():
			started := StartedBreak{ID: item.OccurrenceID, StartedAt: item.Timestamp, Description: DescriptionSystemLocked}
			return breakOpen{started: started}, []events.Event{BreakStarted{Break: started}}, nil

		case !t.lastTimeOfActivity.IsZero() && item.Timestamp.Sub(t.lastTimeOfActivity) > t.threshold:
			started := StartedBreak{ID: item.OccurrenceID, StartedAt: t.lastTimeOfActivity, Description: DescriptionInactivity}
			return breakOpen{started: started}, []events.Event{BreakStarted{Break: started}}, nil

		default:
			t.touch(item.Timestamp)
			return s, nil, nil
		}

	case breakOpen:
		if item.State.IsLocked() {
			return s, nil, nil
		}

		emitted, err := t.endOpen(s.started, item.Timestamp)
		if err != nil {
			return s, nil, err
		}
		t.touch(item.Timestamp)
		return noBreakOpen{}, emitted, nil

	default:
		return current, nil, errors.Errorf("unknown detector state %T", current)
	}
}

// endOpen ends started at end. A break reaching into a later day is closed at
// the last instant of its own day and continues from midnight of end's day
// as a second break, so each day only folds its own share.
func (t *Tracker) endOpen(started StartedBreak, end time.Time) ([]events.Event, error) {
	if !end.After(started.StartedAt) || clock.SameDay(started.StartedAt, end) {
		ended, err := started.EndBreak(end)
		if err != nil {
			return nil, err
		}
		if err := t.store.SaveEnded(ended); err != nil {
			return nil, errors.Wrapf(err, "failed to save ended break %s", ended.ID)
		}
		return []events.Event{BreakEnded{Break: ended}}, nil
	}

	endOfDay := clock.StartOfDay(started.StartedAt).AddDate(0, 0, 1).Add(-time.Nanosecond)
	first, err := started.EndBreak(endOfDay)
	if err != nil {
		return nil, err
	}
	next := StartedBreak{ID: t.newID(), StartedAt: clock.StartOfDay(end), Description: started.Description}
	second, err := next.EndBreak(end)
	if err != nil {
		return nil, err
	}

	if err := t.store.SaveEnded(first); err != nil {
		return nil, errors.Wrapf(err, "failed to save ended break %s", first.ID)
	}
	if err := t.store.SaveEnded(second); err != nil {
		return nil, errors.Wrapf(err, "failed to save ended break %s", second.ID)
	}
	t.log.Info().Str("break_id", first.ID).Str("continued_as", second.ID).Msg("break split at midnight")
	return []events.Event{BreakEnded{Break: first}, BreakStarted{Break: next}, BreakEnded{Break: second}}, nil
}

// Close ends the open break at now, if there is one. It runs when tracking
// stops so the break is saved and folded like any other.
func (t *Tracker) Close(now time.Time) error {
	t.mu.Lock()
	s, open := t.current.(breakOpen)
	if !open {
		t.mu.Unlock()
		return nil
	}
	if now.Before(s.started.StartedAt) {
		now = s.started.StartedAt
	}
	emitted, err := t.endOpen(s.started, now)
	if err == nil {
		t.current = noBreakOpen{}
	}
	t.mu.Unlock()

	t.publish(emitted)
	return err
}

// touch moves lastTimeOfActivity forward; late signals never move it back
func (t *Tracker) touch(ts time.Time) {
	if ts.After(t.lastTimeOfActivity) {
		t.lastTimeOfActivity = ts
	}
}

func (t *Tracker) publish(pending []events.Event) {
	for _, e := range pending {
		t.log.Debug().Str("event", e.EventName()).Msg("publishing break event")
		t.publisher.Publish(e)
	}
}

// RevokeBreak voids an ended break. Each break can be revoked once.
func (t *Tracker) RevokeBreak(breakID string, revokeTime time.Time) (RevokedBreak, error) {
	revoked, err := t.store.Revoke(breakID, revokeTime)
	if err != nil {
		return RevokedBreak{}, err
	}
	t.publisher.Publish(BreakRevoked{Break: revoked})
	return revoked, nil
}

// GetEndedBreaks returns ended, non-revoked breaks
func (t *Tracker) GetEndedBreaks() ([]EndedBreak, error) {
	return t.store.Ended()
}

// GetRevokedBreaks returns revoked breaks
func (t *Tracker) GetRevokedBreaks() ([]RevokedBreak, error) {
	return t.store.Revoked()
}

// CurrentBreak returns the open break, if any
func (t *Tracker) CurrentBreak() (StartedBreak, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.current.(breakOpen); ok {
		return s.started, true
	}
	return StartedBreak{}, false
}

// LastTimeOfActivity returns the timestamp of the latest activity signal
func (t *Tracker) LastTimeOfActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTimeOfActivity
}
