package tracker

import (
	"time"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/events"
	"github.com/actionsum/worktally/internal/models"
	"github.com/actionsum/worktally/internal/workday"

	"github.com/rs/zerolog"
)

// Store is the persistence the tracker needs; *database.Repository satisfies it
type Store interface {
	workday.History
	SaveSignal(signal *models.Signal) error
	SaveActivity(a activity.EndedActivity) error
	DeleteSignalsBefore(before time.Time) (int64, error)
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Engine wires the activity tracker, the break tracker and the workday
// ledger together over one event bus
type Engine struct {
	Activities *activity.Tracker
	Breaks     *breaks.Tracker
	Ledger     *workday.Ledger

	bus        *events.Bus
	store      Store
	definition workday.Definition
	clock      clock.Clock
}

// NewEngine builds the engine. Breaks are kept in breakStore, ended
// activities in store.
func NewEngine(def workday.Definition, threshold time.Duration, clk clock.Clock, store Store, breakStore breaks.Store, log zerolog.Logger) *Engine {
	bus := events.NewBus(log)
	e := &Engine{
		Activities: activity.NewTracker(bus),
		Breaks:     breaks.NewTracker(threshold, clk, breakStore, bus, breaks.WithLogger(log)),
		Ledger:     workday.NewLedger(def),
		bus:        bus,
		store:      store,
		definition: def,
		clock:      clk,
	}
	bus.Subscribe(NewRecorder(store, e.Ledger, log).Handle)
	return e
}

// Subscribe adds a handler for every engine event
func (e *Engine) Subscribe(h events.Handler) {
	e.bus.Subscribe(h)
}

// Replay rebuilds the snapshot of date from storage and seeds the ledger with it
func (e *Engine) Replay(date time.Time) (workday.Workday, error) {
	w, err := workday.Replay(e.store, e.definition, date)
	if err != nil {
		return workday.Workday{}, err
	}
	e.Ledger.Seed(w)
	return w, nil
}

// Today returns the live snapshot of the current day
func (e *Engine) Today() workday.Workday {
	return e.Ledger.Get(e.clock.Now())
}

// RevokeBreak voids an ended break now
func (e *Engine) RevokeBreak(id string) (breaks.RevokedBreak, error) {
	return e.Breaks.RevokeBreak(id, e.clock.Now())
}

// Definition returns the workday shape the engine folds against
func (e *Engine) Definition() workday.Definition {
	return e.definition
}

// EndedBreaks returns ended, non-revoked breaks
func (e *Engine) EndedBreaks() ([]breaks.EndedBreak, error) {
	return e.Breaks.GetEndedBreaks()
}

// RevokedBreaks returns revoked breaks
func (e *Engine) RevokedBreaks() ([]breaks.RevokedBreak, error) {
	return e.Breaks.GetRevokedBreaks()
}

// CurrentBreak returns the open break, if any
func (e *Engine) CurrentBreak() (breaks.StartedBreak, bool) {
	return e.Breaks.CurrentBreak()
}

// CurrentActivity returns the activity in progress, if any
func (e *Engine) CurrentActivity() (activity.StartedActivity, bool) {
	return e.Activities.GetCurrentActivity()
}
