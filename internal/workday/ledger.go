package workday

import (
	"sync"
	"time"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/events"
)

// Ledger keeps the latest snapshot per calendar day. Folds are applied in
// the order they arrive; the ledger does not reorder or buffer.
type Ledger struct {
	mu         sync.RWMutex
	definition Definition
	days       map[string]Workday
}

// NewLedger creates a ledger that opens new days with def
func NewLedger(def Definition) *Ledger {
	return &Ledger{definition: def, days: make(map[string]Workday)}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Get returns the snapshot for date, empty when nothing was folded
func (l *Ledger) Get(date time.Time) Workday {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if w, ok := l.days[dayKey(date)]; ok {
		return w
	}
	return Empty(date, l.definition)
}

// Seed replaces the snapshot of w's day, typically after a replay from storage
func (l *Ledger) Seed(w Workday) {
	l.mu.Lock()
	l.days[dayKey(w.Date())] = w
	l.mu.Unlock()
}

// Forget drops every day before cutoff
func (l *Ledger) Forget(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	limit := dayKey(clock.StartOfDay(cutoff))
	for key := range l.days {
		if key < limit {
			delete(l.days, key)
		}
	}
}

func (l *Ledger) fold(at time.Time, apply func(Workday) (Workday, error)) (Workday, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := dayKey(at)
	current, ok := l.days[key]
	if !ok {
		current = Empty(at, l.definition)
	}
	next, err := apply(current)
	if err != nil {
		return current, err
	}
	l.days[key] = next
	return next, nil
}

// IncludeActivity folds an ended activity into its day
func (l *Ledger) IncludeActivity(a activity.EndedActivity) (Workday, error) {
	return l.fold(a.StartedAt, func(w Workday) (Workday, error) { return w.IncludeActivity(a) })
}

// IncludeBreak folds an ended break into its day
func (l *Ledger) IncludeBreak(b breaks.EndedBreak) (Workday, error) {
	return l.fold(b.StartedAt, func(w Workday) (Workday, error) { return w.IncludeBreak(b) })
}

// IncludeRevokedBreak folds a revocation into the break's day
func (l *Ledger) IncludeRevokedBreak(r breaks.RevokedBreak) (Workday, error) {
	return l.fold(r.EndedBreak.StartedAt, func(w Workday) (Workday, error) { return w.IncludeRevokedBreak(r) })
}

// Handle is an events.Handler folding the engine's events
func (l *Ledger) Handle(e events.Event) error {
	var err error
	switch ev := e.(type) {
	case activity.PeriodicActivityEnded:
		_, err = l.IncludeActivity(ev.Activity)
	case breaks.BreakEnded:
		_, err = l.IncludeBreak(ev.Break)
	case breaks.BreakRevoked:
		_, err = l.IncludeRevokedBreak(ev.Break)
	}
	return err
}
