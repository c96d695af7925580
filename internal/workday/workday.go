// Package workday folds ended activities, ended breaks and revoked breaks
// into immutable per-day snapshots of the user's time accounting.
//
// Every snapshot keeps two raw, unclamped accumulators (activity time and
// break time) and derives all public metrics from them, so revoking a break
// restores exactly the numbers that existed before it was folded.
package workday

import (
	"encoding/json"
	"time"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"

	"github.com/pkg/errors"
)

// ErrWrongDay is returned when an occurrence belongs to another calendar day
var ErrWrongDay = errors.New("occurrence belongs to another day")

// Definition is the externally configured shape of a workday
type Definition struct {
	WorkdayDuration      time.Duration `json:"workday_duration" yaml:"workday_duration"`
	AllowedBreakDuration time.Duration `json:"allowed_break_duration" yaml:"allowed_break_duration"`
}

// DefaultDefinition is an 8 hour day with 50 minutes of break
func DefaultDefinition() Definition {
	return Definition{WorkdayDuration: 8 * time.Hour, AllowedBreakDuration: 50 * time.Minute}
}

// ActiveTarget is the active work expected per day
func (d Definition) ActiveTarget() time.Duration {
	return d.WorkdayDuration - d.AllowedBreakDuration
}

// Workday is an immutable snapshot; every Include returns a new value
type Workday struct {
	date       time.Time
	definition Definition

	rawActivityTime time.Duration
	rawBreakTime    time.Duration

	activities map[string]struct{}
	breaks     map[string]time.Duration
	revoked    map[string]struct{}

	timeAlreadyActivelyWorked time.Duration
	timeLeftToWorkActively    time.Duration
	overallTimeLeftToWork     time.Duration
	overhoursTime             time.Duration
	breakTimeLeft             time.Duration
	validBreakTimeUsed        time.Duration
}

// Empty returns the snapshot of a day with nothing folded yet
func Empty(date time.Time, def Definition) Workday {
	w := Workday{date: clock.StartOfDay(date), definition: def}
	w.recompute()
	return w
}

// CreateBasedOn replays ended activities and breaks into a snapshot.
// Breaks already carrying RevokedAt are skipped.
func CreateBasedOn(date time.Time, def Definition, activities []activity.EndedActivity, ended []breaks.EndedBreak) (Workday, error) {
	w := Empty(date, def)
	var err error
	for _, a := range activities {
		if w, err = w.IncludeActivity(a); err != nil {
			return Workday{}, err
		}
	}
	for _, b := range ended {
		if b.IsRevoked() {
			continue
		}
		if w, err = w.IncludeBreak(b); err != nil {
			return Workday{}, err
		}
	}
	return w, nil
}

// IncludeActivity folds an ended activity
func (w Workday) IncludeActivity(a activity.EndedActivity) (Workday, error) {
	if err := w.checkDay(a.ID, a.StartedAt); err != nil {
		return w, err
	}
	if _, seen := w.activities[a.ID]; seen {
		return w, nil
	}

	next := w.clone()
	next.activities[a.ID] = struct{}{}
	next.rawActivityTime += a.Duration()
	next.recompute()
	return next, nil
}

// IncludeBreak folds an ended break; it retroactively reduces active time
func (w Workday) IncludeBreak(b breaks.EndedBreak) (Workday, error) {
	if err := w.checkDay(b.ID, b.StartedAt); err != nil {
		return w, err
	}
	if _, seen := w.breaks[b.ID]; seen {
		return w, nil
	}
	if _, gone := w.revoked[b.ID]; gone {
		return w, nil
	}

	next := w.clone()
	next.breaks[b.ID] = b.BreakDuration()
	next.rawBreakTime += b.BreakDuration()
	next.recompute()
	return next, nil
}

// IncludeRevokedBreak reverses a previously folded break. Revoking a break
// this day never folded is a no-op.
func (w Workday) IncludeRevokedBreak(r breaks.RevokedBreak) (Workday, error) {
	b := r.EndedBreak
	if err := w.checkDay(b.ID, b.StartedAt); err != nil {
		return w, err
	}
	folded, seen := w.breaks[b.ID]
	if !seen {
		return w, nil
	}

	next := w.clone()
	delete(next.breaks, b.ID)
	next.revoked[b.ID] = struct{}{}
	next.rawBreakTime -= folded
	next.recompute()
	return next, nil
}

func (w Workday) checkDay(id string, at time.Time) error {
	if !clock.SameDay(w.date, at) {
		return errors.Wrapf(ErrWrongDay, "occurrence %s at %s, workday %s",
			id, at.Format(time.RFC3339), w.date.Format("2006-01-02"))
	}
	return nil
}

func (w Workday) clone() Workday {
	next := w
	next.activities = make(map[string]struct{}, len(w.activities)+1)
	for id := range w.activities {
		next.activities[id] = struct{}{}
	}
	next.breaks = make(map[string]time.Duration, len(w.breaks)+1)
	for id, d := range w.breaks {
		next.breaks[id] = d
	}
	next.revoked = make(map[string]struct{}, len(w.revoked)+1)
	for id := range w.revoked {
		next.revoked[id] = struct{}{}
	}
	return next
}

func (w *Workday) recompute() {
	def := w.definition

	w.timeAlreadyActivelyWorked = nonNegative(w.rawActivityTime - w.rawBreakTime)
	w.validBreakTimeUsed = min(nonNegative(w.rawBreakTime), nonNegative(def.AllowedBreakDuration))
	w.breakTimeLeft = nonNegative(def.AllowedBreakDuration - w.rawBreakTime)
	w.timeLeftToWorkActively = nonNegative(def.ActiveTarget() - w.timeAlreadyActivelyWorked)
	w.overhoursTime = nonNegative(w.timeAlreadyActivelyWorked - def.ActiveTarget())
	w.overallTimeLeftToWork = nonNegative(def.WorkdayDuration - w.timeAlreadyActivelyWorked - w.validBreakTimeUsed)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func (w Workday) Date() time.Time { return w.date }
func (w Workday) Definition() Definition { return w.definition }
func (w Workday) TimeOfAllActivities() time.Duration { return nonNegative(w.rawActivityTime) }
func (w Workday) TimeOfAllBreaks() time.Duration { return nonNegative(w.rawBreakTime) }
func (w Workday) TimeAlreadyActivelyWorked() time.Duration { return w.timeAlreadyActivelyWorked }
func (w Workday) TimeLeftToWorkActively() time.Duration { return w.timeLeftToWorkActively }
func (w Workday) OverallTimeLeftToWork() time.Duration { return w.overallTimeLeftToWork }
func (w Workday) OverhoursTime() time.Duration { return w.overhoursTime }
func (w Workday) BreakTimeLeft() time.Duration { return w.breakTimeLeft }
func (w Workday) ValidBreakTimeUsed() time.Duration { return w.validBreakTimeUsed }

// Summary is the serialisable view of a snapshot
type Summary struct {
	Date                      string        `json:"date"`
	WorkdayDuration           time.Duration `json:"workday_duration"`
	AllowedBreakDuration      time.Duration `json:"allowed_break_duration"`
	TimeOfAllActivities       time.Duration `json:"time_of_all_activities"`
	TimeOfAllBreaks           time.Duration `json:"time_of_all_breaks"`
	TimeAlreadyActivelyWorked time.Duration `json:"time_already_actively_worked"`
	TimeLeftToWorkActively    time.Duration `json:"time_left_to_work_actively"`
	OverallTimeLeftToWork     time.Duration `json:"overall_time_left_to_work"`
	OverhoursTime             time.Duration `json:"overhours_time"`
	BreakTimeLeft             time.Duration `json:"break_time_left"`
	ValidBreakTimeUsed        time.Duration `json:"valid_break_time_used"`
}

// Summary flattens the snapshot
func (w Workday) Summary() Summary {
	return Summary{
		Date:                      w.date.Format("2006-01-02"),
		WorkdayDuration:           w.definition.WorkdayDuration,
		AllowedBreakDuration:      w.definition.AllowedBreakDuration,
		TimeOfAllActivities:       w.TimeOfAllActivities(),
		TimeOfAllBreaks:           w.TimeOfAllBreaks(),
		TimeAlreadyActivelyWorked: w.timeAlreadyActivelyWorked,
		TimeLeftToWorkActively:    w.timeLeftToWorkActively,
		OverallTimeLeftToWork:     w.overallTimeLeftToWork,
		OverhoursTime:             w.overhoursTime,
		BreakTimeLeft:             w.breakTimeLeft,
		ValidBreakTimeUsed:        w.validBreakTimeUsed,
	}
}

// MarshalJSON encodes the Summary
func (w Workday) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Summary())
}
