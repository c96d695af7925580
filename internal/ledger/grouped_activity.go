// Package ledger implements the per-day interval ledger: the union of every
// included occurrence minus the union of every excluded occurrence, keyed by
// occurrence id so that replaying the same occurrence never counts it twice.
package ledger

import (
	"sort"
	"time"

	"github.com/actionsum/worktally/internal/period"

	"github.com/pkg/errors"
)

var (
	// ErrOccurrenceConflict is returned when an occurrence id is reused with a
	// different period or on the other side of the ledger
	ErrOccurrenceConflict = errors.New("occurrence already recorded with a different period")

	// ErrOutsideDay is returned when a period does not touch the ledger's day
	ErrOutsideDay = errors.New("period is outside the ledger day")
)

// Occurrence pairs an occurrence id with the raw period it contributed
type Occurrence struct {
	OccurrenceID string        `json:"occurrence_id"`
	Period       period.Period `json:"period"`
}

// GroupedActivity is the covered/excluded interval ledger for one calendar day.
// It is a single-writer structure.
type GroupedActivity struct {
	date time.Time
	day  period.Period

	included      []period.Period
	includedByID  map[string]period.Period
	includedOrder []string

	excluded      []period.Period
	excludedByID  map[string]period.Period
	excludedOrder []string
}

// CreateEmptyForDate returns an empty ledger for the calendar day containing date
func CreateEmptyForDate(date time.Time) *GroupedActivity {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return &GroupedActivity{
		date:         start,
		day:          period.Period{Start: start, End: start.AddDate(0, 0, 1)},
		includedByID: make(map[string]period.Period),
		excludedByID: make(map[string]period.Period),
	}
}

// FromOccurrences replays included and excluded occurrences into a new ledger
func FromOccurrences(date time.Time, included, excluded []Occurrence) (*GroupedActivity, error) {
	g := CreateEmptyForDate(date)
	for _, o := range included {
		if err := g.Include(o.OccurrenceID, o.Period); err != nil {
			return nil, errors.Wrapf(err, "replaying inclusion %s", o.OccurrenceID)
		}
	}
	for _, o := range excluded {
		if err := g.ReduceBy(o.OccurrenceID, o.Period); err != nil {
			return nil, errors.Wrapf(err, "replaying exclusion %s", o.OccurrenceID)
		}
	}
	return g, nil
}

// Date returns the midnight that starts the ledger's day
func (g *GroupedActivity) Date() time.Time {
	return g.date
}

// Include adds p to the covered time under occurrenceID
func (g *GroupedActivity) Include(occurrenceID string, p period.Period) error {
	clipped, skip, err := g.check(occurrenceID, p, g.includedByID, g.excludedByID)
	if err != nil || skip {
		return err
	}

	g.includedByID[occurrenceID] = p
	g.includedOrder = append(g.includedOrder, occurrenceID)
	g.included = merge(g.included, clipped)
	return nil
}

// ReduceBy marks p as excluded under occurrenceID. Only the part of p that
// intersects covered time affects Duration.
func (g *GroupedActivity) ReduceBy(occurrenceID string, p period.Period) error {
	clipped, skip, err := g.check(occurrenceID, p, g.excludedByID, g.includedByID)
	if err != nil || skip {
		return err
	}

	g.excludedByID[occurrenceID] = p
	g.excludedOrder = append(g.excludedOrder, occurrenceID)
	g.excluded = merge(g.excluded, clipped)
	return nil
}

func (g *GroupedActivity) check(id string, p period.Period, same, other map[string]period.Period) (period.Period, bool, error) {
	if id == "" {
		return period.Period{}, false, errors.New("occurrence id is required")
	}
	if existing, ok := same[id]; ok {
		if existing.Equal(p) {
			return period.Period{}, true, nil
		}
		return period.Period{}, false, errors.Wrapf(ErrOccurrenceConflict, "occurrence %s: %s vs %s", id, existing, p)
	}
	if _, ok := other[id]; ok {
		return period.Period{}, false, errors.Wrapf(ErrOccurrenceConflict, "occurrence %s is on the other side of the ledger", id)
	}

	clipped, ok := p.Clip(g.day)
	if !ok {
		return period.Period{}, false, errors.Wrapf(ErrOutsideDay, "%s on %s", p, g.date.Format("2006-01-02"))
	}
	return clipped, false, nil
}

// Duration returns covered time minus the excluded time that overlaps it
func (g *GroupedActivity) Duration() time.Duration {
	var covered, reduced time.Duration
	for _, c := range g.included {
		covered += c.Duration()
		for _, e := range g.excluded {
			reduced += c.OverlapDuration(e)
		}
	}
	if reduced > covered {
		return 0
	}
	return covered - reduced
}

// CoveredDuration returns the length of the merged covered set
func (g *GroupedActivity) CoveredDuration() time.Duration {
	var total time.Duration
	for _, c := range g.included {
		total += c.Duration()
	}
	return total
}

// CoveredIntervals returns a copy of the merged covered set
func (g *GroupedActivity) CoveredIntervals() []period.Period {
	return append([]period.Period(nil), g.included...)
}

// ExcludedIntervals returns a copy of the merged excluded set
func (g *GroupedActivity) ExcludedIntervals() []period.Period {
	return append([]period.Period(nil), g.excluded...)
}

// GetIncludedOccurrences returns the raw included periods in insertion order
func (g *GroupedActivity) GetIncludedOccurrences() []Occurrence {
	return collect(g.includedOrder, g.includedByID)
}

// GetExcludedOccurrences returns the raw excluded periods in insertion order
func (g *GroupedActivity) GetExcludedOccurrences() []Occurrence {
	return collect(g.excludedOrder, g.excludedByID)
}

func collect(order []string, byID map[string]period.Period) []Occurrence {
	out := make([]Occurrence, 0, len(order))
	for _, id := range order {
		out = append(out, Occurrence{OccurrenceID: id, Period: byID[id]})
	}
	return out
}

// merge inserts p into a sorted non-overlapping set and coalesces every
// neighbour that overlaps or touches it
func merge(set []period.Period, p period.Period) []period.Period {
	all := make([]period.Period, 0, len(set)+1)
	all = append(all, set...)
	all = append(all, p)
	sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })

	out := make([]period.Period, 1, len(all))
	out[0] = all[0]
	for _, next := range all[1:] {
		last := &out[len(out)-1]
		if last.Touches(next) {
			*last = last.Union(next)
			continue
		}
		out = append(out, next)
	}
	return out
}
