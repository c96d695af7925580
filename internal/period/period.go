// Package period provides the closed time interval used by every ledger.
package period

import (
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidInterval is returned when an interval ends before it starts
var ErrInvalidInterval = errors.New("invalid interval: end before start")

// Period is a closed interval [Start, End] with Start <= End
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New creates a validated period
func New(start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, errors.Wrapf(ErrInvalidInterval, "%s > %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Period{Start: start, End: end}, nil
}

// Must is New for callers that already hold ordered timestamps
func Must(start, end time.Time) Period {
	p, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return p
}

// Duration returns End - Start
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Overlaps reports whether the two periods share a non-empty span.
// Touching endpoints do not overlap.
func (p Period) Overlaps(other Period) bool {
	return p.Start.Before(other.End) && other.Start.Before(p.End)
}

// OverlapDuration returns the length of the shared span, zero if disjoint
func (p Period) OverlapDuration(other Period) time.Duration {
	start := later(p.Start, other.Start)
	end := earlier(p.End, other.End)
	if !start.Before(end) {
		return 0
	}
	return end.Sub(start)
}

// Touches reports whether the periods overlap or share an endpoint
func (p Period) Touches(other Period) bool {
	return !p.Start.After(other.End) && !other.Start.After(p.End)
}

// Union returns the smallest period covering both
func (p Period) Union(other Period) Period {
	return Period{Start: earlier(p.Start, other.Start), End: later(p.End, other.End)}
}

// Clip intersects p with bounds; ok is false when nothing remains
func (p Period) Clip(bounds Period) (Period, bool) {
	start := later(p.Start, bounds.Start)
	end := earlier(p.End, bounds.End)
	if end.Before(start) {
		return Period{}, false
	}
	return Period{Start: start, End: end}, true
}

// Equal compares instants, ignoring location and monotonic readings
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

func (p Period) String() string {
	return p.Start.Format("15:04:05") + "-" + p.End.Format("15:04:05")
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
