package workday

import (
	"time"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"

	"github.com/pkg/errors"
)

// History is the persisted record a workday can be rebuilt from
type History interface {
	ActivitiesOn(date time.Time) ([]activity.EndedActivity, error)
	BreaksOn(date time.Time) ([]breaks.EndedBreak, error)
}

// Replay rebuilds the snapshot of date from h. Revoked breaks are skipped.
func Replay(h History, def Definition, date time.Time) (Workday, error) {
	activities, err := h.ActivitiesOn(date)
	if err != nil {
		return Workday{}, errors.Wrap(err, "failed to load activities")
	}
	ended, err := h.BreaksOn(date)
	if err != nil {
		return Workday{}, errors.Wrap(err, "failed to load breaks")
	}
	return CreateBasedOn(date, def, activities, ended)
}
