package database

import (
	"strings"
	"time"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

// Repository handles signal, activity and error persistence
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveSignal inserts a recognised signal. Replaying an occurrence id is a no-op.
func (r *Repository) SaveSignal(signal *models.Signal) error {
	signal.AppName = strings.ToLower(signal.AppName)
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(signal)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert signal")
	}
	return nil
}

// SignalsBetween returns the signals observed in [from, to)
func (r *Repository) SignalsBetween(from, to time.Time) ([]models.Signal, error) {
	var signals []models.Signal
	result := r.db.Where("timestamp >= ? AND timestamp < ?", from, to).Order("timestamp ASC").Find(&signals)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query signals")
	}
	return signals, nil
}

// DeleteSignalsBefore removes signals older than before
func (r *Repository) DeleteSignalsBefore(before time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", before).Delete(&models.Signal{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old signals")
	}
	return result.RowsAffected, nil
}

// SaveActivity stores an ended activity once per occurrence id
func (r *Repository) SaveActivity(a activity.EndedActivity) error {
	row := models.Activity{
		ID:          a.ID,
		StartedAt:   a.StartedAt,
		EndedAt:     a.EndedAt,
		AppName:     strings.ToLower(a.Application),
		WindowTitle: a.Title,
	}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to insert activity %s", a.ID)
	}
	return nil
}

// ActivitiesOn returns the activities started on date's calendar day
func (r *Repository) ActivitiesOn(date time.Time) ([]activity.EndedActivity, error) {
	from := clock.StartOfDay(date)
	return r.ActivitiesBetween(from, from.AddDate(0, 0, 1))
}

// ActivitiesBetween returns the activities started in [from, to), in from's location
func (r *Repository) ActivitiesBetween(from, to time.Time) ([]activity.EndedActivity, error) {
	var rows []models.Activity
	result := r.db.Where("started_at >= ? AND started_at < ?", from, to).Order("started_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query activities")
	}

	loc := from.Location()
	out := make([]activity.EndedActivity, 0, len(rows))
	for _, row := range rows {
		out = append(out, activity.EndedActivity{
			StartedActivity: activity.StartedActivity{
				ID:          row.ID,
				StartedAt:   row.StartedAt.In(loc),
				Application: row.AppName,
				Title:       row.WindowTitle,
			},
			EndedAt: row.EndedAt.In(loc),
		})
	}
	return out, nil
}

// BreaksOn returns every break started on date's calendar day, revoked ones
// included with RevokedAt set
func (r *Repository) BreaksOn(date time.Time) ([]breaks.EndedBreak, error) {
	from := clock.StartOfDay(date)
	var rows []models.Break
	result := r.db.Where("started_at >= ? AND started_at < ?", from, from.AddDate(0, 0, 1)).
		Order("started_at ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query breaks")
	}
	return toEndedBreaks(rows, date.Location()), nil
}

// RevokedBreaksOn returns the revoked breaks started on date's calendar day
func (r *Repository) RevokedBreaksOn(date time.Time) ([]breaks.RevokedBreak, error) {
	all, err := r.BreaksOn(date)
	if err != nil {
		return nil, err
	}
	var out []breaks.RevokedBreak
	for _, b := range all {
		if b.IsRevoked() {
			out = append(out, breaks.RevokedBreak{EndedBreak: b, RevokedAt: *b.RevokedAt})
		}
	}
	return out, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// RecentErrors returns the newest error logs first
func (r *Repository) RecentErrors(limit int) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	result := r.db.Order("timestamp DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all tracked data
func (r *Repository) Clear() error {
	for _, table := range []string{"signals", "activities", "breaks", "error_logs"} {
		if result := r.db.Exec("DELETE FROM " + table); result.Error != nil {
			return errors.Wrapf(result.Error, "failed to clear %s", table)
		}
	}
	return nil
}

func toEndedBreaks(rows []models.Break, loc *time.Location) []breaks.EndedBreak {
	out := make([]breaks.EndedBreak, 0, len(rows))
	for _, row := range rows {
		out = append(out, toEndedBreak(row, loc))
	}
	return out
}

func toEndedBreak(row models.Break, loc *time.Location) breaks.EndedBreak {
	b := breaks.EndedBreak{
		ID:          row.ID,
		StartedAt:   row.StartedAt.In(loc),
		EndedAt:     row.EndedAt.In(loc),
		Description: row.Description,
	}
	if row.RevokedAt != nil {
		at := row.RevokedAt.In(loc)
		b.RevokedAt = &at
	}
	return b
}
