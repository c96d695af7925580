package database

import (
	"time"

	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BreakStore is a breaks.Store backed by the breaks table
type BreakStore struct {
	db  *DB
	loc *time.Location
}

var _ breaks.Store = (*BreakStore)(nil)

// NewBreakStore returns a store that reports times in loc
func NewBreakStore(db *DB, loc *time.Location) *BreakStore {
	if loc == nil {
		loc = time.Local
	}
	return &BreakStore{db: db, loc: loc}
}

func (s *BreakStore) SaveEnded(b breaks.EndedBreak) error {
	if b.ID == "" {
		return errors.Wrap(breaks.ErrInvalidArgument, "break id is required")
	}
	row := models.Break{
		ID:          b.ID,
		StartedAt:   b.StartedAt,
		EndedAt:     b.EndedAt,
		Description: b.Description,
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to insert break %s", b.ID)
	}
	return nil
}

func (s *BreakStore) Ended() ([]breaks.EndedBreak, error) {
	var rows []models.Break
	result := s.db.Where("revoked_at IS NULL").Order("started_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query ended breaks")
	}
	return toEndedBreaks(rows, s.loc), nil
}

// Revoke flips revoked_at with a conditional update, so only one of several
// concurrent callers wins
func (s *BreakStore) Revoke(id string, at time.Time) (breaks.RevokedBreak, error) {
	var row models.Break
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Break{}).
			Where("id = ? AND revoked_at IS NULL", id).
			Update("revoked_at", at)
		if result.Error != nil {
			return errors.Wrapf(result.Error, "failed to revoke break %s", id)
		}
		if result.RowsAffected == 0 {
			return errors.Wrapf(breaks.ErrBreakNotFound, "break %s", id)
		}
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return errors.Wrapf(err, "failed to load break %s", id)
		}
		return nil
	})
	if err != nil {
		return breaks.RevokedBreak{}, err
	}

	b := toEndedBreak(row, s.loc)
	return breaks.RevokedBreak{EndedBreak: b, RevokedAt: *b.RevokedAt}, nil
}

func (s *BreakStore) Revoked() ([]breaks.RevokedBreak, error) {
	var rows []models.Break
	result := s.db.Where("revoked_at IS NOT NULL").Order("revoked_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query revoked breaks")
	}

	out := make([]breaks.RevokedBreak, 0, len(rows))
	for _, b := range toEndedBreaks(rows, s.loc) {
		out = append(out, breaks.RevokedBreak{EndedBreak: b, RevokedAt: *b.RevokedAt})
	}
	return out, nil
}
