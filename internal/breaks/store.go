package breaks

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Store holds ended and revoked breaks. Implementations must be safe for
// concurrent use, and Revoke must move a break atomically.
type Store interface {
	// SaveEnded records an ended break. Saving an id twice is a no-op.
	SaveEnded(b EndedBreak) error

	// Ended returns the breaks that are ended and not revoked
	Ended() ([]EndedBreak, error)

	// Revoke moves a break from ended to revoked, failing with
	// ErrBreakNotFound when it is not currently ended
	Revoke(id string, at time.Time) (RevokedBreak, error)

	// Revoked returns every revoked break
	Revoked() ([]RevokedBreak, error)
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu      sync.RWMutex
	ended   map[string]EndedBreak
	revoked map[string]RevokedBreak
	log     []string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ended:   make(map[string]EndedBreak),
		revoked: make(map[string]RevokedBreak),
	}
}

func (s *MemoryStore) SaveEnded(b EndedBreak) error {
	if b.ID == "" {
		return errors.Wrap(ErrInvalidArgument, "break id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revoked[b.ID]; ok {
		return nil
	}
	s.ended[b.ID] = b
	return nil
}

func (s *MemoryStore) Ended() ([]EndedBreak, error) {
	s.mu.RLock()
	out := make([]EndedBreak, 0, len(s.ended))
	for _, b := range s.ended {
		out = append(out, b)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *MemoryStore) Revoke(id string, at time.Time) (RevokedBreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.ended[id]
	if !ok {
		return RevokedBreak{}, errors.Wrapf(ErrBreakNotFound, "break %s", id)
	}
	delete(s.ended, id)

	revoked := b.Revoke(at)
	s.revoked[id] = revoked
	s.log = append(s.log, id)
	return revoked, nil
}

func (s *MemoryStore) Revoked() ([]RevokedBreak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RevokedBreak, 0, len(s.log))
	for _, id := range s.log {
		out = append(out, s.revoked[id])
	}
	return out, nil
}
