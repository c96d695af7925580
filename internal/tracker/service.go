package tracker

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/models"
	"github.com/actionsum/worktally/internal/state"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Options configures the polling loop
type Options struct {
	PollInterval  time.Duration
	RetentionDays int
	DisplayServer string
}

// Service polls the recognizer and feeds every signal into the engine
type Service struct {
	opts       Options
	engine     *Engine
	recognizer state.Recognizer
	store      Store
	clock      clock.Clock
	log        zerolog.Logger
	newID      func() string

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	lastTick time.Time
}

// NewService creates a stopped service
func NewService(opts Options, engine *Engine, recognizer state.Recognizer, store Store, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{
		opts:       opts,
		engine:     engine,
		recognizer: recognizer,
		store:      store,
		clock:      clk,
		log:        log,
		newID:      func() string { return uuid.New().String() },
	}
}

// Start runs the loop until ctx is done or Stop is called. The open break and
// the current activity are ended on the way out so both get persisted.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("tracker is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	defer func() {
		now := s.clock.Now()
		if err := s.engine.Breaks.Close(now); err != nil {
			s.storeError(errors.Wrap(err, "failed to close open break"))
		}
		s.engine.Activities.Stop(now)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.engine.Replay(s.clock.Now()); err != nil {
		s.storeError(errors.Wrap(err, "failed to replay today"))
	}

	s.log.Info().Dur("poll_interval", s.opts.PollInterval).Msg("starting tracker")

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.tickAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("tracker stopped by context")
			return ctx.Err()
		case <-stop:
			s.log.Info().Msg("tracker stopped")
			return nil
		case <-ticker.C:
			s.tickAndLog(ctx)
		}
	}
}

// Stop ends a running loop
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stopChan != nil {
		close(s.stopChan)
		s.stopChan = nil
	}
}

// IsRunning reports whether the loop is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) tickAndLog(ctx context.Context) {
	if err := s.Tick(ctx); err != nil {
		s.storeError(err)
	}
}

// Tick performs one poll. A tick without a signal only runs the break
// tracker's wall-clock check.
func (s *Service) Tick(ctx context.Context) error {
	now := s.clock.Now()
	s.rollover(now)

	st, err := s.recognizer.RecognizeState(ctx)
	if err != nil {
		drainErr := s.engine.Breaks.Drain()
		return stderrors.Join(errors.Wrap(err, "failed to recognize state"), drainErr)
	}
	if st.IsZero() {
		return s.engine.Breaks.Drain()
	}

	id := s.newID()
	var errs []error

	signal := &models.Signal{
		OccurrenceID:  id,
		Timestamp:     now,
		Kind:          st.Kind.String(),
		AppName:       st.Application,
		WindowTitle:   st.Title,
		DisplayServer: s.opts.DisplayServer,
	}
	if err := s.store.SaveSignal(signal); err != nil {
		errs = append(errs, err)
	}

	if err := s.engine.Activities.Track(now, st); err != nil {
		errs = append(errs, errors.Wrap(err, "activity tracker"))
	}

	item, err := breaks.NewActivityToProcess(now, st, id)
	if err != nil {
		errs = append(errs, err)
	} else if err := s.engine.Breaks.AddActivityToProcess(item); err != nil {
		errs = append(errs, errors.Wrap(err, "break tracker"))
	}

	s.log.Debug().Str("signal", st.String()).Str("occurrence_id", id).Msg("tracked")
	return stderrors.Join(errs...)
}

// rollover drops in-memory state of past days and prunes old signals once
// per calendar day
func (s *Service) rollover(now time.Time) {
	s.mu.Lock()
	first := s.lastTick.IsZero()
	changed := !first && !clock.SameDay(s.lastTick, now)
	s.lastTick = now
	s.mu.Unlock()

	if !first && !changed {
		return
	}

	today := clock.StartOfDay(now)
	if changed {
		s.engine.Activities.PruneBefore(today)
		s.engine.Ledger.Forget(today.AddDate(0, 0, -1))
	}

	if s.opts.RetentionDays > 0 {
		removed, err := s.store.DeleteSignalsBefore(today.AddDate(0, 0, -s.opts.RetentionDays))
		if err != nil {
			s.storeError(err)
		} else if removed > 0 {
			s.log.Info().Int64("removed", removed).Msg("pruned old signals")
		}
	}
}

func (s *Service) storeError(err error) {
	errorLog := &models.ErrorLog{
		Timestamp: s.clock.Now(),
		Component: "tracker",
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.store.CreateErrorLog(errorLog); dbErr != nil {
		s.log.Error().Err(dbErr).AnErr("original", err).Msg("failed to store error in database")
		return
	}
	s.log.Warn().Err(err).Msg("error logged to database")
}
