package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/database"
	"github.com/actionsum/worktally/internal/state"
	"github.com/actionsum/worktally/internal/workday"
	"github.com/actionsum/worktally/pkg/window"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nine = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clock    *clock.Fake
	detector *window.MockDetector
	repo     *database.Repository
	engine   *Engine
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "worktally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		clock:    clock.NewFake(nine),
		detector: window.NewMockDetector(),
		repo:     database.NewRepository(db),
	}
	f.engine = NewEngine(workday.DefaultDefinition(), 5*time.Minute, f.clock, f.repo,
		database.NewBreakStore(db, time.UTC), zerolog.Nop())
	f.service = NewService(Options{PollInterval: time.Minute, DisplayServer: "mock"}, f.engine,
		state.NewDetectorRecognizer(f.detector, 5*time.Second), f.repo, f.clock, zerolog.Nop())
	return f
}

func (f *fixture) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, f.service.Tick(context.Background()))
}

func (f *fixture) tickEveryMinuteUntil(t *testing.T, until time.Time) {
	t.Helper()
	for f.clock.Now().Before(until) {
		f.clock.Advance(time.Minute)
		f.tick(t)
	}
}

func TestService_InactivityBreakIsSubtracted(t *testing.T) {
	f := newFixture(t)

	f.detector.SetWindow("code", "main.go")
	f.tick(t)
	f.tickEveryMinuteUntil(t, nine.Add(time.Hour))

	f.detector.SetIdle(window.IdleInfo{IsIdle: true, IdleTime: 10 * time.Minute})
	f.tickEveryMinuteUntil(t, nine.Add(time.Hour+10*time.Minute))

	current, open := f.engine.Breaks.CurrentBreak()
	require.True(t, open)
	assert.Equal(t, breaks.DescriptionInactivity, current.Description)
	assert.Equal(t, nine.Add(time.Hour+6*time.Minute), current.StartedAt)

	f.clock.Set(nine.Add(time.Hour + 20*time.Minute))
	f.detector.SetIdle(window.IdleInfo{})
	f.detector.SetWindow("firefox", "docs")
	f.tick(t)

	ended, err := f.engine.Breaks.GetEndedBreaks()
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, 14*time.Minute, ended[0].BreakDuration())

	today := f.engine.Today()
	assert.Equal(t, 80*time.Minute, today.TimeOfAllActivities())
	assert.Equal(t, 66*time.Minute, today.TimeAlreadyActivelyWorked())
	assert.Equal(t, 36*time.Minute, today.BreakTimeLeft())

	stored, err := f.repo.ActivitiesOn(nine)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "code", stored[0].Application)

	signals, err := f.repo.SignalsBetween(nine, nine.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, signals, 62, "idle ticks are not persisted")

	_, err = f.engine.RevokeBreak(ended[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 80*time.Minute, f.engine.Today().TimeAlreadyActivelyWorked())

	_, err = f.engine.RevokeBreak(ended[0].ID)
	assert.True(t, errors.Is(err, breaks.ErrBreakNotFound))
}

func TestService_LockOpensBreakAtSignal(t *testing.T) {
	f := newFixture(t)

	f.detector.SetWindow("code", "")
	f.tick(t)

	f.clock.Advance(time.Minute)
	f.detector.SetIdle(window.IdleInfo{IsLocked: true})
	f.tick(t)

	current, open := f.engine.Breaks.CurrentBreak()
	require.True(t, open)
	assert.Equal(t, breaks.DescriptionSystemLocked, current.Description)
	assert.Equal(t, nine.Add(time.Minute), current.StartedAt)

	f.tickEveryMinuteUntil(t, nine.Add(30*time.Minute))
	f.detector.SetIdle(window.IdleInfo{})
	f.clock.Advance(time.Minute)
	f.tick(t)

	_, open = f.engine.Breaks.CurrentBreak()
	assert.False(t, open)
	assert.Equal(t, 30*time.Minute, f.engine.Today().TimeOfAllBreaks())

	// the focus signal after unlocking does not split the activity
	current2, ok := f.engine.Activities.GetCurrentActivity()
	require.True(t, ok)
	assert.Equal(t, nine, current2.StartedAt)
}

func TestService_ErrorsAreStored(t *testing.T) {
	f := newFixture(t)
	f.detector.SetWindowError(errors.New("display gone"))

	err := f.service.Tick(context.Background())
	require.Error(t, err)

	f.service.tickAndLog(context.Background())
	logs, err := f.repo.RecentErrors(10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "tracker", logs[0].Component)
	assert.Contains(t, logs[0].ErrorMsg, "display gone")
}

func TestService_ReplaySeedsLedger(t *testing.T) {
	f := newFixture(t)

	f.detector.SetWindow("code", "")
	f.tick(t)
	f.clock.Advance(45 * time.Minute)
	f.engine.Activities.Stop(f.clock.Now())

	restarted := NewEngine(workday.DefaultDefinition(), 5*time.Minute, f.clock, f.repo, breaks.NewMemoryStore(), zerolog.Nop())
	assert.Equal(t, time.Duration(0), restarted.Today().TimeAlreadyActivelyWorked())

	w, err := restarted.Replay(nine)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, w.TimeAlreadyActivelyWorked())
	assert.Equal(t, 45*time.Minute, restarted.Today().TimeAlreadyActivelyWorked())
}

func TestService_StartStop(t *testing.T) {
	f := newFixture(t)
	f.service.opts.PollInterval = 10 * time.Millisecond
	f.detector.SetWindow("code", "")

	done := make(chan error, 1)
	go func() { done <- f.service.Start(context.Background()) }()

	require.Eventually(t, f.service.IsRunning, time.Second, 5*time.Millisecond)
	assert.Error(t, f.service.Start(context.Background()), "already running")

	f.clock.Advance(time.Hour)
	f.service.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.False(t, f.service.IsRunning())

	stored, err := f.repo.ActivitiesOn(nine)
	require.NoError(t, err)
	require.Len(t, stored, 1, "the open activity is flushed on stop")
}

func TestService_RolloverPrunesSignals(t *testing.T) {
	f := newFixture(t)
	f.service.opts.RetentionDays = 1

	f.detector.SetWindow("code", "")
	f.tick(t)

	f.clock.Set(nine.AddDate(0, 0, 2))
	f.tick(t)

	signals, err := f.repo.SignalsBetween(nine.AddDate(0, 0, -1), nine.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}

func TestService_ActivityCarriesOverMidnight(t *testing.T) {
	f := newFixture(t)
	evening := time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)
	nextDay := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	f.clock.Set(evening)
	f.detector.SetWindow("code", "main.go")
	f.tick(t)
	f.tickEveryMinuteUntil(t, nextDay.Add(time.Hour))

	current, ok := f.engine.Activities.GetCurrentActivity()
	require.True(t, ok, "work in the same application goes on after midnight")
	assert.Equal(t, nextDay, current.StartedAt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(f.service.Start(ctx), context.Canceled))

	stored, err := f.repo.ActivitiesOn(nextDay)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, time.Hour, stored[0].Duration())
	assert.Equal(t, time.Hour, f.engine.Today().TimeAlreadyActivelyWorked())

	previous, err := f.repo.ActivitiesOn(evening)
	require.NoError(t, err)
	require.Len(t, previous, 1)
	assert.InDelta(t, float64(time.Hour), float64(previous[0].Duration()), float64(time.Millisecond))
}

func TestService_StopWhileLockedEndsBreak(t *testing.T) {
	f := newFixture(t)

	f.detector.SetWindow("code", "")
	f.tick(t)
	f.tickEveryMinuteUntil(t, nine.Add(time.Hour))

	f.detector.SetIdle(window.IdleInfo{IsIdle: true, IsLocked: true})
	f.tick(t)
	_, open := f.engine.Breaks.CurrentBreak()
	require.True(t, open)

	f.clock.Set(nine.Add(2 * time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(f.service.Start(ctx), context.Canceled))

	_, open = f.engine.Breaks.CurrentBreak()
	assert.False(t, open, "the open break is ended on shutdown")

	stored, err := f.repo.BreaksOn(nine)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, time.Hour, stored[0].BreakDuration())

	today := f.engine.Today()
	assert.Equal(t, 2*time.Hour, today.TimeOfAllActivities())
	assert.Equal(t, time.Hour, today.TimeOfAllBreaks())
	assert.Equal(t, time.Hour, today.TimeAlreadyActivelyWorked())
}
