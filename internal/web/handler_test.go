package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/reporter"
	"github.com/actionsum/worktally/internal/workday"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)

type fakeEngine struct {
	ledger *workday.Ledger
	store  *breaks.MemoryStore
	clock  clock.Clock
	open   *breaks.StartedBreak
}

func (f *fakeEngine) Today() workday.Workday { return f.ledger.Get(f.clock.Now()) }

func (f *fakeEngine) RevokeBreak(id string) (breaks.RevokedBreak, error) {
	r, err := f.store.Revoke(id, f.clock.Now())
	if err != nil {
		return breaks.RevokedBreak{}, err
	}
	_, err = f.ledger.IncludeRevokedBreak(r)
	return r, err
}

func (f *fakeEngine) CurrentActivity() (activity.StartedActivity, bool) {
	return activity.StartedActivity{ID: "live", StartedAt: now.Add(-time.Minute), Application: "code"}, true
}

func (f *fakeEngine) CurrentBreak() (breaks.StartedBreak, bool) {
	if f.open == nil {
		return breaks.StartedBreak{}, false
	}
	return *f.open, true
}

type fakeSource struct {
	activities []activity.EndedActivity
	store      *breaks.MemoryStore
}

func (s *fakeSource) ActivitiesOn(date time.Time) ([]activity.EndedActivity, error) {
	var out []activity.EndedActivity
	for _, a := range s.activities {
		if clock.SameDay(date, a.StartedAt) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeSource) BreaksOn(date time.Time) ([]breaks.EndedBreak, error) {
	ended, _ := s.store.Ended()
	revoked, _ := s.store.Revoked()
	for _, r := range revoked {
		ended = append(ended, r.EndedBreak)
	}
	var out []breaks.EndedBreak
	for _, b := range ended {
		if clock.SameDay(date, b.StartedAt) {
			out = append(out, b)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeEngine) {
	t.Helper()

	clk := clock.NewFake(now)
	def := workday.DefaultDefinition()
	store := breaks.NewMemoryStore()
	ledger := workday.NewLedger(def)

	today := activity.EndedActivity{
		StartedActivity: activity.StartedActivity{ID: "a1", StartedAt: now.Add(-4 * time.Hour), Application: "code"},
		EndedAt:         now.Add(-2 * time.Hour),
	}
	yesterday := activity.EndedActivity{
		StartedActivity: activity.StartedActivity{ID: "y1", StartedAt: now.Add(-24 * time.Hour), Application: "firefox"},
		EndedAt:         now.Add(-21 * time.Hour),
	}
	b := breaks.EndedBreak{ID: "b1", StartedAt: now.Add(-3 * time.Hour), EndedAt: now.Add(-3*time.Hour + 20*time.Minute), Description: breaks.DescriptionInactivity}

	require.NoError(t, store.SaveEnded(b))
	_, err := ledger.IncludeActivity(today)
	require.NoError(t, err)
	_, err = ledger.IncludeBreak(b)
	require.NoError(t, err)

	engine := &fakeEngine{ledger: ledger, store: store, clock: clk}
	source := &fakeSource{activities: []activity.EndedActivity{today, yesterday}, store: store}
	h := NewHandler(engine, source, reporter.New(def, source, clk), clk, zerolog.Nop())
	return NewRouter(h, []string{"http://localhost:*"}, zerolog.Nop()), engine
}

func do(t *testing.T, router http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, body := do(t, router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestWorkday(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, body := do(t, router, http.MethodGet, "/api/workday")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-06", body["date"])
	assert.Equal(t, float64(100*time.Minute), body["time_already_actively_worked"])

	rec, body = do(t, router, http.MethodGet, "/api/workday?date=2024-03-05")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-05", body["date"])
	assert.Equal(t, float64(3*time.Hour), body["time_already_actively_worked"])

	rec, _ = do(t, router, http.MethodGet, "/api/workday?date=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBreaksAndRevoke(t *testing.T) {
	router, engine := newTestRouter(t)
	engine.open = &breaks.StartedBreak{ID: "open", StartedAt: now}

	rec, body := do(t, router, http.MethodGet, "/api/breaks")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["breaks"], 1)
	assert.NotNil(t, body["current"])

	rec, body = do(t, router, http.MethodPost, "/api/breaks/b1/revoke")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["revoked_at"])
	assert.Equal(t, 2*time.Hour, engine.Today().TimeAlreadyActivelyWorked())

	rec, body = do(t, router, http.MethodPost, "/api/breaks/b1/revoke")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "break not found")

	rec, _ = do(t, router, http.MethodGet, "/api/breaks/b1/revoke")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestActivities(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, body := do(t, router, http.MethodGet, "/api/activities")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["activities"], 1)
	assert.NotNil(t, body["current"])

	_, body = do(t, router, http.MethodGet, "/api/activities?date=2024-03-05")
	assert.Len(t, body["activities"], 1)
	assert.Nil(t, body["current"])
}

func TestReportAndStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, body := do(t, router, http.MethodGet, "/api/report?period=week")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["days"], 3)

	rec, _ = do(t, router, http.MethodGet, "/api/report?period=decade")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, router, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["running"])
	assert.NotNil(t, body["current_activity"])
	assert.Nil(t, body["current_break"])
}

func TestCORS(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/workday", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
