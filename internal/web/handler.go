package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/actionsum/worktally/internal/activity"
	"github.com/actionsum/worktally/internal/breaks"
	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/reporter"
	"github.com/actionsum/worktally/internal/workday"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Engine is the live tracker state served by the API
type Engine interface {
	Today() workday.Workday
	RevokeBreak(id string) (breaks.RevokedBreak, error)
	CurrentActivity() (activity.StartedActivity, bool)
	CurrentBreak() (breaks.StartedBreak, bool)
}

// Handler serves the JSON API
type Handler struct {
	engine   Engine
	source   reporter.Source
	reporter *reporter.Reporter
	clock    clock.Clock
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a handler. Past days are read from source.
func NewHandler(engine Engine, source reporter.Source, rep *reporter.Reporter, clk clock.Clock, log zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		source:   source,
		reporter: rep,
		clock:    clk,
		validate: validator.New(),
		log:      log,
	}
}

type dateQuery struct {
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

type reportQuery struct {
	Period string `validate:"omitempty,oneof=day today week month"`
}

type breakPath struct {
	ID string `validate:"required,max=64"`
}

// parseDate returns the requested day, or today when absent
func (h *Handler) parseDate(r *http.Request) (time.Time, bool, error) {
	q := dateQuery{Date: r.URL.Query().Get("date")}
	if err := h.validate.Struct(q); err != nil {
		return time.Time{}, false, errors.Wrap(err, "invalid date")
	}

	now := h.clock.Now()
	if q.Date == "" {
		return now, true, nil
	}
	date, err := time.ParseInLocation(dateLayout, q.Date, now.Location())
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "invalid date")
	}
	return date, clock.SameDay(now, date), nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.clock.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"running": true,
		"workday": h.engine.Today().Summary(),
	}
	if a, ok := h.engine.CurrentActivity(); ok {
		status["current_activity"] = a
	}
	if b, ok := h.engine.CurrentBreak(); ok {
		status["current_break"] = b
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleWorkday(w http.ResponseWriter, r *http.Request) {
	date, today, err := h.parseDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if today {
		respondJSON(w, http.StatusOK, h.engine.Today())
		return
	}

	report, err := h.reporter.Day(date)
	if err != nil {
		h.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report.Workday)
}

func (h *Handler) handleActivities(w http.ResponseWriter, r *http.Request) {
	date, today, err := h.parseDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ended, err := h.source.ActivitiesOn(date)
	if err != nil {
		h.internalError(w, err)
		return
	}

	body := map[string]any{"date": date.Format(dateLayout), "activities": ended}
	if today {
		if a, ok := h.engine.CurrentActivity(); ok {
			body["current"] = a
		}
	}
	respondJSON(w, http.StatusOK, body)
}

func (h *Handler) handleBreaks(w http.ResponseWriter, r *http.Request) {
	date, today, err := h.parseDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	all, err := h.source.BreaksOn(date)
	if err != nil {
		h.internalError(w, err)
		return
	}

	body := map[string]any{"date": date.Format(dateLayout), "breaks": all}
	if today {
		if b, ok := h.engine.CurrentBreak(); ok {
			body["current"] = b
		}
	}
	respondJSON(w, http.StatusOK, body)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	p := breakPath{ID: chi.URLParam(r, "id")}
	if err := h.validate.Struct(p); err != nil {
		respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid break id"))
		return
	}

	revoked, err := h.engine.RevokeBreak(p.ID)
	switch {
	case errors.Is(err, breaks.ErrBreakNotFound):
		respondError(w, http.StatusNotFound, err)
		return
	case err != nil:
		h.internalError(w, err)
		return
	}

	h.log.Info().Str("break_id", p.ID).Msg("break revoked via api")
	respondJSON(w, http.StatusOK, revoked)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	q := reportQuery{Period: r.URL.Query().Get("period")}
	if err := h.validate.Struct(q); err != nil {
		respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid period"))
		return
	}

	report, err := h.reporter.Generate(q.Period)
	if err != nil {
		h.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("request failed")
	respondError(w, http.StatusInternalServerError, err)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
