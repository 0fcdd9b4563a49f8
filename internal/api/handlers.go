package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/ascend/internal/achievement"
	"github.com/hyperengineering/ascend/internal/progression"
	"github.com/hyperengineering/ascend/internal/types"
	"github.com/hyperengineering/ascend/internal/validation"
)

// MaxEventsPageSize bounds the events listing.
const MaxEventsPageSize = 500

// Engine is the progression surface the handlers drive.
type Engine interface {
	Registry() *achievement.Registry
	Profile(ctx context.Context, userID string) (types.Profile, error)
	ApplyXP(ctx context.Context, userID string, delta int) (progression.Change, error)
	ApplyHP(ctx context.Context, userID string, delta int) (progression.Change, error)
	OpenApp(ctx context.Context, userID string, date types.Date) (progression.OpenResult, error)
	CreateHabit(ctx context.Context, userID string, req types.CreateHabitRequest) (types.HabitDefinition, error)
	ListHabits(ctx context.Context, userID string, includeArchived bool) ([]types.HabitDefinition, error)
	ArchiveHabit(ctx context.Context, userID, habitID string) error
	SetHabitStatus(ctx context.Context, userID, habitID string, date types.Date, status types.HabitStatus) (progression.HabitStatusResult, error)
	Achievements(ctx context.Context, userID string) ([]progression.AchievementStatus, error)
	Events(ctx context.Context, userID, afterID string, limit int) ([]types.Event, error)
}

// SchemaReporter reports the applied migration version.
type SchemaReporter interface {
	SchemaVersion(ctx context.Context) (int64, error)
}

// Handler implements the API handlers
type Handler struct {
	engine  Engine
	schema  SchemaReporter
	apiKey  string
	version string
}

// NewHandler creates a new Handler.
func NewHandler(e Engine, schema SchemaReporter, apiKey, version string) *Handler {
	return &Handler{
		engine:  e,
		schema:  schema,
		apiKey:  apiKey,
		version: version,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}

// decodeJSON decodes the request body into v. An empty body leaves v
// untouched when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
	return false
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	version, err := h.schema.SchemaVersion(r.Context())
	if err != nil {
		slog.Error("health check failed", "component", "api", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Achievements:  h.engine.Registry().Len(),
		SchemaVersion: version,
	})
}

// Registry handles GET /api/v1/achievements
func (h *Handler) Registry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Registry().All())
}

// GetProfile handles GET /api/v1/users/{userID}/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Profile(r.Context(), MustUserIDFromContext(r.Context()))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ApplyXP handles POST /api/v1/users/{userID}/profile/xp
func (h *Handler) ApplyXP(w http.ResponseWriter, r *http.Request) {
	h.applyDelta(w, r, h.engine.ApplyXP)
}

// ApplyHP handles POST /api/v1/users/{userID}/profile/hp
func (h *Handler) ApplyHP(w http.ResponseWriter, r *http.Request) {
	h.applyDelta(w, r, h.engine.ApplyHP)
}

func (h *Handler) applyDelta(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, int) (progression.Change, error)) {
	var req types.DeltaRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if verr := validation.ValidateDelta("delta", req.Delta); verr != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*verr})
		return
	}

	change, err := apply(r.Context(), MustUserIDFromContext(r.Context()), req.Delta)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// OpenApp handles POST /api/v1/users/{userID}/open
func (h *Handler) OpenApp(w http.ResponseWriter, r *http.Request) {
	var req types.OpenAppRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if errs := validation.ValidateOpenAppRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	var date types.Date
	if req.Date != "" {
		date, _ = types.ParseDate(req.Date)
	}
	res, err := h.engine.OpenApp(r.Context(), MustUserIDFromContext(r.Context()), date)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListHabits handles GET /api/v1/users/{userID}/habits
func (h *Handler) ListHabits(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	habits, err := h.engine.ListHabits(r.Context(), MustUserIDFromContext(r.Context()), includeArchived)
	if err != nil {
		MapError(w, r, err)
		return
	}
	if habits == nil {
		habits = []types.HabitDefinition{}
	}
	writeJSON(w, http.StatusOK, habits)
}

// CreateHabit handles POST /api/v1/users/{userID}/habits
func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var req types.CreateHabitRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateCreateHabitRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	habit, err := h.engine.CreateHabit(r.Context(), MustUserIDFromContext(r.Context()), req)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

// habitIDParam validates the {habitID} path parameter.
func habitIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "habitID")
	if verr := validation.ValidateULID("habitID", id); verr != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid habit ID: "+verr.Message)
		return "", false
	}
	return id, true
}

// ArchiveHabit handles DELETE /api/v1/users/{userID}/habits/{habitID}
func (h *Handler) ArchiveHabit(w http.ResponseWriter, r *http.Request) {
	habitID, ok := habitIDParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.ArchiveHabit(r.Context(), MustUserIDFromContext(r.Context()), habitID); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetHabitStatus handles PUT /api/v1/users/{userID}/habits/{habitID}/logs/{date}
func (h *Handler) SetHabitStatus(w http.ResponseWriter, r *http.Request) {
	habitID, ok := habitIDParam(w, r)
	if !ok {
		return
	}
	date, err := types.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid date: must be YYYY-MM-DD")
		return
	}

	var req types.HabitStatusRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateHabitStatusRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	res, err := h.engine.SetHabitStatus(r.Context(), MustUserIDFromContext(r.Context()), habitID, date, types.HabitStatus(req.Status))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListAchievements handles GET /api/v1/users/{userID}/achievements
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.engine.Achievements(r.Context(), MustUserIDFromContext(r.Context()))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// ListEvents handles GET /api/v1/users/{userID}/events?after=&limit=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after := q.Get("after")
	if after != "" {
		if verr := validation.ValidateULID("after", after); verr != nil {
			WriteProblem(w, r, http.StatusBadRequest, "Invalid after: "+verr.Message)
			return
		}
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxEventsPageSize {
			WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid limit: must be between 1 and %d", MaxEventsPageSize))
			return
		}
		limit = n
	}

	events, err := h.engine.Events(r.Context(), MustUserIDFromContext(r.Context()), after, limit)
	if err != nil {
		MapError(w, r, err)
		return
	}
	if events == nil {
		events = []types.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
