package games

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
)

// Handler wires HTTP endpoints for the schedule, referee assignments, and
// score submission.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz, validator: validator.New()}
}

// MountRoutes registers the /games route tree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/games", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAny(authz.PermViewSchedule))
			r.Get("/", h.list)
			r.Get("/{gameID}", h.get)
			r.Get("/{gameID}/assignments", h.assignments)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAny(authz.PermManageGames))
			r.Post("/", h.create)
			r.Post("/generate", h.generate)
			r.Put("/{gameID}", h.reschedule)
			r.Post("/{gameID}/status", h.transition)
			r.Post("/{gameID}/assignments", h.assign)
			r.Delete("/{gameID}/assignments/{userID}", h.unassign)
			r.Get("/{gameID}/score/history", h.scoreHistory)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireGame("gameID", authz.PermUpdateScores, authz.PermUpdateAssignedGameScore))
			r.Post("/{gameID}/score", h.submitScore)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	divisionID, err := strconv.ParseInt(r.URL.Query().Get("division_id"), 10, 64)
	if err != nil || divisionID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "division_id query parameter required")
		return
	}
	if raw := r.URL.Query().Get("week"); raw != "" {
		week, err := strconv.Atoi(raw)
		if err != nil || week <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid week")
			return
		}
		list, err := h.service.ListWeek(r.Context(), divisionID, week)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string][]Game{"games": emptyIfNil(list)})
		return
	}
	f := Filter{DivisionID: divisionID, Status: Status(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("team_id"); raw != "" {
		teamID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || teamID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid team_id")
			return
		}
		f.TeamID = teamID
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from must be RFC 3339")
			return
		}
		f.From = from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "to must be RFC 3339")
			return
		}
		f.To = to
	}
	list, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list games", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string][]Game{"games": emptyIfNil(list)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "gameID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid game id")
		return
	}
	game, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Game{"game": game})
}

func (h *Handler) assignments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "gameID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid game id")
		return
	}
	list, err := h.service.Assignments(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if list == nil {
		list = []Assignment{}
	}
	httpx.JSON(w, http.StatusOK, map[string][]Assignment{"assignments": list})
}

type createRequest struct {
	DivisionID  int64     `json:"division_id" validate:"required,min=1"`
	HomeTeamID  int64     `json:"home_team_id" validate:"required,min=1"`
	AwayTeamID  int64     `json:"away_team_id" validate:"required,min=1"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Location    string    `json:"location" validate:"max=120"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	game, err := h.service.Create(r.Context(), CreateInput{
		DivisionID:  req.DivisionID,
		HomeTeamID:  req.HomeTeamID,
		AwayTeamID:  req.AwayTeamID,
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
		ActorID:     actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]Game{"game": game})
}

type generateRequest struct {
	DivisionID int64  `json:"division_id" validate:"required,min=1"`
	Location   string `json:"location" validate:"max=120"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	created, err := h.service.GenerateSchedule(r.Context(), GenerateInput{
		DivisionID: req.DivisionID,
		Location:   req.Location,
		ActorID:    actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int{"games": created})
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Location    string    `json:"location" validate:"max=120"`
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "gameID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid game id")
		return
	}
	var req rescheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	game, err := h.service.Reschedule(r.Context(), id, req.ScheduledAt, req.Location, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Game{"game": game})
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "gameID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid game id")
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	game, err := h.service.Transition(r.Context(), id, Status(req.Status), actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Game{"game": game})
}

type assignRequest struct {
	UserID   int64  `json:"user_id" validate:"required,min=1"`
	Position string `json:"position" validate:"max=40"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "gameID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid game id")
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.Assign(r.Context(), id, req.UserID, req.Position, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(r, "gameID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid game id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.Unassign(r.Context(), gameID, userID, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scoreRequest struct {
	HomeScore *int `json:"home_score" validate:"required"`
	AwayScore *int `json:"away_score" validate:"required"`
}

func (h *Handler) submitScore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "gameID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid game id")
		return
	}
	var req scoreRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	game, err := h.service.SubmitScore(r.Context(), SubmitScoreInput{
		GameID:         id,
		HomeScore:      *req.HomeScore,
		AwayScore:      *req.AwayScore,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		ActorID:        actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Game{"game": game})
}

func (h *Handler) scoreHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "gameID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid game id")
		return
	}
	entries, err := h.service.ScoreHistory(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if entries == nil {
		entries = []shared.AuditLog{}
	}
	httpx.JSON(w, http.StatusOK, map[string][]shared.AuditLog{"history": entries})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "game not found")
	case errors.Is(err, ErrAssignmentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "assignment not found")
	default:
		httpx.RespondError(w, err)
	}
}

func emptyIfNil(list []Game) []Game {
	if list == nil {
		return []Game{}
	}
	return list
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
