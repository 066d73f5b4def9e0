package seasons

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

// Handler wires HTTP endpoints for season administration.
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

// MountRoutes registers season routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(authz.PermViewLeagues))
		r.Get("/", h.list)
		r.Get("/{seasonID}", h.get)
		r.Get("/{seasonID}/weeks", h.weeks)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(authz.PermManageSeasons))
		r.Post("/", h.create)
		r.Put("/{seasonID}", h.update)
		r.Post("/{seasonID}/transition", h.transition)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	leagueID, err := strconv.ParseInt(r.URL.Query().Get("league_id"), 10, 64)
	if err != nil || leagueID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "league_id query parameter required")
		return
	}
	seasons, err := h.service.ListByLeague(r.Context(), leagueID)
	if err != nil {
		h.logger.Error("list seasons", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if seasons == nil {
		seasons = []Season{}
	}
	httpx.JSON(w, http.StatusOK, map[string][]Season{"seasons": seasons})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "seasonID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid season id")
		return
	}
	season, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Season{"season": season})
}

type weeksResponse struct {
	Season Season `json:"season"`
	Weeks  []Week `json:"weeks"`
}

func (h *Handler) weeks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "seasonID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid season id")
		return
	}
	season, weeks, err := h.service.Weeks(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if weeks == nil {
		weeks = []Week{}
	}
	httpx.JSON(w, http.StatusOK, weeksResponse{Season: season, Weeks: weeks})
}

type seasonRequest struct {
	LeagueID             int64  `json:"league_id" validate:"required,gt=0"`
	Name                 string `json:"name" validate:"required,min=3,max=120"`
	StartDate            string `json:"start_date" validate:"required"`
	EndDate              string `json:"end_date" validate:"required"`
	RegistrationDeadline string `json:"registration_deadline"`
}

func (req seasonRequest) dates() (start, end, deadline time.Time, err error) {
	start, err = time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return
	}
	end, err = time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return
	}
	if req.RegistrationDeadline != "" {
		deadline, err = time.Parse("2006-01-02", req.RegistrationDeadline)
	}
	return
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req seasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, end, deadline, err := req.dates()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must use YYYY-MM-DD")
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	season, err := h.service.Create(r.Context(), CreateInput{
		LeagueID:             req.LeagueID,
		Name:                 req.Name,
		StartDate:            start,
		EndDate:              end,
		RegistrationDeadline: deadline,
		ActorID:              actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]Season{"season": season})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "seasonID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid season id")
		return
	}
	var req seasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	// league_id is immutable; ignore it on update but keep the shared shape.
	req.LeagueID = 1
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, end, deadline, err := req.dates()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must use YYYY-MM-DD")
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	season, err := h.service.Update(r.Context(), UpdateInput{
		ID:                   id,
		Name:                 req.Name,
		StartDate:            start,
		EndDate:              end,
		RegistrationDeadline: deadline,
		ActorID:              actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Season{"season": season})
}

type transitionRequest struct {
	Status   string `json:"status" validate:"required"`
	Override bool   `json:"override"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "seasonID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid season id")
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
	season, err := h.service.Transition(r.Context(), id, Status(req.Status), req.Override, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Season{"season": season})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "season not found")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", "season status transition not allowed")
	default:
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
