package divisions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
)

// Handler wires HTTP endpoints for division administration.
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

// MountRoutes registers division routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(authz.PermViewLeagues))
		r.Get("/", h.list)
		r.Get("/{divisionID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(authz.PermManageDivisions))
		r.Post("/", h.create)
		r.Put("/{divisionID}", h.update)
		r.Delete("/{divisionID}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	seasonID, err := strconv.ParseInt(r.URL.Query().Get("season_id"), 10, 64)
	if err != nil || seasonID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "season_id query parameter required")
		return
	}
	list, err := h.service.ListBySeason(r.Context(), seasonID)
	if err != nil {
		h.logger.Error("list divisions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if list == nil {
		list = []Division{}
	}
	httpx.JSON(w, http.StatusOK, map[string][]Division{"divisions": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "divisionID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid division id")
		return
	}
	division, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Division{"division": division})
}

type divisionRequest struct {
	SeasonID   int64  `json:"season_id"`
	Name       string `json:"name" validate:"required,min=2,max=80"`
	SkillLevel string `json:"skill_level" validate:"required"`
	MaxTeams   int    `json:"max_teams" validate:"required,min=2"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req divisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.SeasonID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "season_id required")
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	division, err := h.service.Create(r.Context(), CreateInput{
		SeasonID:   req.SeasonID,
		Name:       req.Name,
		SkillLevel: SkillLevel(req.SkillLevel),
		MaxTeams:   req.MaxTeams,
		ActorID:    actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]Division{"division": division})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "divisionID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid division id")
		return
	}
	var req divisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	division, err := h.service.Update(r.Context(), UpdateInput{
		ID:         id,
		Name:       req.Name,
		SkillLevel: SkillLevel(req.SkillLevel),
		MaxTeams:   req.MaxTeams,
		ActorID:    actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Division{"division": division})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "divisionID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid division id")
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.Delete(r.Context(), id, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "division not found")
		return
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
