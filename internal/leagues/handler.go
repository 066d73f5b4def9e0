package leagues

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

// Handler wires HTTP endpoints for league administration.
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

// MountRoutes registers league routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(authz.PermViewLeagues))
		r.Get("/", h.list)
		r.Get("/{leagueID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(authz.PermManageLeagues))
		r.Post("/", h.create)
		r.Put("/{leagueID}", h.update)
		r.Delete("/{leagueID}", h.remove)
	})
}

type listResponse struct {
	Leagues []League          `json:"leagues"`
	Meta    shared.Pagination `json:"meta"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	meta := shared.NewPagination(page, perPage, 0)
	leagues, total, err := h.service.List(r.Context(), meta.PerPage, meta.Offset())
	if err != nil {
		h.logger.Error("list leagues", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if leagues == nil {
		leagues = []League{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Leagues: leagues, Meta: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "leagueID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid league id")
		return
	}
	league, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]League{"league": league})
}

type leagueRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=120"`
	Sport       string `json:"sport" validate:"required"`
	Description string `json:"description" validate:"max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req leagueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	league, err := h.service.Create(r.Context(), CreateInput{
		Name:        req.Name,
		Sport:       Sport(req.Sport),
		Description: req.Description,
		ActorID:     actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]League{"league": league})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "leagueID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid league id")
		return
	}
	var req leagueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	league, err := h.service.Update(r.Context(), UpdateInput{
		ID:          id,
		Name:        req.Name,
		Sport:       Sport(req.Sport),
		Description: req.Description,
		ActorID:     actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]League{"league": league})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "leagueID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid league id")
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
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "league not found")
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", "league still has seasons")
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
