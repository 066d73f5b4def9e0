package brackets

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
)

// Handler wires HTTP endpoints for playoff brackets.
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

// MountRoutes registers the /brackets route tree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/brackets", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAny(authz.PermViewSchedule))
			r.Get("/", h.byDivision)
			r.Get("/{bracketID}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAny(authz.PermManageGames))
			r.Post("/", h.generate)
			r.Delete("/{bracketID}", h.remove)
			r.Post("/matches/{matchID}/advance", h.advance)
			r.Put("/matches/{matchID}/game", h.linkGame)
		})
	})
}

func (h *Handler) byDivision(w http.ResponseWriter, r *http.Request) {
	divisionID, err := strconv.ParseInt(r.URL.Query().Get("division_id"), 10, 64)
	if err != nil || divisionID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "division_id query parameter required")
		return
	}
	detail, err := h.service.ByDivision(r.Context(), divisionID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "bracketID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bracket id")
		return
	}
	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

type generateRequest struct {
	DivisionID int64  `json:"division_id" validate:"required,min=1"`
	Name       string `json:"name" validate:"max=80"`
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
	detail, err := h.service.Generate(r.Context(), GenerateInput{
		DivisionID: req.DivisionID,
		Name:       req.Name,
		ActorID:    actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, detail)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "bracketID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bracket id")
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.Delete(r.Context(), id, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type advanceRequest struct {
	WinnerID int64 `json:"winner_id" validate:"required,min=1"`
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "matchID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid match id")
		return
	}
	var req advanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	match, err := h.service.Advance(r.Context(), AdvanceInput{MatchID: id, WinnerID: req.WinnerID, ActorID: actorID})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Match{"match": match})
}

type linkGameRequest struct {
	GameID int64 `json:"game_id" validate:"required,min=1"`
}

func (h *Handler) linkGame(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "matchID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid match id")
		return
	}
	var req linkGameRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	match, err := h.service.LinkGame(r.Context(), LinkInput{MatchID: id, GameID: req.GameID, ActorID: actorID})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Match{"match": match})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bracket not found")
	case errors.Is(err, ErrMatchNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "match not found")
	case errors.Is(err, divisions.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "division not found")
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
