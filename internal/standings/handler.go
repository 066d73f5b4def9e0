package standings

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/platform/httpx"
)

// Handler serves division standings.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz}
}

// MountRoutes registers the /standings route tree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/standings", func(r chi.Router) {
		r.Use(h.authz.RequireAny(authz.PermViewSchedule))
		r.Get("/", h.table)
	})
}

func (h *Handler) table(w http.ResponseWriter, r *http.Request) {
	divisionID, err := strconv.ParseInt(r.URL.Query().Get("division_id"), 10, 64)
	if err != nil || divisionID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "division_id query parameter required")
		return
	}
	table, err := h.service.Table(r.Context(), divisionID)
	if err != nil {
		if errors.Is(err, divisions.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "division not found")
			return
		}
		h.logger.Error("standings table", slog.Int64("division_id", divisionID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if table.Standings == nil {
		table.Standings = []Standing{}
	}
	httpx.JSON(w, http.StatusOK, map[string]Table{"standings": table})
}
