package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
)

// Handler exposes the caller's effective permissions so the client can gate
// its controls without guessing.
type Handler struct {
	logger *slog.Logger
	source ContextSource
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, source ContextSource) *Handler {
	return &Handler{logger: logger, source: source}
}

// MountRoutes registers authz routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.listPermissions)
}

type permissionsResponse struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

// listPermissions returns UserPermissions for the session user. The optional
// team_id and game_id query parameters scope the context, letting the client
// probe e.g. "can I manage team 7".
func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.CurrentUserID(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}

	evalCtx, err := h.source.ContextForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "account unavailable")
			return
		}
		h.logger.Error("authz list permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	evalCtx.TeamID = queryID(r, "team_id")
	evalCtx.GameID = queryID(r, "game_id")

	httpx.JSON(w, http.StatusOK, permissionsResponse{
		Role:        evalCtx.Role,
		Permissions: UserPermissions(evalCtx),
	})
}

func queryID(r *http.Request, name string) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
