package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
)

// ContextSource resolves the evaluation context for an authenticated user.
type ContextSource interface {
	ContextForUser(ctx context.Context, userID int64) (Context, error)
}

// Middleware wires permission checks into HTTP routes. Each guard resolves
// the session user, loads their facts once, and evaluates against the static
// role table.
type Middleware struct {
	Source  ContextSource
	Logger  *slog.Logger
	Metrics *Metrics
}

// RequireAny admits the request when the user holds at least one of perms.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return m.guard("", "", perms)
}

// RequireAll admits the request only when the user holds every permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			evalCtx, ok := m.resolve(w, r, "", "")
			if !ok {
				return
			}
			for _, p := range perms {
				allowed := HasPermission(evalCtx, p)
				m.Metrics.Observe(p, allowed)
				if !allowed {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission "+string(p))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTeam scopes the check to the team named by the route parameter.
// Mount inside a chi Route carrying the parameter, e.g.
// r.Route("/{teamID}", ...) with RequireTeam("teamID", PermManageOwnTeam,
// PermManageTeams).
func (m Middleware) RequireTeam(param string, perms ...Permission) func(http.Handler) http.Handler {
	return m.guard(param, "", perms)
}

// RequireGame scopes the check to the game named by the route parameter.
func (m Middleware) RequireGame(param string, perms ...Permission) func(http.Handler) http.Handler {
	return m.guard("", param, perms)
}

func (m Middleware) guard(teamParam, gameParam string, perms []Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			evalCtx, ok := m.resolve(w, r, teamParam, gameParam)
			if !ok {
				return
			}
			for _, p := range perms {
				allowed := HasPermission(evalCtx, p)
				m.Metrics.Observe(p, allowed)
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
		})
	}
}

// resolve loads the caller's evaluation context, filling the acted-upon IDs
// from route parameters when requested. A false return means the response
// has been written.
func (m Middleware) resolve(w http.ResponseWriter, r *http.Request, teamParam, gameParam string) (Context, bool) {
	userID, ok := shared.CurrentUserID(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return Context{}, false
	}
	evalCtx, err := m.Source.ContextForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "account unavailable")
			return Context{}, false
		}
		if m.Logger != nil {
			m.Logger.Error("authz resolve context", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return Context{}, false
	}
	if teamParam != "" {
		evalCtx.TeamID = paramID(r, teamParam)
	}
	if gameParam != "" {
		evalCtx.GameID = paramID(r, gameParam)
	}
	return evalCtx, true
}

// paramID parses a numeric route parameter; malformed values stay zero so
// scoped qualifiers fail closed.
func paramID(r *http.Request, name string) int64 {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
