package authz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openleague/openleague/internal/shared"
)

type stubSource struct {
	contexts map[int64]Context
	err      error
}

func (s *stubSource) ContextForUser(_ context.Context, userID int64) (Context, error) {
	if s.err != nil {
		return Context{}, s.err
	}
	evalCtx, ok := s.contexts[userID]
	if !ok {
		return Context{}, ErrNotFound
	}
	return evalCtx, nil
}

func testMiddleware(src ContextSource) Middleware {
	return Middleware{
		Source: src,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func requestAs(t *testing.T, method, target string, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAnyRejectsAnonymous(t *testing.T) {
	m := testMiddleware(&stubSource{})
	handler := m.RequireAny(PermViewLeagues)(okHandler())

	// No session at all.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leagues", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Session without a user.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, requestAs(t, http.MethodGet, "/leagues", ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Corrupt user id is treated as signed out.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, requestAs(t, http.MethodGet, "/leagues", "not-a-number"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAnyAdmitsGrantedUser(t *testing.T) {
	src := &stubSource{contexts: map[int64]Context{
		7: {Role: RolePlayer},
	}}
	m := testMiddleware(src)

	rr := httptest.NewRecorder()
	m.RequireAny(PermManageGames, PermViewSchedule)(okHandler()).ServeHTTP(rr, requestAs(t, http.MethodGet, "/schedule", "7"))
	assert.Equal(t, http.StatusNoContent, rr.Code, "player holds view:schedule")

	rr = httptest.NewRecorder()
	m.RequireAny(PermManageGames, PermManageUsers)(okHandler()).ServeHTTP(rr, requestAs(t, http.MethodGet, "/admin", "7"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/problem+json")
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	src := &stubSource{contexts: map[int64]Context{
		3: {Role: RoleLeagueManager},
	}}
	m := testMiddleware(src)

	rr := httptest.NewRecorder()
	m.RequireAll(PermManageSeasons, PermManageGames)(okHandler()).ServeHTTP(rr, requestAs(t, http.MethodGet, "/seasons", "3"))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	m.RequireAll(PermManageSeasons, PermManageUsers)(okHandler()).ServeHTTP(rr, requestAs(t, http.MethodGet, "/seasons", "3"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestEmptyPermissionListPassesThrough(t *testing.T) {
	m := testMiddleware(&stubSource{})

	rr := httptest.NewRecorder()
	m.RequireAny()(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code, "no permissions means no gate")

	rr = httptest.NewRecorder()
	m.RequireAll()(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireTeamScopesToRouteParameter(t *testing.T) {
	src := &stubSource{contexts: map[int64]Context{
		11: {Role: RoleTeamCaptain, UserTeamIDs: []int64{4}},
	}}
	m := testMiddleware(src)

	r := chi.NewRouter()
	r.Route("/teams/{teamID}", func(r chi.Router) {
		r.With(m.RequireTeam("teamID", PermManageOwnTeam, PermManageTeams)).Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, requestAs(t, http.MethodGet, "/teams/4", "11"))
	assert.Equal(t, http.StatusNoContent, rr.Code, "captain manages own team")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, requestAs(t, http.MethodGet, "/teams/9", "11"))
	assert.Equal(t, http.StatusForbidden, rr.Code, "captain blocked on another team")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, requestAs(t, http.MethodGet, "/teams/abc", "11"))
	assert.Equal(t, http.StatusForbidden, rr.Code, "malformed id fails closed")
}

func TestRequireTeamAdmitsManagerWithoutMembership(t *testing.T) {
	src := &stubSource{contexts: map[int64]Context{
		2: {Role: RoleLeagueManager},
	}}
	m := testMiddleware(src)

	r := chi.NewRouter()
	r.With(m.RequireTeam("teamID", PermManageOwnTeam, PermManageTeams)).
		Get("/teams/{teamID}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, requestAs(t, http.MethodGet, "/teams/4", "2"))
	assert.Equal(t, http.StatusNoContent, rr.Code, "manage:teams covers any team")
}

func TestRequireGameScopesToRouteParameter(t *testing.T) {
	src := &stubSource{contexts: map[int64]Context{
		21: {Role: RoleReferee, AssignedGameIDs: []int64{5, 9}},
	}}
	m := testMiddleware(src)

	r := chi.NewRouter()
	r.With(m.RequireGame("gameID", PermUpdateScores, PermUpdateAssignedGameScore)).
		Post("/games/{gameID}/score", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

	rr := httptest.NewRecorder()
	req := requestAs(t, http.MethodPost, "/games/5/score", "21")
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code, "referee scores assigned game")

	rr = httptest.NewRecorder()
	req = requestAs(t, http.MethodPost, "/games/6/score", "21")
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code, "referee blocked on unassigned game")
}

func TestGuardMapsSourceErrors(t *testing.T) {
	m := testMiddleware(&stubSource{contexts: map[int64]Context{}})
	handler := m.RequireAny(PermViewLeagues)(okHandler())

	// Unknown user resolves to a closed door, not an error page.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestAs(t, http.MethodGet, "/leagues", "404"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	m = testMiddleware(&stubSource{err: errors.New("pg down")})
	rr = httptest.NewRecorder()
	m.RequireAny(PermViewLeagues)(okHandler()).ServeHTTP(rr, requestAs(t, http.MethodGet, "/leagues", "7"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGuardRecordsDecisions(t *testing.T) {
	registry := prometheus.NewRegistry()
	src := &stubSource{contexts: map[int64]Context{
		7: {Role: RolePlayer},
	}}
	m := Middleware{
		Source:  src,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: NewMetrics(registry),
	}

	rr := httptest.NewRecorder()
	m.RequireAny(PermViewSchedule)(okHandler()).ServeHTTP(rr, requestAs(t, http.MethodGet, "/schedule", "7"))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	m.RequireAny(PermManageUsers)(okHandler()).ServeHTTP(rr, requestAs(t, http.MethodGet, "/admin", "7"))
	require.Equal(t, http.StatusForbidden, rr.Code)

	scrape := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.True(t, strings.Contains(body, `openleague_authz_decisions_total{allowed="true",permission="view:schedule"} 1`), "allow not counted: %s", body)
	assert.True(t, strings.Contains(body, `openleague_authz_decisions_total{allowed="false",permission="manage:users"} 1`), "deny not counted: %s", body)
}
