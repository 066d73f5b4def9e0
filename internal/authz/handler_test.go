package authz

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(src ContextSource) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), src)
	r := chi.NewRouter()
	r.Route("/authz", h.MountRoutes)
	return r
}

func TestListPermissionsRequiresSession(t *testing.T) {
	router := testHandler(&stubSource{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/authz/permissions", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListPermissionsReturnsEffectiveSet(t *testing.T) {
	src := &stubSource{contexts: map[int64]Context{
		11: {Role: RoleTeamCaptain, UserTeamIDs: []int64{4}},
	}}
	router := testHandler(src)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, requestAs(t, http.MethodGet, "/authz/permissions?team_id=4", "11"))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp permissionsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, RoleTeamCaptain, resp.Role)
	assert.Contains(t, resp.Permissions, PermManageOwnTeam)
	assert.Contains(t, resp.Permissions, PermInviteToTeam)

	// Without a team scope, the team-bound grants drop out.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestAs(t, http.MethodGet, "/authz/permissions", "11"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotContains(t, resp.Permissions, PermManageOwnTeam)
	assert.Contains(t, resp.Permissions, PermViewSchedule)
}

func TestListPermissionsUnknownUser(t *testing.T) {
	router := testHandler(&stubSource{contexts: map[int64]Context{}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, requestAs(t, http.MethodGet, "/authz/permissions", "99"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
