package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/openleague/openleague/internal/auth"
	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/shared"
	_ "github.com/openleague/openleague/internal/testing/guard"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(discardLogger(), auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func captainUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           1,
		Email:        "captain@test.local",
		Name:         "Pat Captain",
		PasswordHash: string(hashed),
		Role:         authz.RoleTeamCaptain,
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: captainUser(t)})

	body := `{"email":"captain@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	var parsed struct {
		User struct {
			ID   int64  `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if parsed.User.ID != 1 || parsed.User.Role != "team_captain" {
		t.Fatalf("unexpected user payload: %+v", parsed.User)
	}
	if parsed.CSRFToken == "" {
		t.Fatalf("expected fresh csrf token")
	}
	if sess.User() != "1" {
		t.Fatalf("session user not set, got %q", sess.User())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: captainUser(t)})

	body := `{"email":"captain@test.local","password":"wrongpass1"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("session user should stay empty on failed login")
	}
	if !strings.Contains(res.Body.String(), "invalid email or password") {
		t.Fatalf("expected error detail in response: %s", res.Body.String())
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	user := captainUser(t)
	user.IsActive = false
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: user})

	body := `{"email":"captain@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", res.Code)
	}
}

func TestMe(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: captainUser(t)})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("1")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.MeForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "captain@test.local") {
		t.Fatalf("expected user email in body: %s", res.Body.String())
	}

	// Without a signed-in session the endpoint refuses.
	anonReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	anonRes := httptest.NewRecorder()
	handler.MeForTest(anonRes, anonReq)
	if anonRes.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", anonRes.Code)
	}
}
