package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubRepo struct {
	users map[string]*User
}

func (r *stubRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func newTestHandler(t *testing.T) (*Handler, *shared.SessionManager) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass1"), bcrypt.DefaultCost)
	require.NoError(t, err)

	repo := &stubRepo{users: map[string]*User{
		"admin":    {ID: 1, Username: "admin", FullName: "Administrator", PasswordHash: string(hashed), IsActive: true},
		"disabled": {ID: 2, Username: "disabled", PasswordHash: string(hashed), IsActive: false},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, time.Hour)

	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	return NewHandler(logger, NewService(repo), sessions), sessions
}

func doLogin(t *testing.T, h *Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	h, sessions := newTestHandler(t)

	rec := doLogin(t, h, "admin", "correctpass1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, int64(1), resp.UserID)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "admin", sess.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doLogin(t, h, "admin", "wrongpassword")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginInactiveUser(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doLogin(t, h, "disabled", "correctpass1")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doLogin(t, h, "ghost", "correctpass1")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doLogin(t, h, "admin", "short")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	h, sessions := newTestHandler(t)

	sess, err := sessions.Create(context.Background(), 1, "admin")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	check := httptest.NewRequest("GET", "/", nil)
	check.Header.Set("Authorization", "Bearer "+sess.Token)
	loaded, err := sessions.Load(context.Background(), check)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestLogoutWithoutSession(t *testing.T) {
	h, _ := newTestHandler(t)

	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
