package shared

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, time.Hour)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	sm := newTestSessionManager(t)

	sess, err := sm.Create(ctx, 42, "reza")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Equal(t, int64(42), sess.UserID)

	req := httptest.NewRequest("GET", "/api/v1/sales", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)

	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, int64(42), loaded.UserID)
	require.Equal(t, "reza", loaded.Username)

	require.NoError(t, sm.Destroy(ctx, loaded))

	gone, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestSessionLoadWithoutToken(t *testing.T) {
	ctx := context.Background()
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, sess)

	req.Header.Set("Authorization", "Basic abc")
	sess, err = sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestSessionUnknownTokenIsNil(t *testing.T) {
	ctx := context.Background()
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer does-not-exist")

	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestContextSession(t *testing.T) {
	sess := &Session{Token: "tok", UserID: 7}
	ctx := ContextWithSession(context.Background(), sess)
	require.Equal(t, sess, SessionFromContext(ctx))
	require.Nil(t, SessionFromContext(context.Background()))
}

func TestPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 20, p.Offset())

	defaults := NewPagination(0, 0, 5)
	require.Equal(t, 1, defaults.Page)
	require.Equal(t, 20, defaults.PerPage)
	require.Equal(t, 0, defaults.Offset())
}
