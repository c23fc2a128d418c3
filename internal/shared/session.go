package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager issues bearer-token sessions backed by Redis. Login creates
// a session, logout destroys it; handlers receive the loaded session through
// the request context rather than any ambient global.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
}

// Session holds the authenticated identity for one request.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionPayload struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, ttl: ttl}
}

// Create persists a fresh session for the user and returns it.
func (sm *SessionManager) Create(ctx context.Context, userID int64, username string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Username:  username,
		IssuedAt:  now,
		ExpiresAt: now.Add(sm.ttl),
	}
	data, err := json.Marshal(sessionPayload{UserID: userID, Username: username, IssuedAt: now})
	if err != nil {
		return nil, err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.Token), data, sm.ttl).Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load resolves the bearer token from the request, if any. A missing or
// expired token yields a nil session, not an error; authz middleware decides
// whether that matters for the route.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, nil
	}
	data, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	ttl, err := sm.client.TTL(ctx, sm.redisKey(token)).Result()
	if err != nil {
		ttl = sm.ttl
	}
	return &Session{
		Token:     token,
		UserID:    stored.UserID,
		Username:  stored.Username,
		IssuedAt:  stored.IssuedAt,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Destroy removes the session from the store.
func (sm *SessionManager) Destroy(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if err := sm.client.Del(ctx, sm.redisKey(sess.Token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (sm *SessionManager) redisKey(token string) string {
	return "session:" + token
}
