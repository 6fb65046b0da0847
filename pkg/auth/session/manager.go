package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/config"
	redisclient "github.com/angelmondragon/carrental-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// record is the JSON value stored under the access session key.
type record struct {
	UserID       uuid.UUID `json:"user_id"`
	RefreshToken string    `json:"refresh_token"`
}

// Issued is a freshly stored session.
type Issued struct {
	AccessID     string
	RefreshToken string
}

// Manager stores refresh sessions keyed by the jti of the access token they belong to.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	if accessTTL := cfg.AccessTokenTTL(); ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// Generate opens a new session for userID and returns its access id and refresh token.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID) (Issued, error) {
	if userID == uuid.Nil {
		return Issued{}, fmt.Errorf("user id is required")
	}
	return m.issue(ctx, userID)
}

// Rotate validates the refresh token presented for oldAccessID, replaces the session, and
// returns the new pair. The session must belong to userID.
func (m *Manager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (Issued, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Issued{}, ErrInvalidRefreshToken
	}

	key := m.keyer.AccessSessionKey(oldAccessID)
	rec, err := m.load(ctx, key)
	if err != nil {
		return Issued{}, err
	}
	if rec.UserID != userID {
		return Issued{}, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(rec.RefreshToken), []byte(provided)) != 1 {
		return Issued{}, ErrInvalidRefreshToken
	}

	issued, err := m.issue(ctx, userID)
	if err != nil {
		return Issued{}, err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return Issued{}, err
	}
	return issued, nil
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// HasSession reports whether the access ID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Manager) issue(ctx context.Context, userID uuid.UUID) (Issued, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return Issued{}, err
	}
	accessID := uuid.NewString()
	raw, err := json.Marshal(record{UserID: userID, RefreshToken: token})
	if err != nil {
		return Issued{}, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return Issued{}, err
	}
	return Issued{AccessID: accessID, RefreshToken: token}, nil
}

func (m *Manager) load(ctx context.Context, key string) (record, error) {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return record{}, ErrInvalidRefreshToken
		}
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
