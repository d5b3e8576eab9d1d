// Package tokens issues short-lived download tokens that map to stored
// batch archives, so result links can be shared without exposing object keys.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "DGB:Download:"

type Manager struct {
	client redis.UniversalClient
}

func NewManager(redisClient redis.UniversalClient) *Manager {
	return &Manager{
		client: redisClient,
	}
}

// Create stores objectKey under a fresh random token with the given TTL and
// returns the token.
func (m *Manager) Create(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	if err := m.client.Set(ctx, keyPrefix+token, objectKey, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the object key a token points at. Expired or unknown
// tokens return redis.Nil.
func (m *Manager) Resolve(ctx context.Context, token string) (string, error) {
	return m.client.Get(ctx, keyPrefix+token).Result()
}

func newToken() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
