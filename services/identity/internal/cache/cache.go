// Package cache keeps session lookups and revoked access tokens in Redis.
// A Cache built without a client is a no-op: lookups miss and nothing is
// blacklisted.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type SessionUser struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Image *string  `json:"image"`
	Roles []string `json:"roles"`
}

type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: rdb, ttl: ttl}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.redis != nil
}

// Revoke blacklists the access token jti until it would have expired anyway.
func (c *Cache) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if !c.Enabled() || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return c.redis.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

func (c *Cache) Revoked(ctx context.Context, jti string) (bool, error) {
	if !c.Enabled() || jti == "" {
		return false, nil
	}
	n, err := c.redis.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Cache) GetSession(ctx context.Context, userID string) (SessionUser, bool, error) {
	if !c.Enabled() {
		return SessionUser{}, false, nil
	}
	value, err := c.redis.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return SessionUser{}, false, nil
	}
	if err != nil {
		return SessionUser{}, false, err
	}
	var user SessionUser
	if err := json.Unmarshal([]byte(value), &user); err != nil {
		return SessionUser{}, false, err
	}
	return user, true, nil
}

func (c *Cache) PutSession(ctx context.Context, user SessionUser) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, sessionKey(user.ID), data, c.ttl).Err()
}

func (c *Cache) ForgetSession(ctx context.Context, userID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.redis.Del(ctx, sessionKey(userID)).Err()
}

func revokedKey(jti string) string {
	return fmt.Sprintf("identity:revoked:%s", jti)
}

func sessionKey(userID string) string {
	return fmt.Sprintf("identity:session:%s", userID)
}
