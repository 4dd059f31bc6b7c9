package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*Cache{nil, New(nil, time.Minute)} {
		assert.False(t, c.Enabled())
		assert.NoError(t, c.Revoke(ctx, "jti", time.Now().Add(time.Hour)))
		revoked, err := c.Revoked(ctx, "jti")
		assert.NoError(t, err)
		assert.False(t, revoked)
		_, ok, err := c.GetSession(ctx, "u-1")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, c.PutSession(ctx, SessionUser{ID: "u-1"}))
		assert.NoError(t, c.ForgetSession(ctx, "u-1"))
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("IDENTITY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set IDENTITY_TEST_REDIS_ADDR to run")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	c := New(rdb, time.Minute)
	jti := uuid.NewString()

	require.NoError(t, c.Revoke(ctx, jti, time.Now().Add(time.Minute)))
	revoked, err := c.Revoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, c.Revoke(ctx, "expired-"+jti, time.Now().Add(-time.Minute)))
	revoked, err = c.Revoked(ctx, "expired-"+jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	user := SessionUser{ID: jti, Email: "guru@srialkhairiah.my", Name: "Cikgu", Roles: []string{"teacher"}}
	require.NoError(t, c.PutSession(ctx, user))
	got, ok, err := c.GetSession(ctx, jti)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user, got)

	require.NoError(t, c.ForgetSession(ctx, jti))
	_, ok, err = c.GetSession(ctx, jti)
	require.NoError(t, err)
	assert.False(t, ok)
}
