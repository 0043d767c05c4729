package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resenhas/pkg/apperr"
)

func TestIssuePairAndParse(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokens("test-secret", time.Hour, 24*time.Hour, NewMemoryRefreshStore())

	pair, err := tokens.IssuePair(ctx, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	id, err := tokens.ParseAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := tokens.ParseAccess(pair.Refresh)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, err := tokens.Refresh(ctx, pair.Access)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("refresh returns a new access token", func(t *testing.T) {
		access, err := tokens.Refresh(ctx, pair.Refresh)
		require.NoError(t, err)
		id, err := tokens.ParseAccess(access)
		require.NoError(t, err)
		assert.Equal(t, uint(42), id)
	})
}

func TestParseRejectsBadTokens(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour, time.Hour, nil)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("other-secret", time.Hour, time.Hour, nil)
		pair, err := other.IssuePair(context.Background(), 1)
		require.NoError(t, err)
		_, err = tokens.ParseAccess(pair.Access)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokens("test-secret", -time.Minute, time.Hour, nil)
		pair, err := expired.IssuePair(context.Background(), 1)
		require.NoError(t, err)
		_, err = tokens.ParseAccess(pair.Access)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{TokenType: tokenTypeAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tokens.ParseAccess(raw)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.ParseAccess("not-a-jwt")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestRevokeBlocksRefresh(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokens("test-secret", time.Hour, time.Hour, NewMemoryRefreshStore())

	pair, err := tokens.IssuePair(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(ctx, pair.Refresh))

	_, err = tokens.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	assert.NoError(t, tokens.Revoke(ctx, "garbage"))
}

func TestRefreshStores(t *testing.T) {
	redis := miniredis.RunT(t)
	redisStore := NewRedisRefreshStore(redis.Addr(), "")
	t.Cleanup(func() { _ = redisStore.Close() })
	require.NoError(t, redisStore.Ping(context.Background()))

	stores := map[string]RefreshStore{
		"memory": NewMemoryRefreshStore(),
		"redis":  redisStore,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Lookup(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Save(ctx, "jti-1", 9, time.Minute))
			id, ok, err := store.Lookup(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, uint(9), id)

			require.NoError(t, store.Delete(ctx, "jti-1"))
			_, ok, err = store.Lookup(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Delete(ctx, "jti-1"))
		})
	}

	t.Run("redis entries expire", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, redisStore.Save(ctx, "short", 1, time.Second))
		redis.FastForward(2 * time.Second)
		_, ok, err := redisStore.Lookup(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRefreshThroughRedisStore(t *testing.T) {
	ctx := context.Background()
	redis := miniredis.RunT(t)
	store := NewRedisRefreshStore(redis.Addr(), "")
	t.Cleanup(func() { _ = store.Close() })
	tokens := NewTokens("test-secret", time.Hour, time.Hour, store)

	pair, err := tokens.IssuePair(ctx, 3)
	require.NoError(t, err)
	_, err = tokens.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(ctx, pair.Refresh))
	_, err = tokens.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
