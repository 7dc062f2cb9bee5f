package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCacheService(nil)
	cache.now = func() time.Time { return now }

	assert.Equal(t, "memory", cache.Backend())
	require.NoError(t, cache.Ping(ctx))

	type entry struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	require.NoError(t, cache.Set(ctx, "k", entry{Name: "a", Score: 1.5}, time.Minute))

	var got entry
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, entry{Name: "a", Score: 1.5}, got)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, cache.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, cache.SetWithRetry(ctx, "forever", 42, 0, 3))
	now = now.Add(24 * time.Hour)
	var n int
	require.NoError(t, cache.Get(ctx, "forever", &n))
	assert.Equal(t, 42, n)

	require.NoError(t, cache.Delete(ctx, "forever"))
	assert.ErrorIs(t, cache.Get(ctx, "forever", &n), ErrCacheMiss)
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("")
	require.NoError(t, err)
	assert.Nil(t, client)

	_, err = NewRedisClient("not a url")
	assert.Error(t, err)

	client, err = NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, "redis", NewCacheService(client).Backend())
	assert.NoError(t, client.Close())
}

func TestCacheKeys(t *testing.T) {
	kickoff := time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)
	derived := engine.Request{Home: "Lockdown FC", Away: "Parkbus United", CommenceTime: kickoff, Referee: "M Dean", OpponentStyle: "park"}
	explicit := derived
	explicit.MatchID = "fx1"

	assert.Equal(t, "analysis:fx1:m dean:PARK:0.00:v3", AnalysisCacheKey(explicit, 3))
	assert.Contains(t, AnalysisCacheKey(derived, 3), engine.MatchID("Lockdown FC", "Parkbus United", kickoff))
	assert.NotEqual(t, AnalysisCacheKey(explicit, 3), AnalysisCacheKey(explicit, 4))
	assert.Equal(t, "shorts:60:v1", ShortsCacheKey(60, 1))
}
