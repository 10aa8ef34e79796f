package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

type countingGenerator struct {
	calls int
	text  string
	err   error
}

func (g *countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return g.text, g.err
}

func TestCached_StoresAndReusesText(t *testing.T) {
	client, mr := setupTestRedis(t)
	next := &countingGenerator{text: `{"projectName": "Shed"}`}
	c := NewCached(next, client, time.Hour)

	first, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	second, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)

	stored, err := mr.Get(CacheKey("prompt"))
	require.NoError(t, err)
	assert.Equal(t, first, stored)
	assert.Equal(t, time.Hour, mr.TTL(CacheKey("prompt")))
}

func TestCached_DifferentPromptsMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	next := &countingGenerator{text: "x"}
	c := NewCached(next, client, time.Minute)

	_, err := c.Generate(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestCached_ExpiredEntryIsRegenerated(t *testing.T) {
	client, mr := setupTestRedis(t)
	next := &countingGenerator{text: "x"}
	c := NewCached(next, client, time.Minute)

	_, err := c.Generate(context.Background(), "a")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = c.Generate(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestCached_GenerationErrorIsNotCached(t *testing.T) {
	client, mr := setupTestRedis(t)
	boom := errors.New("upstream down")
	c := NewCached(&countingGenerator{err: boom}, client, time.Minute)

	_, err := c.Generate(context.Background(), "a")

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(CacheKey("a")))
}

func TestCached_RedisDownFallsThrough(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()
	next := &countingGenerator{text: "fresh"}
	c := NewCached(next, client, time.Minute)

	text, err := c.Generate(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, "fresh", text)
	assert.Equal(t, 1, next.calls)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("same"), CacheKey("same"))
	assert.NotEqual(t, CacheKey("same"), CacheKey("other"))
	assert.Len(t, CacheKey("x"), len(cacheKeyPrefix)+64)
}

func TestCached_InvalidateForcesRegeneration(t *testing.T) {
	client, mr := setupTestRedis(t)
	next := &countingGenerator{text: "not json"}
	c := NewCached(next, client, time.Hour)

	_, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(context.Background(), "prompt"))
	assert.False(t, mr.Exists(CacheKey("prompt")))

	next.text = `{"projectName": "Shed"}`
	text, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"projectName": "Shed"}`, text)
	assert.Equal(t, 2, next.calls)
}

func TestCached_InvalidateMissingKey(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewCached(&countingGenerator{}, client, time.Hour)
	assert.NoError(t, c.Invalidate(context.Background(), "never generated"))
}

func TestCached_InvalidateRedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewCached(&countingGenerator{}, client, time.Hour)
	mr.Close()
	assert.Error(t, c.Invalidate(context.Background(), "prompt"))
}
