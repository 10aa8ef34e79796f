package generate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const cacheKeyPrefix = "costestimator:genai:"

// Cached stores generated text in Redis keyed by the prompt digest.
// Redis failures are logged and the wrapped Generator is called as if the cache were empty.
type Cached struct {
	next   Generator
	client redis.Cmdable
	ttl    time.Duration
}

func NewCached(next Generator, client redis.Cmdable, ttl time.Duration) *Cached {
	return &Cached{next: next, client: client, ttl: ttl}
}

func (c *Cached) Generate(ctx context.Context, prompt string) (string, error) {
	key := CacheKey(prompt)

	text, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		log.Debug().Str("key", key).Msg("generation cache hit")
		return text, nil
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("key", key).Msg("generation cache read")
	}

	text, err = c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, text, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("generation cache write")
	}
	return text, nil
}

// Invalidate drops the text stored for prompt so the next Generate reaches the wrapped Generator.
func (c *Cached) Invalidate(ctx context.Context, prompt string) error {
	if err := c.client.Del(ctx, CacheKey(prompt)).Err(); err != nil {
		return fmt.Errorf("invalidate generation cache: %w", err)
	}
	return nil
}

// CacheKey is the Redis key under which the text for prompt is stored.
func CacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
