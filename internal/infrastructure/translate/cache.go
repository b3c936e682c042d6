package translate

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/identity"
	"OutageNotifier/internal/ports"
)

// keyValue is the slice of redis the cache needs. *redis.Client satisfies it.
type keyValue interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache is a read-through layer in front of a Translator. Redis being down
// only costs the caching, never the translation.
type Cache struct {
	inner  ports.Translator
	kv     keyValue
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.Translator = (*Cache)(nil)

// NewCache wraps inner with a Redis-backed cache.
func NewCache(inner ports.Translator, kv keyValue, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{inner: inner, kv: kv, ttl: ttl, logger: logger}
}

// Translate serves from cache when possible, otherwise delegates and stores
// the result. Only successful translations are cached.
func (c *Cache) Translate(ctx context.Context, text string, from, to domain.Language) (string, error) {
	if from == to || text == "" {
		return text, nil
	}

	key := cacheKey(text, from, to)
	cached, err := c.kv.Get(ctx, key).Result()
	if err == nil {
		return cached, nil
	}
	if err != redis.Nil {
		c.logger.Warn("translation cache read failed", "error", err)
	}

	translated, err := c.inner.Translate(ctx, text, from, to)
	if err != nil {
		return "", err
	}

	if err := c.kv.Set(ctx, key, translated, c.ttl).Err(); err != nil {
		c.logger.Warn("translation cache write failed", "error", err)
	}
	return translated, nil
}

func cacheKey(text string, from, to domain.Language) string {
	return "translate:" + string(from) + ":" + string(to) + ":" + identity.TextHash(text)
}
