package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

const (
	simpleKeyPrefix = "sgrplay:track:simple:"
	fullKeyPrefix   = "sgrplay:track:full:"
)

// RedisCache is a ports.MetadataCache backed by Redis so cached metadata
// survives restarts. Expiry is delegated to Redis key TTLs. Backend errors
// are logged and reported as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at url.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisCacheWithClient(redis.NewClient(opt), ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetSimple(ctx context.Context, id domain.TrackID) (*domain.SimpleMetadata, bool) {
	var metadata domain.SimpleMetadata
	if !c.get(ctx, simpleKeyPrefix+string(id), &metadata) {
		return nil, false
	}
	return &metadata, true
}

func (c *RedisCache) SetSimple(ctx context.Context, metadata *domain.SimpleMetadata) {
	c.set(ctx, simpleKeyPrefix+string(metadata.ID), metadata)
}

func (c *RedisCache) GetFull(ctx context.Context, id domain.TrackID) (*domain.FullMetadata, bool) {
	var metadata domain.FullMetadata
	if !c.get(ctx, fullKeyPrefix+string(id), &metadata) {
		return nil, false
	}
	return &metadata, true
}

func (c *RedisCache) SetFull(ctx context.Context, metadata *domain.FullMetadata) {
	c.set(ctx, fullKeyPrefix+string(metadata.ID), metadata)
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("failed to read metadata cache", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("failed to decode cached metadata", "key", key, "error", err)
		return false
	}
	return true
}

func (c *RedisCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to encode metadata", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("failed to write metadata cache", "key", key, "error", err)
	}
}

// Ensure RedisCache implements ports.MetadataCache.
var _ ports.MetadataCache = (*RedisCache)(nil)
