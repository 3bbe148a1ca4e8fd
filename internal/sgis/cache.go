package sgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"region-api/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps successful resolutions in Redis. Coordinates are rounded to four
// decimals (about 11 m) so nearby requests share an entry.
type RedisCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a cache backed by rc. A non-positive ttl defaults to one day.
func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rc: rc, ttl: ttl}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("sgis:rgeo:%.4f:%.4f", lat, lon)
}

func (c *RedisCache) Lookup(ctx context.Context, lat, lon float64) (models.AdministrativeAddress, bool, error) {
	var addr models.AdministrativeAddress
	s, err := c.rc.Get(ctx, cacheKey(lat, lon)).Result()
	if errors.Is(err, redis.Nil) {
		return addr, false, nil
	}
	if err != nil {
		return addr, false, fmt.Errorf("sgis: cache get: %w", err)
	}
	if err := json.Unmarshal([]byte(s), &addr); err != nil {
		return addr, false, fmt.Errorf("sgis: cache decode: %w", err)
	}
	return addr, true, nil
}

func (c *RedisCache) Store(ctx context.Context, lat, lon float64, addr models.AdministrativeAddress) error {
	b, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("sgis: cache encode: %w", err)
	}
	if err := c.rc.Set(ctx, cacheKey(lat, lon), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("sgis: cache set: %w", err)
	}
	return nil
}
