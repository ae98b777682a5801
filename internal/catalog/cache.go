package catalog

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dataCacheTTL = 5 * time.Minute

// DataCache keeps hot full-GeoJSON dataset bodies in redis so repeated
// /data reads skip the JSONB column. Nil-safe: a nil cache is a no-op, so
// the catalog runs unchanged without redis.
type DataCache struct {
	client *redis.Client
}

// NewDataCache wraps a redis client; pass nil to disable caching.
func NewDataCache(client *redis.Client) *DataCache {
	if client == nil {
		return nil
	}
	return &DataCache{client: client}
}

func (c *DataCache) key(id string) string {
	return "spatix:dataset:" + id + ":data"
}

// Get returns the cached body, or nil on miss or any redis error.
func (c *DataCache) Get(ctx context.Context, id string) []byte {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		return nil
	}
	return data
}

// Set stores the body with a short TTL. Errors are ignored; the database
// remains authoritative.
func (c *DataCache) Set(ctx context.Context, id string, data []byte) {
	if c == nil {
		return
	}
	c.client.Set(ctx, c.key(id), data, dataCacheTTL)
}

// Invalidate drops the cached body, used on dataset deletion.
func (c *DataCache) Invalidate(ctx context.Context, id string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, c.key(id))
}
