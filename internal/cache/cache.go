package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Fixed keys for the cached API responses. They all describe the whole
// listing population, so a scrape or rescore invalidates every one.
const (
	KeyTop10        = "pandafinder:cache:top10"
	KeyScores       = "pandafinder:cache:scores"
	KeyDistribution = "pandafinder:cache:distribution"
	KeyBreakdown    = "pandafinder:cache:breakdown"
	KeyStats        = "pandafinder:cache:stats"
)

const lockKey = "pandafinder:scrape:lock"

// Cache is a thin redis layer for API response caching and the scrape
// lock. A nil *Cache (no REDIS_URL configured) disables both: reads
// miss, writes are dropped and locks always acquire.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		TTL:    ttl,
	}
}

// GetJSON loads a cached value into dest, reporting whether it was there.
func (c *Cache) GetJSON(key string, dest any) bool {
	if c == nil {
		return false
	}
	val, err := c.Client.Get(context.Background(), key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		c.Client.Del(context.Background(), key)
		return false
	}
	return true
}

func (c *Cache) SetJSON(key string, v any) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.Client.Set(context.Background(), key, b, c.TTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// InvalidateResponses drops every cached API response. Called after any
// write that changes listings or scores.
func (c *Cache) InvalidateResponses() {
	if c == nil {
		return
	}
	c.Client.Del(context.Background(),
		KeyTop10, KeyScores, KeyDistribution, KeyBreakdown, KeyStats)
}

// AcquireScrapeLock takes the cross-process scrape lock for ttl. Without
// redis there is nothing to coordinate, so the lock is always granted.
// Redis trouble also grants it: a stuck lock must not stop scraping.
func (c *Cache) AcquireScrapeLock(ttl time.Duration) bool {
	if c == nil {
		return true
	}
	ok, err := c.Client.SetNX(context.Background(), lockKey,
		time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		log.Warn().Err(err).Msg("scrape lock check failed, proceeding")
		return true
	}
	return ok
}

func (c *Cache) ReleaseScrapeLock() {
	if c == nil {
		return
	}
	c.Client.Del(context.Background(), lockKey)
}
