// Package cache provides a Redis-backed result cache for search responses.
// Concurrent misses for the same request are collapsed through singleflight
// so the engine computes each distinct query once. The whole cache is
// flushed on every mutation; entries also expire on a short TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/veridex/claimsearch/internal/search"
	"github.com/veridex/claimsearch/pkg/redis"
)

const keyPrefix = "search:"

// Cache wraps a Redis client with request hashing and miss deduplication.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// New creates a Cache with the given TTL.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "search-cache"),
	}
}

// GetOrCompute returns the cached response for req, or runs compute and
// caches its result. The bool result reports whether the response came from
// the cache. Redis failures degrade to computing directly.
func (c *Cache) GetOrCompute(ctx context.Context, req search.Request, compute func() (search.Response, error)) (search.Response, bool, error) {
	key := Key(req)

	if cached, err := c.client.Get(ctx, key); err == nil {
		var resp search.Response
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			c.hits.Add(1)
			return resp, true, nil
		}
		c.logger.Warn("dropping undecodable cache entry", "key", key)
		_ = c.client.Del(ctx, key)
	} else if !redis.IsNilError(err) {
		c.logger.Warn("cache read failed, computing directly", "error", err)
		resp, err := compute()
		return resp, false, err
	}

	c.misses.Add(1)
	result, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := compute()
		if err != nil {
			return search.Response{}, err
		}
		if data, err := json.Marshal(resp); err == nil {
			if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
				c.logger.Warn("cache write failed", "key", key, "error", err)
			}
		}
		return resp, nil
	})
	if err != nil {
		return search.Response{}, false, err
	}
	return result.(search.Response), false, nil
}

// Invalidate removes every cached search response. Called after any
// mutation of the catalog so stale pages are never served.
func (c *Cache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating search cache: %w", err)
	}
	return deleted, nil
}

// CounterStats returns the current hit/miss counters.
func (c *Cache) CounterStats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Key derives a deterministic cache key for a request. Dimension lists are
// sorted before hashing so logically identical requests share an entry.
func Key(req search.Request) string {
	canonical := req
	canonical.Tags = sortedCopy(req.Tags)
	canonical.Categories = sortedCopy(req.Categories)
	canonical.Keywords = sortedCopy(req.Keywords)
	canonical.Authors = sortedCopy(req.Authors)
	canonical.Regions = sortedCopy(req.Regions)
	canonical.Statuses = sortedCopy(req.Statuses)

	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(sum[:16])
}

func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
