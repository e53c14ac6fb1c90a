package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/cache"
	"github.com/jordanlanch/dealpipe/pkg/logger"
)

// CacheStats counts cache hits and misses.
type CacheStats interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type noStats struct{}

func (noStats) RecordCacheHit(string)  {}
func (noStats) RecordCacheMiss(string) {}

const statsLabel = "users"

// CachedDirectory is a read-through Redis cache in front of a Directory.
// Cache failures fall back to the underlying directory.
type CachedDirectory struct {
	next  Directory
	cache *cache.Client
	ttl   time.Duration
	log   logger.Logger
	stats CacheStats
}

// NewCachedDirectory wraps next with a Redis cache of the given TTL.
func NewCachedDirectory(next Directory, c *cache.Client, ttl time.Duration, log logger.Logger) *CachedDirectory {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedDirectory{next: next, cache: c, ttl: ttl, log: log, stats: noStats{}}
}

// WithStats reports hits and misses to stats.
func (d *CachedDirectory) WithStats(stats CacheStats) *CachedDirectory {
	if stats != nil {
		d.stats = stats
	}
	return d
}

func cacheKey(companyID, id int64) string {
	return fmt.Sprintf("users:%d:%d", companyID, id)
}

// Get returns a user, consulting the cache first.
func (d *CachedDirectory) Get(ctx context.Context, companyID, id int64) (*User, error) {
	var u User
	err := d.cache.GetJSON(ctx, cacheKey(companyID, id), &u)
	if err == nil {
		d.stats.RecordCacheHit(statsLabel)
		return &u, nil
	}
	d.stats.RecordCacheMiss(statsLabel)
	if !errors.Is(err, cache.ErrMiss) {
		d.log.Warn("user cache read failed", "error", err)
	}

	found, err := d.next.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := d.cache.SetJSON(ctx, cacheKey(companyID, id), found, d.ttl); err != nil {
		d.log.Warn("user cache write failed", "error", err)
	}
	return found, nil
}

// Lookup resolves many users with one Redis round trip; misses go to the directory.
func (d *CachedDirectory) Lookup(ctx context.Context, companyID int64, ids ...int64) (map[int64]User, error) {
	ids = uniqueIDs(ids)
	out := make(map[int64]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(companyID, id)
	}

	missing := ids
	vals, err := d.cache.GetMulti(ctx, keys...)
	if err != nil {
		d.log.Warn("user cache read failed", "error", err)
	} else {
		missing = nil
		for i, raw := range vals {
			var u User
			if raw == "" || json.Unmarshal([]byte(raw), &u) != nil {
				d.stats.RecordCacheMiss(statsLabel)
				missing = append(missing, ids[i])
				continue
			}
			d.stats.RecordCacheHit(statsLabel)
			out[u.ID] = u
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := d.next.Lookup(ctx, companyID, missing...)
	if err != nil {
		return nil, err
	}

	pairs := make(map[string]any, len(loaded))
	for id, u := range loaded {
		out[id] = u
		pairs[cacheKey(companyID, id)] = u
	}
	if err := d.cache.SetMultiJSON(ctx, pairs, d.ttl); err != nil {
		d.log.Warn("user cache write failed", "error", err)
	}
	return out, nil
}

// Invalidate drops every cached user of a company.
func (d *CachedDirectory) Invalidate(ctx context.Context, companyID int64) error {
	return d.cache.DeletePattern(ctx, fmt.Sprintf("users:%d:*", companyID))
}
