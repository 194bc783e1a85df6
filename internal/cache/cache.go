package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/karlseguin/ccache/v3"

	"realestate/internal/models"
	"realestate/internal/observability"
	"realestate/internal/utils"
	"realestate/pkg/logger"
)

const (
	keyPrefix     = "search"
	generationKey = "search:generation"
	localTTL      = time.Minute
)

// Remote is a shared cache tier.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Generation returns the current value of a counter, 0 when unset.
	Generation(ctx context.Context, key string) (uint64, error)
	// Bump increments the counter and returns the new value.
	Bump(ctx context.Context, key string) (uint64, error)
	Close() error
}

// SearchCache caches search results in a local ccache tier in front of an
// optional remote tier. Keys carry a generation number, so invalidating is
// a counter increment rather than a key scan.
type SearchCache struct {
	local  *ccache.Cache[[]models.Property]
	remote Remote
	ttl    time.Duration
	gen    atomic.Uint64
}

// NewSearchCache creates a cache. remote may be nil for a local-only cache.
func NewSearchCache(remote Remote, ttl time.Duration) *SearchCache {
	return &SearchCache{
		local:  ccache.New(ccache.Configure[[]models.Property]().MaxSize(1000)),
		remote: remote,
		ttl:    ttl,
	}
}

func (c *SearchCache) generation(ctx context.Context) uint64 {
	if c.remote == nil {
		return c.gen.Load()
	}
	g, err := c.remote.Generation(ctx, generationKey)
	if err != nil {
		logger.Log.WithError(err).Warn("cache generation lookup failed, using local value")
		return c.gen.Load()
	}
	if g != c.gen.Load() {
		c.gen.Store(g)
		c.local.Clear()
	}
	return g
}

func (c *SearchCache) key(ctx context.Context, params map[string]string) string {
	return strconv.FormatUint(c.generation(ctx), 10) + ":" + utils.GenerateQueryCacheKey(keyPrefix, params)
}

// Get looks up the results cached for params. The returned key pins the
// generation current at lookup time; pass it to Set so results computed
// across an Invalidate are stored under the old generation and never served.
func (c *SearchCache) Get(ctx context.Context, params map[string]string) ([]models.Property, string, bool) {
	key := c.key(ctx, params)

	if item := c.local.Get(key); item != nil && !item.Expired() {
		observability.SearchCacheTotal.WithLabelValues("hit").Inc()
		return item.Value(), key, true
	}

	if c.remote != nil {
		data, found, err := c.remote.Get(ctx, key)
		if err != nil {
			logger.Log.WithError(err).WithField("key", key).Warn("remote cache get failed")
		}
		if found {
			var properties []models.Property
			if err := json.Unmarshal(data, &properties); err == nil {
				c.local.Set(key, properties, c.localTTL())
				observability.SearchCacheTotal.WithLabelValues("hit").Inc()
				return properties, key, true
			}
			logger.Log.WithField("key", key).Warn("discarding undecodable cache entry")
		}
	}

	observability.SearchCacheTotal.WithLabelValues("miss").Inc()
	return nil, key, false
}

// Set stores results under a key returned by Get, in both tiers. Remote
// failures are logged.
func (c *SearchCache) Set(ctx context.Context, key string, properties []models.Property) {
	c.local.Set(key, properties, c.localTTL())

	if c.remote == nil {
		return
	}
	data, err := json.Marshal(properties)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to encode search results for cache")
		return
	}
	if err := c.remote.Set(ctx, key, data, c.ttl); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("remote cache set failed")
	}
}

// Invalidate drops every cached search result.
func (c *SearchCache) Invalidate(ctx context.Context) error {
	c.local.Clear()
	if c.remote == nil {
		c.gen.Add(1)
		return nil
	}
	g, err := c.remote.Bump(ctx, generationKey)
	if err != nil {
		c.gen.Add(1)
		return err
	}
	c.gen.Store(g)
	return nil
}

// Close stops the local tier and closes the remote one.
func (c *SearchCache) Close() error {
	c.local.Stop()
	if c.remote != nil {
		return c.remote.Close()
	}
	return nil
}

func (c *SearchCache) localTTL() time.Duration {
	if c.ttl > 0 && c.ttl < localTTL {
		return c.ttl
	}
	return localTTL
}
