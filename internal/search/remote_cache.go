package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/domain/ports"
	"gamecatalog/internal/metrics"
)

const (
	redisCachePrefix      = "catalog:remote:"
	defaultRemoteCacheTTL = 10 * time.Minute
)

// RedisCacheBackend shares remote search results between service instances.
type RedisCacheBackend struct {
	client *redis.Client
}

func NewRedisCacheBackend(client *redis.Client) *RedisCacheBackend {
	return &RedisCacheBackend{client: client}
}

func (r *RedisCacheBackend) Get(ctx context.Context, key string) ([]domain.GameResult, bool, error) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var items []domain.GameResult
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

func (r *RedisCacheBackend) Set(ctx context.Context, key string, items []domain.GameResult, ttl time.Duration) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCacheBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// RemoteCache keeps successful remote search results in process memory and,
// when a backend is configured, in redis.
type RemoteCache struct {
	memory *cache.Cache
	redis  *RedisCacheBackend
	ttl    time.Duration
}

// NewRemoteCache builds a two-tier cache. A cleanup interval of zero disables
// the background eviction of expired entries.
func NewRemoteCache(ttl, cleanupInterval time.Duration, backend *RedisCacheBackend) *RemoteCache {
	if ttl <= 0 {
		ttl = defaultRemoteCacheTTL
	}
	return &RemoteCache{
		memory: cache.New(ttl, cleanupInterval),
		redis:  backend,
		ttl:    ttl,
	}
}

func (c *RemoteCache) Get(ctx context.Context, key string) ([]domain.GameResult, bool) {
	if c == nil {
		return nil, false
	}
	if value, ok := c.memory.Get(key); ok {
		if items, ok := value.([]domain.GameResult); ok {
			metrics.RemoteCacheHitsTotal.WithLabelValues("memory").Inc()
			return cloneResults(items), true
		}
	}
	if c.redis != nil {
		items, ok, err := c.redis.Get(ctx, key)
		if err != nil {
			slog.Warn("remote cache read failed", slog.String("error", err.Error()))
		}
		if ok {
			c.memory.SetDefault(key, cloneResults(items))
			metrics.RemoteCacheHitsTotal.WithLabelValues("redis").Inc()
			return items, true
		}
	}
	metrics.RemoteCacheMissesTotal.Inc()
	return nil, false
}

func (c *RemoteCache) Set(ctx context.Context, key string, items []domain.GameResult) {
	if c == nil {
		return
	}
	c.memory.SetDefault(key, cloneResults(items))
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, items, c.ttl); err != nil {
			slog.Warn("remote cache write failed", slog.String("error", err.Error()))
		}
	}
}

func (c *RemoteCache) Len() int {
	if c == nil {
		return 0
	}
	return c.memory.ItemCount()
}

func remoteCacheKey(query ports.RemoteQuery) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(query.Text)))
	b.WriteString("|")
	for i, id := range query.PlatformIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.Itoa(id))
	}
	b.WriteString("|")
	b.WriteString(strconv.Itoa(query.Limit))
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func cloneResults(items []domain.GameResult) []domain.GameResult {
	if items == nil {
		return nil
	}
	out := make([]domain.GameResult, len(items))
	copy(out, items)
	return out
}
