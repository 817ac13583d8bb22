package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix     = "questions:published"
	cacheGenerationKey = cacheKeyPrefix + ":gen"
)

// PageCache stores rendered pages of the published listing. Pages are keyed
// by a generation counter so a publish invalidates every page at once.
type PageCache interface {
	// Get returns the cached page and the generation it was looked up under.
	Get(ctx context.Context, req PageRequest) (versions []Version, gen int64, hit bool, err error)
	// Set stores versions under gen; a stale gen just writes an unreachable key.
	Set(ctx context.Context, gen int64, req PageRequest, versions []Version) error
	// Invalidate bumps the generation.
	Invalidate(ctx context.Context) error
}

// Cache is the Redis PageCache.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ PageCache = (*Cache)(nil)

// NewCache returns nil when client is nil or ttl is not positive, which the
// service treats as caching disabled.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func pageKey(gen int64, req PageRequest) string {
	return fmt.Sprintf("%s:g%d:p%d:s%d", cacheKeyPrefix, gen, req.Page, req.PageSize)
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, cacheGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Cache) Get(ctx context.Context, req PageRequest) ([]Version, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := c.client.Get(ctx, pageKey(gen, req)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheLookups.WithLabelValues("miss").Inc()
			return nil, gen, false, nil
		}
		return nil, gen, false, err
	}

	var versions []Version
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, gen, false, err
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return versions, gen, true, nil
}

func (c *Cache) Set(ctx context.Context, gen int64, req PageRequest, versions []Version) error {
	data, err := json.Marshal(versions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKey(gen, req), data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, cacheGenerationKey).Err()
}

var cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "question_bank_page_cache_lookups_total",
	Help: "Published page cache lookups by result.",
}, []string{"result"})

// Collectors exposes the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{cacheLookups}
}
