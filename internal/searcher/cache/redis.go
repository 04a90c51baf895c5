package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/retriever"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/redis"
)

// store is the subset of the redis client the cache needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	Close() error
}

// RedisCache shares results across retriever replicas. Redis failures
// degrade to misses; they never fail a retrieval.
type RedisCache struct {
	client    store
	isMiss    func(error) bool
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

func NewRedis(client *pkgredis.Client, ttl time.Duration, namespace string) *RedisCache {
	return newRedisCache(client, pkgredis.IsNilError, ttl, namespace)
}

func newRedisCache(client store, isMiss func(error) bool, ttl time.Duration, namespace string) *RedisCache {
	return &RedisCache{
		client:    client,
		isMiss:    isMiss,
		ttl:       ttl,
		namespace: namespace,
		logger:    slog.Default().With("component", "retrieval-cache", "backend", "redis"),
	}
}

func (c *RedisCache) get(ctx context.Context, key string) ([]retriever.Result, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !c.isMiss(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var results []retriever.Result
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return results, true
}

func (c *RedisCache) set(ctx context.Context, key string, results []retriever.Result) {
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) GetOrCompute(ctx context.Context, question string, n int, compute ComputeFunc) ([]retriever.Result, bool, error) {
	key := Key(c.namespace, question, n)
	if results, ok := c.get(ctx, key); ok {
		c.hits.Add(1)
		return results, true, nil
	}
	c.misses.Add(1)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.get(ctx, key); ok {
			return results, nil
		}
		results, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]retriever.Result), false, nil
}

// Invalidate removes this namespace's keys.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+c.namespace+":*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *RedisCache) Stats() Stats {
	return newStats("redis", c.hits.Load(), c.misses.Load(), 0)
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks the backend when the underlying client supports it.
func (c *RedisCache) Ping(ctx context.Context) error {
	if p, ok := c.client.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
