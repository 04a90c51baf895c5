package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/internal/searcher/retriever"
)

type entry struct {
	results   []retriever.Result
	expiresAt time.Time
}

// LocalCache is a size-bounded in-process LRU with optional TTL.
type LocalCache struct {
	lru       *lru.Cache[string, entry]
	ttl       time.Duration
	namespace string
	now       func() time.Time
	group     singleflight.Group
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewLocal creates a cache holding at most size entries. ttl 0 disables
// expiry.
func NewLocal(size int, ttl time.Duration, namespace string) (*LocalCache, error) {
	l, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru of size %d: %w", size, err)
	}
	return &LocalCache{
		lru:       l,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
		logger:    slog.Default().With("component", "retrieval-cache", "backend", "memory"),
	}, nil
}

func (c *LocalCache) get(key string) ([]retriever.Result, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.results, true
}

func (c *LocalCache) GetOrCompute(_ context.Context, question string, n int, compute ComputeFunc) ([]retriever.Result, bool, error) {
	key := Key(c.namespace, question, n)
	if results, ok := c.get(key); ok {
		c.hits.Add(1)
		return results, true, nil
	}
	c.misses.Add(1)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.get(key); ok {
			return results, nil
		}
		results, err := compute()
		if err != nil {
			return nil, err
		}
		e := entry{results: results}
		if c.ttl > 0 {
			e.expiresAt = c.now().Add(c.ttl)
		}
		if evicted := c.lru.Add(key, e); evicted {
			c.logger.Debug("cache entry evicted")
		}
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]retriever.Result), false, nil
}

func (c *LocalCache) Invalidate(context.Context) error {
	n := c.lru.Len()
	c.lru.Purge()
	c.logger.Info("cache invalidated", "keys_deleted", n)
	return nil
}

func (c *LocalCache) Stats() Stats {
	return newStats("memory", c.hits.Load(), c.misses.Load(), c.lru.Len())
}
