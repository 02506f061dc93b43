// Package cache memoizes query responses. Redis is used when configured so
// that several service replicas share results; otherwise an in-process LRU
// holds them. Concurrent identical queries are collapsed with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/resilience"
)

const keyPrefix = "devguide:query:"

const defaultLocalSize = 512

// Key identifies one cacheable query.
type Key struct {
	Kind     string
	Domain   string
	Query    string
	Language string
	Limit    int
}

// Store is the byte-level backend behind a QueryCache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Flush(ctx context.Context) (int64, error)
	Name() string
}

// QueryCache caches JSON-encoded query responses.
type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over Redis when client is non-nil and over a local LRU
// of cfg.LocalSize entries otherwise. While Redis keeps failing, lookups
// are treated as misses without waiting on it. m may be nil.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	var store Store
	if client != nil {
		store = &redisStore{
			client:  client,
			breaker: resilience.NewBreaker("redis-cache", resilience.BreakerConfig{}),
		}
	} else {
		store = newLocalStore(cfg.LocalSize)
	}
	return NewWithStore(store, cfg.CacheTTL, m)
}

// NewWithStore creates a cache over an arbitrary store.
func NewWithStore(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache", "backend", store.Name()),
	}
}

// Backend names the store in use.
func (c *QueryCache) Backend() string {
	return c.store.Name()
}

// Get decodes the cached response for key into out.
func (c *QueryCache) Get(ctx context.Context, key Key, out any) bool {
	k := buildKey(key)
	data, ok, err := c.store.Get(ctx, k)
	if err != nil {
		c.logger.Error("cache get failed", "key", k, "error", err)
	}
	if !ok || err != nil {
		c.recordMiss()
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.recordMiss()
		return false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "kind", key.Kind, "query", key.Query, "key", k)
	return true
}

// Set stores value for key.
func (c *QueryCache) Set(ctx context.Context, key Key, value any) {
	k := buildKey(key)
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.store.Set(ctx, k, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", k, "error", err)
	}
}

// Cacheable is implemented by responses that are sometimes not worth
// storing, such as results reporting missing data that may appear later.
type Cacheable interface {
	Cacheable() bool
}

// GetOrCompute returns the cached response for key or computes, stores and
// returns it. Concurrent callers with the same key share one computation.
// The boolean reports a cache hit.
func GetOrCompute[T any](ctx context.Context, c *QueryCache, key Key, compute func() (*T, error)) (*T, bool, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return &cached, true, nil
	}
	val, err, _ := c.group.Do(buildKey(key), func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		if cc, ok := any(result).(Cacheable); !ok || cc.Cacheable() {
			c.Set(ctx, key, result)
		}
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*T), false, nil
}

// Invalidate removes every cached response.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.Flush(ctx)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counts since creation.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(key Key) string {
	raw := strings.Join([]string{
		key.Kind,
		key.Domain,
		strings.ToLower(key.Language),
		fmt.Sprintf("limit=%d", key.Limit),
		key.Query,
	}, "\x00")
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

type redisStore struct {
	client  *pkgredis.Client
	breaker *resilience.Breaker
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.breaker.Do(func() error {
		var err error
		data, err = s.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if errors.Is(err, resilience.ErrOpen) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, data != nil, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.breaker.Do(func() error {
		return s.client.Set(ctx, key, value, ttl)
	})
	if errors.Is(err, resilience.ErrOpen) {
		return nil
	}
	return err
}

func (s *redisStore) Flush(ctx context.Context) (int64, error) {
	return s.client.FlushByPattern(ctx, keyPrefix+"*")
}

func (s *redisStore) Name() string { return "redis" }

type localEntry struct {
	data    []byte
	expires time.Time
}

type localStore struct {
	entries *lru.Cache[string, localEntry]
	now     func() time.Time
}

func newLocalStore(size int) *localStore {
	if size <= 0 {
		size = defaultLocalSize
	}
	entries, _ := lru.New[string, localEntry](size)
	return &localStore{entries: entries, now: time.Now}
}

func (s *localStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		s.entries.Remove(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (s *localStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := localEntry{data: value}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries.Add(key, e)
	return nil
}

func (s *localStore) Flush(context.Context) (int64, error) {
	n := int64(s.entries.Len())
	s.entries.Purge()
	return n, nil
}

func (s *localStore) Name() string { return "local" }
