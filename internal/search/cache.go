package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL applies when a cache is configured without a TTL.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores result sets by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]Result, bool, error)
	Set(ctx context.Context, key string, results []Result, ttl time.Duration) error
}

type prefixed struct {
	Cache
	prefix string
}

// Prefixed namespaces every key of c.
func Prefixed(c Cache, prefix string) Cache {
	return prefixed{Cache: c, prefix: prefix}
}

func (p prefixed) Get(ctx context.Context, key string) ([]Result, bool, error) {
	return p.Cache.Get(ctx, p.prefix+key)
}

func (p prefixed) Set(ctx context.Context, key string, results []Result, ttl time.Duration) error {
	return p.Cache.Set(ctx, p.prefix+key, results, ttl)
}

type memoryEntry struct {
	results []Result
	expires time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.results, true, nil
}

func (m *Memory) Set(_ context.Context, key string, results []Result, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{results: results}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps a connected client; keys are stored under prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]Result, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, results []Result, ttl time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}

// Cached decorates a Provider with a result cache. Identical concurrent
// lookups share one upstream request.
type Cached struct {
	inner  Provider
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
	latest Latest
}

// NewCached wraps inner. A nil logger is replaced by a no-op one.
func NewCached(inner Provider, cache Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *Cached) Search(ctx context.Context, text string) ([]Result, error) {
	return c.lookup(ctx, "q:", text, c.inner.Search)
}

func (c *Cached) SearchZip(ctx context.Context, zip string) ([]Result, error) {
	return c.lookup(ctx, "zip:", zip, c.inner.SearchZip)
}

func (c *Cached) AutocompleteData() []AutocompleteResult {
	return c.latest.Autocomplete()
}

// CacheKey normalizes a query into a cache key.
func CacheKey(kind, text string) string {
	return kind + strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func (c *Cached) lookup(ctx context.Context, kind, text string,
	fetch func(context.Context, string) ([]Result, error)) ([]Result, error) {
	seq := c.latest.Begin()
	key := CacheKey(kind, text)

	if results, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("search cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		c.latest.Commit(seq, results)
		return results, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		return fetch(ctx, text)
	})
	if err != nil {
		c.latest.Commit(seq, nil)
		return nil, err
	}
	results := v.([]Result)
	if !shared {
		if err := c.cache.Set(ctx, key, results, c.ttl); err != nil {
			c.logger.Warn("search cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	c.latest.Commit(seq, results)
	return results, nil
}
