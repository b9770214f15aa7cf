// Package schemacache caches the introspected searchable fields of a
// collection. Redis is used when configured so every API instance and the
// worker share one view; otherwise entries live in process memory.
package schemacache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

const keyPrefix = "crm:searchable:"

// Loader computes the searchable fields of a collection from the store.
type Loader func(ctx context.Context, collection string) ([]string, error)

type memEntry struct {
	fields  []string
	expires time.Time
}

// Cache is safe for concurrent use. Concurrent misses for one collection
// share a single load.
type Cache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	load   Loader
	log    *logger.Logger
	group  singleflight.Group
	now    func() time.Time
	mu     sync.RWMutex
	memory map[string]memEntry
}

// New creates a cache. rdb may be nil for a process-local cache.
func New(rdb redis.UniversalClient, ttl time.Duration, load Loader, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.Discard()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		rdb:    rdb,
		ttl:    ttl,
		load:   load,
		log:    log,
		now:    time.Now,
		memory: make(map[string]memEntry),
	}
}

// Key returns the Redis key of collection.
func Key(collection string) string { return keyPrefix + collection }

// Get returns the cached fields of collection, loading them on a miss. An
// empty result is returned but not cached, so the first stored document
// becomes searchable right away.
func (c *Cache) Get(ctx context.Context, collection string) ([]string, error) {
	if fields, ok := c.lookup(ctx, collection); ok {
		return fields, nil
	}

	v, err, _ := c.group.Do(collection, func() (any, error) {
		return c.refresh(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Refresh recomputes the fields of collection and stores them.
func (c *Cache) Refresh(ctx context.Context, collection string) ([]string, error) {
	v, err, _ := c.group.Do(collection, func() (any, error) {
		return c.refresh(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Evict drops the entry of collection.
func (c *Cache) Evict(ctx context.Context, collection string) error {
	c.mu.Lock()
	delete(c.memory, collection)
	c.mu.Unlock()

	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, Key(collection)).Err()
}

func (c *Cache) refresh(ctx context.Context, collection string) ([]string, error) {
	fields, err := c.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []string{}
	}
	if len(fields) > 0 {
		c.store(ctx, collection, fields)
	}
	return fields, nil
}

func (c *Cache) lookup(ctx context.Context, collection string) ([]string, bool) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, Key(collection)).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			return nil, false
		case err != nil:
			c.log.Warn("searchable fields cache read failed", "collection", collection, "error", err)
			return c.lookupMemory(collection)
		}
		var fields []string
		if err := json.Unmarshal(raw, &fields); err != nil {
			c.log.Warn("searchable fields cache entry corrupt", "collection", collection, "error", err)
			return nil, false
		}
		return fields, true
	}
	return c.lookupMemory(collection)
}

func (c *Cache) lookupMemory(collection string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.memory[collection]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.fields, true
}

func (c *Cache) store(ctx context.Context, collection string, fields []string) {
	c.mu.Lock()
	c.memory[collection] = memEntry{fields: fields, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, Key(collection), raw, c.ttl).Err(); err != nil {
		c.log.Warn("searchable fields cache write failed", "collection", collection, "error", err)
	}
}
