package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// EntityCache is a bounded, time-expiring cache for configuration entities
// (schedules, services) keyed per organization. It replaces ad-hoc global
// lookup maps: the cache is constructed once and passed by handle, entries
// expire on TTL, and writes are refused once the entry cap is reached so an
// abusive tenant cannot grow it without bound.
type EntityCache struct {
	c          *gocache.Cache
	maxEntries int
}

// New creates a cache whose entries live for ttl and are swept every
// cleanup interval. maxEntries caps the total entry count; zero or negative
// means unbounded.
func New(ttl, cleanup time.Duration, maxEntries int) *EntityCache {
	return &EntityCache{
		c:          gocache.New(ttl, cleanup),
		maxEntries: maxEntries,
	}
}

// Key builds a namespaced cache key scoped to an organization.
func Key(orgID, kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", orgID, kind, id)
}

func (e *EntityCache) Get(key string) (interface{}, bool) {
	return e.c.Get(key)
}

func (e *EntityCache) Set(key string, value interface{}) {
	if e.maxEntries > 0 && e.c.ItemCount() >= e.maxEntries {
		if _, exists := e.c.Get(key); !exists {
			return
		}
	}
	e.c.SetDefault(key, value)
}

func (e *EntityCache) Delete(key string) {
	e.c.Delete(key)
}

func (e *EntityCache) Len() int {
	return e.c.ItemCount()
}
