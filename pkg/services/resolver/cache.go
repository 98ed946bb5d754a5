/*
2021 © Postgres.ai
*/

package resolver

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

// Cache stores resolved variable values by cache key.
type Cache interface {
	Get(key string) (*models.VariableValues, bool)
	Add(key string, values *models.VariableValues)
	Keys() []string
	Len() int
	Purge()
}

// MapCache is an unbounded in-memory cache. Entries live for the process lifetime.
type MapCache struct {
	mu    sync.RWMutex
	store map[string]*models.VariableValues
}

// NewMapCache creates a new unbounded cache.
func NewMapCache() *MapCache {
	return &MapCache{store: make(map[string]*models.VariableValues)}
}

// Get retrieves values from the cache.
func (c *MapCache) Get(key string) (*models.VariableValues, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	values, ok := c.store[key]

	return values, ok
}

// Add stores values in the cache.
func (c *MapCache) Add(key string, values *models.VariableValues) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = values
}

// Keys returns the cached keys.
func (c *MapCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.store))

	for key := range c.store {
		keys = append(keys, key)
	}

	return keys
}

// Len returns the number of cached entries.
func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.store)
}

// Purge removes all entries.
func (c *MapCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*models.VariableValues)
}

// LRUCache is a bounded cache evicting the least recently used entries and entries older than TTL.
type LRUCache struct {
	lru *expirable.LRU[string, *models.VariableValues]
}

// NewLRUCache creates a new bounded cache. Zero size means no size limit, zero TTL means no expiration.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, *models.VariableValues](size, nil, ttl)}
}

// Get retrieves values from the cache.
func (c *LRUCache) Get(key string) (*models.VariableValues, bool) {
	return c.lru.Get(key)
}

// Add stores values in the cache.
func (c *LRUCache) Add(key string, values *models.VariableValues) {
	c.lru.Add(key, values)
}

// Keys returns the cached keys from the oldest to the newest.
func (c *LRUCache) Keys() []string {
	return c.lru.Keys()
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// Purge removes all entries.
func (c *LRUCache) Purge() {
	c.lru.Purge()
}
