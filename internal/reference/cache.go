// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package reference

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache is a process-lifetime store of resolved references keyed by
// normalized specifier text. Concurrent misses for the same key share one
// resolution.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]Reference
	group   singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: map[string][]Reference{}}
}

var defaultCache = NewCache()

// DefaultCache returns the cache shared by every resolver in the process.
func DefaultCache() *Cache { return defaultCache }

// Get returns the cached references for key.
func (c *Cache) Get(key string) ([]Reference, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs, ok := c.entries[key]
	return refs, ok
}

// Set stores refs under key.
func (c *Cache) Set(key string, refs []Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = refs
}

// Forget drops key so the next Do resolves again.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// Clear removes every entry (primarily for testing).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]Reference{}
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Do returns the cached value for key or runs fn once for all concurrent
// callers. Errors are not cached. shared reports whether the result came
// from the cache or another caller's resolution.
func (c *Cache) Do(key string, fn func() ([]Reference, error)) (refs []Reference, shared bool, err error) {
	if refs, ok := c.Get(key); ok {
		return refs, true, nil
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		if refs, ok := c.Get(key); ok {
			return refs, nil
		}
		refs, err := fn()
		if err != nil {
			return nil, err
		}
		c.Set(key, refs)
		return refs, nil
	})
	if err != nil {
		return nil, shared, err
	}
	return v.([]Reference), shared, nil
}
