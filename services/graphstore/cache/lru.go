// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides the bounded caches used by the graph store.
//
// Two building blocks live here:
//   - LRUCache, a generic fixed-capacity map with least-recently-used
//     eviction, used for memoized chain positions and façade sessions.
//   - Memo, which memoizes lazily produced sequences once a consumer has
//     drained them, keyed by an opaque chain signature.
//
// # Thread Safety
//
// Both types are safe for concurrent use. Memo only guards its own
// bookkeeping; the sequences it wraps are pulled by a single consumer.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1024

// EvictFunc observes entries dropped because the cache was full.
type EvictFunc[K comparable, V any] func(key K, value V)

// LRUCache is a thread-safe, fixed-size cache with LRU eviction.
//
// Description:
//
//	Entries live in a map for O(1) lookup and in a doubly linked list
//	ordered by recency. When a Set would exceed capacity, the entry at
//	the back of the list is evicted and reported to the optional
//	eviction callback.
//
// Performance:
//
//	| Operation | Complexity |
//	|-----------|------------|
//	| Get       | O(1)       |
//	| Peek      | O(1)       |
//	| Set       | O(1)       |
//	| Delete    | O(1)       |
//	| Purge     | O(n)       |
type LRUCache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most recently used
	onEvict  EvictFunc[K, V]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRUCache creates a cache holding at most capacity entries.
//
// Inputs:
//   - capacity: Maximum number of entries. Values <= 0 use DefaultCapacity.
//
// Outputs:
//   - *LRUCache[K, V]: The cache. Never nil.
//
// Example:
//
//	sessions := NewLRUCache[string, *session](256)
//	sessions.Set(id, s)
func NewLRUCache[K comparable, V any](capacity int) *LRUCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// OnEvict registers fn to be called for every capacity eviction.
//
// The callback runs while the cache lock is held and must not call
// back into the cache.
func (c *LRUCache[K, V]) OnEvict(fn EvictFunc[K, V]) *LRUCache[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		c.hits.Add(1)
		return elem.Value.(*lruEntry[K, V]).value, true
	}

	c.misses.Add(1)
	var zero V
	return zero, false
}

// Peek returns the value for key without touching recency or stats.
func (c *LRUCache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		return elem.Value.(*lruEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key, evicting the least recently used entry
// when the cache is full.
func (c *LRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry[K, V]).value = value
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
}

// Delete removes key. It reports whether the key was present.
func (c *LRUCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
		return true
	}
	return false
}

// Purge drops every entry. Statistics are kept; the eviction callback
// is not invoked for purged entries.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of entries.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the configured maximum number of entries.
func (c *LRUCache[K, V]) Capacity() int {
	return c.capacity
}

// Keys returns the keys ordered from most to least recently used.
func (c *LRUCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*lruEntry[K, V]).key)
	}
	return keys
}

// Stats returns hit, miss and eviction counts since creation.
func (c *LRUCache[K, V]) Stats() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

// evictOldest removes the least recently used entry.
// Caller must hold the lock.
func (c *LRUCache[K, V]) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*lruEntry[K, V])
	c.removeElement(elem)
	c.evictions.Add(1)
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}

// removeElement unlinks elem from both the list and the map.
// Caller must hold the lock.
func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry[K, V]).key)
}
