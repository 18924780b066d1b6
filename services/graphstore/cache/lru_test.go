// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestLRUCache_Basic(t *testing.T) {
	t.Run("get and set", func(t *testing.T) {
		c := NewLRUCache[string, int](10)

		c.Set("a", 1)
		c.Set("b", 2)

		if val, ok := c.Get("a"); !ok || val != 1 {
			t.Errorf("expected (1, true), got (%d, %v)", val, ok)
		}
		if val, ok := c.Get("b"); !ok || val != 2 {
			t.Errorf("expected (2, true), got (%d, %v)", val, ok)
		}
	})

	t.Run("get missing key", func(t *testing.T) {
		c := NewLRUCache[string, int](10)

		val, ok := c.Get("missing")
		if ok {
			t.Error("expected ok=false for missing key")
		}
		if val != 0 {
			t.Errorf("expected zero value, got %d", val)
		}
	})

	t.Run("update existing key", func(t *testing.T) {
		c := NewLRUCache[string, int](10)

		c.Set("a", 1)
		c.Set("a", 2)

		if val, ok := c.Get("a"); !ok || val != 2 {
			t.Errorf("expected (2, true), got (%d, %v)", val, ok)
		}
		if c.Len() != 1 {
			t.Errorf("expected len=1, got %d", c.Len())
		}
	})

	t.Run("delete", func(t *testing.T) {
		c := NewLRUCache[string, int](10)

		c.Set("a", 1)
		if !c.Delete("a") {
			t.Error("expected delete to return true")
		}
		if _, ok := c.Get("a"); ok {
			t.Error("expected key to be deleted")
		}
		if c.Delete("a") {
			t.Error("expected delete of missing key to return false")
		}
	})

	t.Run("purge keeps stats", func(t *testing.T) {
		c := NewLRUCache[string, int](10)

		c.Set("a", 1)
		c.Set("b", 2)
		c.Get("a")
		c.Purge()

		if c.Len() != 0 {
			t.Errorf("expected len=0 after purge, got %d", c.Len())
		}
		if hits, _, _ := c.Stats(); hits != 1 {
			t.Errorf("expected hits=1 after purge, got %d", hits)
		}
	})

	t.Run("peek does not count", func(t *testing.T) {
		c := NewLRUCache[string, int](10)
		c.Set("a", 1)

		if val, ok := c.Peek("a"); !ok || val != 1 {
			t.Errorf("expected (1, true), got (%d, %v)", val, ok)
		}
		if hits, misses, _ := c.Stats(); hits != 0 || misses != 0 {
			t.Errorf("expected no stats from peek, got hits=%d misses=%d", hits, misses)
		}
	})

	t.Run("non-positive capacity uses default", func(t *testing.T) {
		c := NewLRUCache[int, int](0)
		if c.Capacity() != DefaultCapacity {
			t.Errorf("expected capacity %d, got %d", DefaultCapacity, c.Capacity())
		}
	})
}

func TestLRUCache_Eviction(t *testing.T) {
	t.Run("evicts least recently used", func(t *testing.T) {
		c := NewLRUCache[string, int](3)

		c.Set("a", 1)
		c.Set("b", 2)
		c.Set("c", 3)
		c.Get("a") // a is now most recent
		c.Set("d", 4)

		if _, ok := c.Get("b"); ok {
			t.Error("expected b to be evicted")
		}
		for _, k := range []string{"a", "c", "d"} {
			if _, ok := c.Get(k); !ok {
				t.Errorf("expected %s to survive", k)
			}
		}
		if _, _, evictions := c.Stats(); evictions != 1 {
			t.Errorf("expected 1 eviction, got %d", evictions)
		}
	})

	t.Run("eviction callback", func(t *testing.T) {
		var evicted []string
		c := NewLRUCache[string, int](2).OnEvict(func(k string, _ int) {
			evicted = append(evicted, k)
		})

		c.Set("a", 1)
		c.Set("b", 2)
		c.Set("c", 3)
		c.Delete("b") // explicit deletes are not evictions

		if len(evicted) != 1 || evicted[0] != "a" {
			t.Errorf("expected [a], got %v", evicted)
		}
	})

	t.Run("keys ordered by recency", func(t *testing.T) {
		c := NewLRUCache[int, int](5)
		for i := 0; i < 3; i++ {
			c.Set(i, i)
		}
		c.Get(0)

		keys := c.Keys()
		want := []int{0, 2, 1}
		if fmt.Sprint(keys) != fmt.Sprint(want) {
			t.Errorf("expected %v, got %v", want, keys)
		}
	})
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int, int](100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Set(g*1000+i, i)
				c.Get(g*1000 + i/2)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("expected len <= 100, got %d", c.Len())
	}
}
