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
	"sync"
)

// DefaultMaxLength is the largest buffer Memo installs when none is configured.
const DefaultMaxLength = 1000

// Iterator is a pull-based sequence. It returns false once exhausted and
// keeps returning false afterwards.
type Iterator[T any] func() (T, bool)

// MemoStats is a point-in-time view of a Memo.
type MemoStats struct {
	Entries       int    `json:"entries"`
	Capacity      int    `json:"capacity"`
	MaxLength     int    `json:"max_length"`
	Generation    uint64 `json:"generation"`
	Hits          int64  `json:"hits"`
	Misses        int64  `json:"misses"`
	Installs      int64  `json:"installs"`
	Oversize      int64  `json:"oversize"`
	Stale         int64  `json:"stale"`
	Invalidations int64  `json:"invalidations"`
}

// Memo memoizes lazily produced sequences by key.
//
// Description:
//
//	Tee wraps a sequence so that every item pulled by the consumer is
//	also appended to a private buffer. When the wrapped sequence is
//	exhausted and the buffer holds at most MaxLength items, the buffer
//	is installed under the key and later Lookups replay it without
//	touching the original producer. Longer sequences are never
//	installed.
//
//	Invalidate drops every installed buffer and bumps a generation
//	counter. A tee created before the bump refuses to install, so a
//	result computed against old state is never served.
//
// Thread Safety: Safe for concurrent use.
type Memo[T any] struct {
	mu         sync.Mutex
	entries    *LRUCache[string, []T]
	maxLength  int
	generation uint64

	hits, misses, installs, oversize, stale, invalidations int64
}

// NewMemo creates a memo holding up to capacity keys, each with at most
// maxLength buffered items. Non-positive arguments use the defaults.
func NewMemo[T any](capacity, maxLength int) *Memo[T] {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Memo[T]{
		entries:   NewLRUCache[string, []T](capacity),
		maxLength: maxLength,
	}
}

// MaxLength returns the install threshold.
func (m *Memo[T]) MaxLength() int {
	return m.maxLength
}

// Generation returns the number of invalidations so far.
func (m *Memo[T]) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Lookup returns a replay of the buffer installed under key.
func (m *Memo[T]) Lookup(key string) (Iterator[T], bool) {
	it, _, ok := m.lookup(key)
	return it, ok
}

func (m *Memo[T]) lookup(key string) (Iterator[T], uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.entries.Get(key)
	if !ok {
		m.misses++
		memoLookups.WithLabelValues("miss").Inc()
		return nil, m.generation, false
	}
	m.hits++
	memoLookups.WithLabelValues("hit").Inc()
	return Replay(buf), m.generation, true
}

// Wrap returns the sequence for key: the installed buffer when there is
// one, otherwise build's sequence teed under key.
//
// The decision is re-checked on the first pull. If an invalidation
// happened between Wrap and that pull, the buffer is ignored and build
// runs instead, so a sequence wrapped before a mutation and drained after
// it never replays pre-mutation results. build must not pull anything
// itself.
func (m *Memo[T]) Wrap(key string, build func() Iterator[T]) Iterator[T] {
	replay, gen, ok := m.lookup(key)
	if !ok {
		return m.Tee(key, build())
	}

	var cur Iterator[T]
	return func() (T, bool) {
		if cur == nil {
			if m.Generation() == gen {
				cur = replay
			} else {
				cur = m.Tee(key, build())
			}
		}
		return cur()
	}
}

// Tee wraps next so the items it yields are installed under key once
// the sequence is drained.
//
// Inputs:
//   - key: Signature of the sequence. Equal keys must produce equal sequences
//     for as long as the generation does not change.
//   - next: The producer. It is pulled lazily, only as the returned
//     iterator is pulled.
//
// Outputs:
//   - Iterator[T]: Yields exactly what next yields.
func (m *Memo[T]) Tee(key string, next Iterator[T]) Iterator[T] {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	var (
		buf      []T
		overflow bool
		done     bool
	)
	return func() (T, bool) {
		if done {
			var zero T
			return zero, false
		}
		item, ok := next()
		if !ok {
			done = true
			m.install(key, gen, buf, overflow)
			buf = nil
			return item, false
		}
		if !overflow {
			if len(buf) < m.maxLength {
				buf = append(buf, item)
			} else {
				overflow = true
				buf = nil
			}
		}
		return item, true
	}
}

func (m *Memo[T]) install(key string, gen uint64, buf []T, overflow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case overflow:
		m.oversize++
		memoInstalls.WithLabelValues("oversize").Inc()
	case gen != m.generation:
		m.stale++
		memoInstalls.WithLabelValues("stale").Inc()
	default:
		if buf == nil {
			buf = []T{}
		}
		m.entries.Set(key, buf)
		m.installs++
		memoInstalls.WithLabelValues("installed").Inc()
	}
}

// Invalidate drops every installed buffer and fences off in-flight tees.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.entries.Purge()
	m.invalidations++
	memoInvalidations.Inc()
}

// Len returns the number of installed buffers.
func (m *Memo[T]) Len() int {
	return m.entries.Len()
}

// Stats returns a snapshot of the memo counters.
func (m *Memo[T]) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MemoStats{
		Entries:       m.entries.Len(),
		Capacity:      m.entries.Capacity(),
		MaxLength:     m.maxLength,
		Generation:    m.generation,
		Hits:          m.hits,
		Misses:        m.misses,
		Installs:      m.installs,
		Oversize:      m.oversize,
		Stale:         m.stale,
		Invalidations: m.invalidations,
	}
}

// Replay returns an iterator over a fixed slice. The slice is not copied
// and must not be modified afterwards.
func Replay[T any](items []T) Iterator[T] {
	i := 0
	return func() (T, bool) {
		if i >= len(items) {
			var zero T
			return zero, false
		}
		item := items[i]
		i++
		return item, true
	}
}
