// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "fmt"

// Binding is one slot of the EntityStore. Entity is nil for a tombstone.
type Binding struct {
	ID     ID
	Entity Entity
}

// Tombstoned reports whether the slot was removed.
func (b Binding) Tombstoned() bool { return b.Entity == nil }

// EntityStore maps ids to entities or tombstones.
//
// Keys are never deleted: removal replaces the binding with a tombstone
// so the id cannot resolve again. Iteration follows insertion order,
// which for ids from an IDAllocator is ascending id order.
//
// Not safe for concurrent use; the owning Graph guards it.
type EntityStore struct {
	entries map[ID]Entity
	order   []ID
	live    int
}

// NewEntityStore creates an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{entries: make(map[ID]Entity)}
}

// Insert binds id to e.
//
// Outputs:
//   - error: ErrDuplicateEntity if id is bound to a live entity,
//     ErrTombstoned if id was removed, ErrInvalidArgument if e is nil.
func (s *EntityStore) Insert(id ID, e Entity) error {
	if e == nil {
		return fmt.Errorf("%w: nil entity for id %d", ErrInvalidArgument, id)
	}
	if existing, ok := s.entries[id]; ok {
		if existing == nil {
			return fmt.Errorf("%w: id %d", ErrTombstoned, id)
		}
		return fmt.Errorf("%w: id %d", ErrDuplicateEntity, id)
	}
	s.entries[id] = e
	s.order = append(s.order, id)
	s.live++
	return nil
}

// Get resolves id to a live entity.
func (s *EntityStore) Get(id ID) (Entity, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: id %d was removed", ErrNotFound, id)
	}
	return e, nil
}

// Tombstone replaces a live binding with a tombstone. It reports whether
// a live binding was replaced.
func (s *EntityStore) Tombstone(id ID) bool {
	e, ok := s.entries[id]
	if !ok || e == nil {
		return false
	}
	s.entries[id] = nil
	s.live--
	return true
}

// Contains reports whether id is bound, live or tombstoned.
func (s *EntityStore) Contains(id ID) bool {
	_, ok := s.entries[id]
	return ok
}

// Len returns the number of bindings including tombstones.
func (s *EntityStore) Len() int { return len(s.order) }

// Live returns the number of live bindings.
func (s *EntityStore) Live() int { return s.live }

// Values returns a lazy sequence over every binding, tombstones
// included, in insertion order. Once exhausted it stays exhausted.
func (s *EntityStore) Values() func() (Binding, bool) {
	i := 0
	done := false
	return func() (Binding, bool) {
		if done || i >= len(s.order) {
			done = true
			return Binding{}, false
		}
		id := s.order[i]
		i++
		return Binding{ID: id, Entity: s.entries[id]}, true
	}
}
