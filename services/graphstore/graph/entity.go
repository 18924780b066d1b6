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

import (
	"fmt"
	"sort"
	"time"
)

// Kind distinguishes nodes from relations.
type Kind uint8

const (
	// KindNode is a vertex.
	KindNode Kind = iota + 1

	// KindRelation is a directed, labeled edge between two nodes.
	KindRelation
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Entity is anything with an id and a property bag.
//
// Every accessor and mutator except ID, Kind and the instrumentation
// getters refreshes LastAccessed. An entity that is not loaded calls the
// graph's Backend.Load before its first property access.
type Entity interface {
	// ID returns the immutable id.
	ID() ID

	// Kind reports whether this is a node or a relation.
	Kind() Kind

	// Get returns the value under key, or ErrMissingProperty.
	Get(key string) (Value, error)

	// Lookup returns the value under key and whether it was present.
	Lookup(key string) (Value, bool)

	// Has reports whether key is present.
	Has(key string) bool

	// Set stores v under key and persists it through the backend.
	Set(key string, v Value) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error

	// Keys returns the property names in sorted order.
	Keys() []string

	// Properties returns a copy of the property bag.
	Properties() (Properties, error)

	// LastAccessed returns when the entity was last read or written.
	// Zero in lite mode.
	LastAccessed() time.Time

	// History returns the recorded property changes, oldest first.
	// Empty in lite mode.
	History() []Change

	// Loaded reports whether the property bag is resident in memory.
	Loaded() bool

	core() *base
}

// Change records one property mutation.
type Change struct {
	Key string    `json:"key"`
	Old Value     `json:"old"`
	New Value     `json:"new"`
	At  time.Time `json:"at"`
}

// base holds the state shared by nodes and relations. All fields other
// than g, self, id and kind are guarded by g.mu.
type base struct {
	g    *Graph
	self Entity
	id   ID
	kind Kind

	props        Properties
	loaded       bool
	removed      bool
	lastAccessed time.Time
	history      []Change
}

func (b *base) core() *base { return b }

// ID returns the entity id.
func (b *base) ID() ID { return b.id }

// Kind returns the entity kind.
func (b *base) Kind() Kind { return b.kind }

// Get returns the value stored under key.
func (b *base) Get(key string) (Value, error) {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	if err := b.loadLocked(); err != nil {
		return Value{}, err
	}
	b.touchLocked()
	v, ok := b.props[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q on %s %d", ErrMissingProperty, key, b.kind, b.id)
	}
	return v, nil
}

// Lookup returns the value stored under key. A failed backend load is
// logged and reported as absent.
func (b *base) Lookup(key string) (Value, bool) {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	return b.lookupLocked(key)
}

// Has reports whether key is present.
func (b *base) Has(key string) bool {
	_, ok := b.Lookup(key)
	return ok
}

// Set stores v under key.
func (b *base) Set(key string, v Value) error {
	if key == "" {
		return fmt.Errorf("%w: empty property name", ErrInvalidArgument)
	}
	if v.IsZero() {
		return fmt.Errorf("%w: property %q has no value", ErrInvalidValue, key)
	}

	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	if b.removed {
		return fmt.Errorf("%w: %s %d", ErrTombstoned, b.kind, b.id)
	}
	if err := b.loadLocked(); err != nil {
		return err
	}
	b.touchLocked()

	old := b.props[key]
	b.props[key] = v
	b.recordLocked(key, old, v)
	b.g.invalidateLocked("set_property")

	if err := b.g.backend.Store(b.self, key, v); err != nil {
		return fmt.Errorf("storing %q on %s %d: %w", key, b.kind, b.id, err)
	}
	return nil
}

// Delete removes key.
func (b *base) Delete(key string) error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	if b.removed {
		return fmt.Errorf("%w: %s %d", ErrTombstoned, b.kind, b.id)
	}
	if err := b.loadLocked(); err != nil {
		return err
	}
	b.touchLocked()

	old, ok := b.props[key]
	if !ok {
		return nil
	}
	delete(b.props, key)
	b.recordLocked(key, old, Value{})
	b.g.invalidateLocked("delete_property")

	// The empty Value tells the backend to drop the key.
	if err := b.g.backend.Store(b.self, key, Value{}); err != nil {
		return fmt.Errorf("deleting %q on %s %d: %w", key, b.kind, b.id, err)
	}
	return nil
}

// Keys returns the property names in sorted order.
func (b *base) Keys() []string {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	if err := b.loadLocked(); err != nil {
		b.g.logger.Warn("property load failed", "id", b.id, "error", err)
		return nil
	}
	b.touchLocked()
	return b.props.Keys()
}

// Properties returns a copy of the property bag.
func (b *base) Properties() (Properties, error) {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	return b.propertiesLocked()
}

// LastAccessed returns the last access time.
func (b *base) LastAccessed() time.Time {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	return b.lastAccessed
}

// History returns a copy of the change log.
func (b *base) History() []Change {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	out := make([]Change, len(b.history))
	copy(out, b.history)
	return out
}

// Loaded reports whether the bag is resident.
func (b *base) Loaded() bool {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	return b.loaded
}

func (b *base) lookupLocked(key string) (Value, bool) {
	if err := b.loadLocked(); err != nil {
		b.g.logger.Warn("property load failed", "id", b.id, "error", err)
		return Value{}, false
	}
	b.touchLocked()
	v, ok := b.props[key]
	return v, ok
}

func (b *base) propertiesLocked() (Properties, error) {
	if err := b.loadLocked(); err != nil {
		return nil, err
	}
	b.touchLocked()
	return b.props.Clone(), nil
}

// loadLocked pulls the bag from the backend if it was unloaded.
func (b *base) loadLocked() error {
	if b.loaded {
		return nil
	}
	props, err := b.g.backend.Load(b.self)
	if err != nil {
		return fmt.Errorf("loading %s %d: %w", b.kind, b.id, err)
	}
	if props == nil {
		props = Properties{}
	}
	b.props = props
	b.loaded = true
	return nil
}

func (b *base) touchLocked() {
	if b.g.opts.Lite {
		return
	}
	b.lastAccessed = b.g.now()
}

func (b *base) recordLocked(key string, prev, next Value) {
	if b.g.opts.Lite {
		return
	}
	b.history = append(b.history, Change{Key: key, Old: prev, New: next, At: b.g.now()})
	if limit := b.g.opts.HistoryLimit; limit > 0 && len(b.history) > limit {
		b.history = append([]Change(nil), b.history[len(b.history)-limit:]...)
	}
}

// sortedIDs returns the members of set in ascending order.
func sortedIDs(set map[ID]struct{}) []ID {
	ids := make([]ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
