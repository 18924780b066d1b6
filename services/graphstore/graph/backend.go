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

// Backend persists entity property bags.
//
// The graph calls a Backend while holding its lock. Implementations may
// call ID and Kind on the entity they receive and nothing else.
type Backend interface {
	// Load returns the persisted bag of an entity that is not loaded.
	// It runs before the first property access after an Unload.
	Load(e Entity) (Properties, error)

	// Store persists one property after it was mutated. The empty Value
	// means the key was deleted.
	Store(e Entity, key string, v Value) error

	// Unload is the eviction hook. It runs before the in-memory bag is
	// dropped.
	Unload(e Entity) error
}

// Deleter is implemented by backends that can drop everything persisted
// for an entity. The graph calls it when the entity is removed.
type Deleter interface {
	Delete(id ID) error
}

// ScopedBackend is a Backend shared by several graphs. New calls Scope
// once and the graph only talks to the returned Backend, so graphs whose
// ids overlap never read each other's properties.
type ScopedBackend interface {
	Backend
	Scope() Backend
}

// Releaser is implemented by backends that hold state for one graph.
// Graph.Close calls Release.
type Releaser interface {
	Release() error
}

// volatile marks backends that cannot hand back an unloaded bag.
type volatile interface {
	volatile()
}

// NopBackend keeps everything in memory. It is the default Backend.
type NopBackend struct{}

func (NopBackend) volatile() {}

// Load returns an empty bag.
func (NopBackend) Load(Entity) (Properties, error) { return Properties{}, nil }

// Store does nothing.
func (NopBackend) Store(Entity, string, Value) error { return nil }

// Unload does nothing.
func (NopBackend) Unload(Entity) error { return nil }
