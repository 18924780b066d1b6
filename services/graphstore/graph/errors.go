// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides an in-memory, mutable property graph.
//
// The graph stores uniquely identified nodes and directed, labeled
// relations between them. Every entity carries a schema-less property
// bag. Queries are built with Search, a chainable and lazily evaluated
// builder that is materialized with Execute.
//
// # Identity Model
//
// The graph itself, every node and every relation draw ids from one
// monotonic sequence. The graph is always id 0. Ids are never reused:
// removing an entity leaves a tombstone in the store so the id can never
// resolve to a live entity again.
//
// Nodes and relations refer to each other by id only. A node records the
// ids of its incoming (Sources) and outgoing (Destinations) relations; a
// relation records the ids of its two endpoint nodes. References are
// resolved through the graph's entity store on demand.
//
// # Thread Safety
//
// A single mutex per Graph serializes every mutation, every entity
// accessor and every access to the search cache. Searches pull their
// input one item at a time and do not hold the lock between pulls.
// Iterating a Search while another goroutine mutates the same graph is
// NOT supported: results are unspecified.
//
// # Lifecycle
//
// A typical lifecycle:
//  1. Create with New(opts...)
//  2. Populate with CreateNode() and CreateRelation()
//  3. Query with Search(), adjacency helpers, GetByID()
//  4. Remove with Remove(), RemoveNode() or RemoveRelation()
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNotFound is returned when an id is unknown or tombstoned.
	ErrNotFound = errors.New("entity not found")

	// ErrMissingProperty is returned by Entity.Get when the key is absent.
	ErrMissingProperty = errors.New("missing property")

	// ErrInvalidArgument is returned when a dispatched search step has the
	// wrong number of arguments or an argument cannot be parsed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownMethod is returned when dispatching a name that is not a
	// public search step.
	ErrUnknownMethod = errors.New("unknown search method")

	// ErrDuplicateEntity is returned when inserting an id that is already
	// bound to a live entity.
	ErrDuplicateEntity = errors.New("duplicate entity id")

	// ErrTombstoned is returned when reusing or mutating a removed entity.
	ErrTombstoned = errors.New("entity has been removed")

	// ErrNodeNotFound is returned when a relation endpoint is not a live
	// node of this graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidValue is returned when a Go value has no property Value
	// representation, or a list mixes element kinds.
	ErrInvalidValue = errors.New("invalid property value")

	// ErrNoBackend is returned by Unload when the graph has no persistence
	// backend to reload evicted properties from.
	ErrNoBackend = errors.New("no persistence backend configured")
)
