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
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/graphstore/services/graphstore/cache"
)

// Graph is an in-memory property graph.
//
// Description:
//
//	Graph owns an IDAllocator and an EntityStore. Nodes and relations
//	are created only through CreateNode and CreateRelation and removed
//	only through the Remove family, which keeps adjacency sets and the
//	store consistent. Every mutation clears the search memo when
//	caching is enabled.
//
// Thread Safety:
//
//	Mutations, entity accessors and cache access are serialized by one
//	mutex. A Search must not be iterated while another goroutine mutates
//	the graph.
type Graph struct {
	mu sync.Mutex

	opts      Options
	ids       IDAllocator
	id        ID
	store     *EntityStore
	memo      *cache.Memo[Entity]
	backend   Backend
	logger    *slog.Logger
	now       func() time.Time
	nodes     int
	relations int
}

// New creates an empty graph. The graph consumes id 0.
//
// Example:
//
//	g := graph.New(graph.WithCache(true))
//	alice, _ := g.CreateNode(graph.Properties{"name": graph.String("alice")})
func New(opts ...Option) *Graph {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	g := &Graph{
		opts:    o,
		store:   NewEntityStore(),
		backend: o.Backend,
		logger:  o.Logger.With(slog.String("component", "graph")),
		now:     o.Clock,
	}
	if sb, ok := o.Backend.(ScopedBackend); ok {
		g.backend = sb.Scope()
	}
	g.id = g.ids.Next()
	if o.Cache {
		g.memo = cache.NewMemo[Entity](o.CacheCapacity, o.MaxLength)
	}
	return g
}

// ID returns the graph's own id, which is always 0.
func (g *Graph) ID() ID { return g.id }

// Options returns the effective configuration.
func (g *Graph) Options() Options { return g.opts }

// Backend returns the backend this graph persists through. For a
// ScopedBackend option it is the graph's own scope.
func (g *Graph) Backend() Backend {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.backend
}

// Close releases what the graph holds in its backend and detaches it.
// The graph stays usable in memory; entities unloaded before Close
// reload with an empty bag. Closing twice is a no-op.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.backend.(Releaser)
	g.backend = NopBackend{}
	if !ok {
		return nil
	}
	if err := r.Release(); err != nil {
		return fmt.Errorf("release backend: %w", err)
	}
	return nil
}

// CreateNode creates a node with the given properties.
//
// Inputs:
//   - props: Initial properties. May be nil. Persisted through the backend.
//
// Outputs:
//   - *Node: The new node.
//   - error: ErrInvalidValue or ErrInvalidArgument for bad properties, or a
//     backend error. On a backend error the id is consumed and tombstoned.
func (g *Graph) CreateNode(props Properties) (*Node, error) {
	if err := props.validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n := &Node{
		sources:      make(map[ID]struct{}),
		destinations: make(map[ID]struct{}),
	}
	g.initLocked(&n.base, n, KindNode, props)
	if err := g.registerLocked(&n.base); err != nil {
		return nil, err
	}
	g.nodes++
	g.invalidateLocked("create_node")
	recordCreated(KindNode)
	return n, nil
}

// CreateRelation creates a relation from src to dst.
//
// Inputs:
//   - src, dst: Live nodes of this graph. They may be the same node.
//   - label: Relation label. Must not be empty.
//   - props: Initial properties. May be nil.
//
// Outputs:
//   - *Relation: The new relation, registered in src's destinations and
//     dst's sources.
//   - error: ErrNodeNotFound if an endpoint is nil, removed, or belongs to
//     another graph. ErrInvalidArgument for an empty label.
func (g *Graph) CreateRelation(src *Node, label string, dst *Node, props Properties) (*Relation, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: empty relation label", ErrInvalidArgument)
	}
	if err := props.validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkNodeLocked(src, "source"); err != nil {
		return nil, err
	}
	if err := g.checkNodeLocked(dst, "destination"); err != nil {
		return nil, err
	}

	r := &Relation{label: label, source: src.id, destination: dst.id}
	g.initLocked(&r.base, r, KindRelation, props)
	if err := g.registerLocked(&r.base); err != nil {
		return nil, err
	}
	src.destinations[r.id] = struct{}{}
	dst.sources[r.id] = struct{}{}
	g.relations++
	g.invalidateLocked("create_relation")
	recordCreated(KindRelation)
	return r, nil
}

// GetByID resolves id to a live entity.
func (g *Graph) GetByID(id ID) (Entity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Get(id)
}

// Node resolves id to a live node.
func (g *Graph) Node(id ID) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodeLocked(id)
}

// Relation resolves id to a live relation.
func (g *Graph) Relation(id ID) (*Relation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.relationLocked(id)
}

// Source returns the origin node of r.
func (g *Graph) Source(r *Relation) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r == nil || r.removed {
		return nil, fmt.Errorf("%w: relation was removed", ErrNotFound)
	}
	return g.nodeLocked(r.source)
}

// Destination returns the target node of r.
func (g *Graph) Destination(r *Relation) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r == nil || r.removed {
		return nil, fmt.Errorf("%w: relation was removed", ErrNotFound)
	}
	return g.nodeLocked(r.destination)
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes
}

// RelationCount returns the number of live relations.
func (g *Graph) RelationCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.relations
}

// NextID returns the id the next created entity will receive.
func (g *Graph) NextID() ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ids.Peek()
}

// CacheStats returns memo statistics. The second result is false when
// caching is disabled.
func (g *Graph) CacheStats() (cache.MemoStats, bool) {
	if g.memo == nil {
		return cache.MemoStats{}, false
	}
	return g.memo.Stats(), true
}

// Entities returns every live entity in ascending id order.
func (g *Graph) Entities() []Entity {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Entity, 0, g.store.Live())
	next := g.store.Values()
	for b, ok := next(); ok; b, ok = next() {
		if !b.Tombstoned() {
			out = append(out, b.Entity)
		}
	}
	return out
}

// Adjacent reports whether some relation leads from x to y.
func (g *Graph) Adjacent(x, y *Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.adjacentLocked(x, y)
}

// AdjacentTwoway reports whether a relation leads from x to y or from y to x.
func (g *Graph) AdjacentTwoway(x, y *Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.adjacentLocked(x, y) || g.adjacentLocked(y, x)
}

// Neighbors returns the destinations of x's outgoing relations, without
// duplicates, in ascending id order.
func (g *Graph) Neighbors(x *Node) []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	if x == nil || x.g != g || x.removed {
		return nil
	}
	return g.collectLocked(g.endpointsLocked(x, outgoing, ""))
}

// NeighborsTwoway returns Neighbors(x) together with the sources of x's
// incoming relations, without duplicates, in ascending id order.
func (g *Graph) NeighborsTwoway(x *Node) []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	if x == nil || x.g != g || x.removed {
		return nil
	}
	both := g.endpointsLocked(x, outgoing, "")
	both = append(both, g.endpointsLocked(x, incoming, "")...)
	return g.collectLocked(both)
}

// RemoveNode removes x and every relation incident to it.
//
// Removing a nil, foreign or already removed node is a no-op. The
// returned error only reports backend Delete failures; the in-memory
// removal always completes.
func (g *Graph) RemoveNode(x *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeNodeLocked(x)
}

// RemoveRelation detaches r from both endpoints and removes it.
// Removing a nil, foreign or already removed relation is a no-op.
func (g *Graph) RemoveRelation(r *Relation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeRelationLocked(r)
}

// Remove resolves id and removes the entity. Unknown and removed ids are
// a no-op.
func (g *Graph) Remove(id ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, err := g.store.Get(id)
	if err != nil {
		return nil
	}
	return g.removeEntityLocked(e)
}

// RemoveEntity removes e by kind. Removed or foreign entities are a no-op.
func (g *Graph) RemoveEntity(e Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeEntityLocked(e)
}

// Unload evicts e's property bag through the backend. The next property
// access reloads it.
//
// Outputs:
//   - error: ErrNoBackend with NopBackend (by value or pointer), since
//     the dropped bag could never be reloaded. ErrTombstoned for removed
//     entities.
func (g *Graph) Unload(e Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.backend.(volatile); ok {
		return ErrNoBackend
	}

	if e == nil {
		return fmt.Errorf("%w: nil entity", ErrInvalidArgument)
	}
	b := e.core()
	if b.g != g || b.removed {
		return fmt.Errorf("%w: %s %d", ErrTombstoned, b.kind, b.id)
	}
	if !b.loaded {
		return nil
	}
	if err := g.backend.Unload(e); err != nil {
		return fmt.Errorf("unloading %s %d: %w", b.kind, b.id, err)
	}
	b.props = nil
	b.loaded = false
	return nil
}

// GetByProperty scans every live entity and returns those that contain name.
func (g *Graph) GetByProperty(name string) Result {
	return g.scan(func(b *base) bool {
		_, ok := b.lookupLocked(name)
		return ok
	})
}

// GetByValue scans every live entity and returns those whose name
// property equals v exactly.
func (g *Graph) GetByValue(name string, v Value) Result {
	return g.scan(func(b *base) bool {
		got, ok := b.lookupLocked(name)
		return ok && got.Equal(v)
	})
}

func (g *Graph) scan(keep func(*base) bool) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := make(Result)
	next := g.store.Values()
	for b, ok := next(); ok; b, ok = next() {
		if b.Tombstoned() {
			continue
		}
		if keep(b.Entity.core()) {
			result[b.ID] = b.Entity
		}
	}
	return result
}

// initLocked fills the shared fields of a new entity and allocates its id.
func (g *Graph) initLocked(b *base, self Entity, kind Kind, props Properties) {
	b.g = g
	b.self = self
	b.id = g.ids.Next()
	b.kind = kind
	b.props = props.Clone()
	b.loaded = true
	b.touchLocked()
}

// registerLocked inserts a new entity and persists its initial properties.
func (g *Graph) registerLocked(b *base) error {
	if err := g.store.Insert(b.id, b.self); err != nil {
		return err
	}
	for _, key := range b.props.Keys() {
		if err := g.backend.Store(b.self, key, b.props[key]); err != nil {
			g.store.Tombstone(b.id)
			b.removed = true
			g.deleteLocked(b.id)
			return fmt.Errorf("storing %q on new %s %d: %w", key, b.kind, b.id, err)
		}
	}
	return nil
}

func (g *Graph) checkNodeLocked(n *Node, role string) error {
	if n == nil {
		return fmt.Errorf("%w: nil %s", ErrNodeNotFound, role)
	}
	if n.g != g {
		return fmt.Errorf("%w: %s %d belongs to another graph", ErrNodeNotFound, role, n.id)
	}
	if n.removed {
		return fmt.Errorf("%w: %s %d was removed", ErrNodeNotFound, role, n.id)
	}
	return nil
}

func (g *Graph) nodeLocked(id ID) (*Node, error) {
	e, err := g.store.Get(id)
	if err != nil {
		return nil, err
	}
	n, ok := e.(*Node)
	if !ok {
		return nil, fmt.Errorf("%w: id %d is a %s", ErrNodeNotFound, id, e.Kind())
	}
	return n, nil
}

func (g *Graph) relationLocked(id ID) (*Relation, error) {
	e, err := g.store.Get(id)
	if err != nil {
		return nil, err
	}
	r, ok := e.(*Relation)
	if !ok {
		return nil, fmt.Errorf("%w: id %d is a %s", ErrNotFound, id, e.Kind())
	}
	return r, nil
}

func (g *Graph) adjacentLocked(x, y *Node) bool {
	if x == nil || y == nil || x.g != g || y.g != g {
		return false
	}
	for rid := range x.destinations {
		if r, err := g.relationLocked(rid); err == nil && r.destination == y.id {
			return true
		}
	}
	return false
}

// direction selects which adjacency set a traversal follows.
type direction uint8

const (
	outgoing direction = iota
	incoming
)

// endpointsLocked returns, for each relation of n in the given direction
// and matching label (empty matches all), the node at the far end.
// Relations are visited in ascending id order; results are not deduplicated.
func (g *Graph) endpointsLocked(n *Node, dir direction, label string) []*Node {
	if n.removed {
		return nil
	}
	set := n.destinations
	if dir == incoming {
		set = n.sources
	}

	out := make([]*Node, 0, len(set))
	for _, rid := range sortedIDs(set) {
		r, err := g.relationLocked(rid)
		if err != nil {
			continue
		}
		if label != "" && r.label != label {
			continue
		}
		far := r.destination
		if dir == incoming {
			far = r.source
		}
		if other, err := g.nodeLocked(far); err == nil {
			out = append(out, other)
		}
	}
	return out
}

// collectLocked deduplicates nodes and orders them by id.
func (g *Graph) collectLocked(nodes []*Node) []*Node {
	seen := make(map[ID]struct{}, len(nodes))
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.id]; dup {
			continue
		}
		seen[n.id] = struct{}{}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (g *Graph) removeEntityLocked(e Entity) error {
	switch x := e.(type) {
	case *Node:
		return g.removeNodeLocked(x)
	case *Relation:
		return g.removeRelationLocked(x)
	default:
		return nil
	}
}

func (g *Graph) removeNodeLocked(x *Node) error {
	if x == nil || x.g != g || x.removed {
		return nil
	}

	// A self-loop sits in both sets; the union visits it once.
	incident := make(map[ID]struct{}, len(x.sources)+len(x.destinations))
	for rid := range x.sources {
		incident[rid] = struct{}{}
	}
	for rid := range x.destinations {
		incident[rid] = struct{}{}
	}

	var errs []error
	for _, rid := range sortedIDs(incident) {
		r, err := g.relationLocked(rid)
		if err != nil {
			continue
		}
		errs = append(errs, g.detachRelationLocked(r))
	}
	clear(x.sources)
	clear(x.destinations)

	g.store.Tombstone(x.id)
	x.removed = true
	g.nodes--
	errs = append(errs, g.deleteLocked(x.id))

	g.logger.Debug("node removed",
		slog.Uint64("id", uint64(x.id)),
		slog.Int("relations_removed", len(incident)),
	)
	recordRemoved(KindNode, 1)
	recordRemoved(KindRelation, len(incident))
	g.invalidateLocked("remove_node")
	return errors.Join(errs...)
}

func (g *Graph) removeRelationLocked(r *Relation) error {
	if r == nil || r.g != g || r.removed {
		return nil
	}
	err := g.detachRelationLocked(r)

	g.logger.Debug("relation removed", slog.Uint64("id", uint64(r.id)))
	recordRemoved(KindRelation, 1)
	g.invalidateLocked("remove_relation")
	return err
}

// detachRelationLocked unlinks r from both endpoints, clears it and
// tombstones it.
func (g *Graph) detachRelationLocked(r *Relation) error {
	if src, err := g.nodeLocked(r.source); err == nil {
		delete(src.destinations, r.id)
	}
	if dst, err := g.nodeLocked(r.destination); err == nil {
		delete(dst.sources, r.id)
	}
	r.clearLocked()

	g.store.Tombstone(r.id)
	r.removed = true
	g.relations--
	return g.deleteLocked(r.id)
}

// deleteLocked drops persisted state when the backend supports it.
func (g *Graph) deleteLocked(id ID) error {
	d, ok := g.backend.(Deleter)
	if !ok {
		return nil
	}
	if err := d.Delete(id); err != nil {
		return fmt.Errorf("deleting persisted entity %d: %w", id, err)
	}
	return nil
}

// invalidateLocked clears the search memo.
func (g *Graph) invalidateLocked(reason string) {
	if g.memo == nil {
		return
	}
	g.memo.Invalidate()
	g.logger.Debug("search cache invalidated", slog.String("reason", reason))
}
