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
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/graphstore/services/graphstore/cache"
)

// contextCheckInterval is how many results Execute drains between
// context checks.
const contextCheckInterval = 100

// stream is the lazy entity sequence a Search threads through its steps.
type stream = cache.Iterator[Entity]

// Result is the materialized output of a Search, keyed by id.
type Result map[ID]Entity

// Has reports whether id is in the result.
func (r Result) Has(id ID) bool {
	_, ok := r[id]
	return ok
}

// IDs returns the ids in ascending order.
func (r Result) IDs() []ID {
	ids := make([]ID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sorted returns the entities in ascending id order.
func (r Result) Sorted() []Entity {
	ids := r.IDs()
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = r[id]
	}
	return out
}

// Search is a one-shot, chainable query builder.
//
// Description:
//
//	Each step replaces the internal lazy sequence and returns the
//	receiver. Nothing is evaluated until Execute drains the sequence.
//	An error raised by a step is kept and returned by Execute; later
//	steps are skipped.
//
//	A Search is single-use: once Execute has drained it, a second
//	Execute returns an empty Result. Request a fresh Search per query.
//
// Caching:
//
//	When the graph was created WithCache(true), every step is keyed by
//	the signature of the chain up to and including it. A step whose key
//	is memoized replays the stored result instead of recomputing it.
//
// Thread Safety: A Search is owned by one goroutine. See the package
// documentation for the rules on concurrent mutation.
type Search struct {
	g     *Graph
	seq   stream
	chain strings.Builder
	steps int
	err   error
}

// Search starts a query over every live entity.
func (g *Graph) Search() *Search {
	return &Search{g: g, seq: g.liveEntities()}
}

// liveEntities pulls live entities from the store one at a time,
// taking the graph lock per pull.
func (g *Graph) liveEntities() stream {
	g.mu.Lock()
	next := g.store.Values()
	g.mu.Unlock()

	return func() (Entity, bool) {
		g.mu.Lock()
		defer g.mu.Unlock()
		for {
			b, ok := next()
			if !ok {
				return nil, false
			}
			if !b.Tombstoned() {
				return b.Entity, true
			}
		}
	}
}

// Err returns the sticky error, if any step failed.
func (s *Search) Err() error { return s.err }

// Chain returns the signature of the steps applied so far, for example
// `/value("name","Josh")/relations_from(,)`.
func (s *Search) Chain() string { return s.chain.String() }

// OnlyNodes keeps nodes.
func (s *Search) OnlyNodes() *Search {
	return s.step("_nodes", nil, func(in stream) stream {
		return filter(in, func(e Entity) bool { return e.Kind() == KindNode })
	})
}

// OnlyRelations keeps relations.
func (s *Search) OnlyRelations() *Search {
	return s.step("_relations", nil, func(in stream) stream {
		return filter(in, func(e Entity) bool { return e.Kind() == KindRelation })
	})
}

// Property keeps entities whose bag contains name.
func (s *Search) Property(name string) *Search {
	return s.step("property", []string{quote(name)}, func(in stream) stream {
		return filter(in, func(e Entity) bool { return e.Has(name) })
	})
}

// Value keeps entities whose name property equals v exactly.
func (s *Search) Value(name string, v Value) *Search {
	return s.step("value", []string{quote(name), v.signature()}, func(in stream) stream {
		return filter(in, func(e Entity) bool {
			got, ok := e.Lookup(name)
			return ok && got.Equal(v)
		})
	})
}

// GetByID narrows the search to the single entity with the given id.
// The previous sequence is discarded. An unknown or removed id makes
// the search fail with ErrNotFound. The id is resolved again when the
// step runs, so an entity removed in between yields nothing.
func (s *Search) GetByID(id ID) *Search {
	if s.err != nil {
		return s
	}
	if _, err := s.g.GetByID(id); err != nil {
		s.err = err
		return s
	}
	return s.step("get_by_id", []string{id.String()}, func(stream) stream {
		return resolveOnce(func() (Entity, error) { return s.g.GetByID(id) })
	})
}

// RelationOption scopes RelationsTo, RelationsFrom and Relations.
type RelationOption func(*relationScope)

type relationScope struct {
	node   *Node
	nodeID ID
	byID   bool
	label  string
}

// WithNode uses n as the only scope node.
func WithNode(n *Node) RelationOption {
	return func(o *relationScope) {
		o.node = n
		o.byID = false
	}
}

// WithNodeID resolves id like GetByID and uses it as the only scope node.
func WithNodeID(id ID) RelationOption {
	return func(o *relationScope) {
		o.nodeID = id
		o.byID = true
		o.node = nil
	}
}

// WithLabel keeps only relations with the given label.
func WithLabel(label string) RelationOption {
	return func(o *relationScope) {
		o.label = label
	}
}

// RelationsTo yields the source of every incoming relation of each
// scope node.
func (s *Search) RelationsTo(opts ...RelationOption) *Search {
	return s.traversal("relations_to", opts, func(scope stream, label string) stream {
		return s.g.traverse(scope, incoming, label)
	})
}

// RelationsFrom yields the destination of every outgoing relation of
// each scope node.
func (s *Search) RelationsFrom(opts ...RelationOption) *Search {
	return s.traversal("relations_from", opts, func(scope stream, label string) stream {
		return s.g.traverse(scope, outgoing, label)
	})
}

// Relations yields the RelationsFrom results followed by the
// RelationsTo results over the same scope. Nothing is deduplicated;
// Execute collapses duplicates by id.
func (s *Search) Relations(opts ...RelationOption) *Search {
	return s.traversal("relations", opts, func(scope stream, label string) stream {
		// The scope is consumed by the outgoing pass, so its nodes are
		// recorded and replayed for the incoming pass.
		var seen []Entity
		recorded := func() (Entity, bool) {
			e, ok := scope()
			if ok {
				seen = append(seen, e)
			}
			return e, ok
		}
		return concat(
			s.g.traverse(recorded, outgoing, label),
			func() stream { return s.g.traverse(cache.Replay(seen), incoming, label) },
		)
	})
}

// traversal resolves the scope options and installs a traversal step.
func (s *Search) traversal(name string, opts []RelationOption, build func(scope stream, label string) stream) *Search {
	if s.err != nil {
		return s
	}

	var o relationScope
	for _, opt := range opts {
		opt(&o)
	}

	var node *Node
	switch {
	case o.byID:
		n, err := s.g.Node(o.nodeID)
		if err != nil {
			s.err = err
			return s
		}
		node = n
	case o.node != nil:
		s.g.mu.Lock()
		err := s.g.checkNodeLocked(o.node, "scope")
		s.g.mu.Unlock()
		if err != nil {
			s.err = err
			return s
		}
		node = o.node
	}

	nodeArg := ""
	if node != nil {
		nodeArg = node.id.String()
	}
	return s.step(name, []string{nodeArg, quote(o.label)}, func(in stream) stream {
		scope := in
		if node != nil {
			id := node.id
			scope = resolveOnce(func() (Entity, error) { return s.g.Node(id) })
		}
		return build(scope, o.label)
	})
}

// step appends a step to the chain, serving it from the memo when possible.
func (s *Search) step(name string, args []string, build func(stream) stream) *Search {
	if s.err != nil {
		return s
	}

	s.steps++
	s.chain.WriteString("/")
	s.chain.WriteString(name)
	s.chain.WriteString("(")
	s.chain.WriteString(strings.Join(args, ","))
	s.chain.WriteString(")")

	memo := s.g.memo
	if memo == nil {
		s.seq = build(s.seq)
		return s
	}

	prev := s.seq
	s.seq = memo.Wrap(s.chain.String(), func() stream { return build(prev) })
	return s
}

// Execute drains the search into a Result.
//
// Inputs:
//   - ctx: Checked every contextCheckInterval results.
//
// Outputs:
//   - Result: The entities produced by the chain, keyed by id. Empty on
//     every call after the first.
//   - error: The sticky step error, or the context error wrapped.
func (s *Search) Execute(ctx context.Context) (Result, error) {
	ctx, span := startSearchSpan(ctx, s.Chain(), s.steps)
	defer span.End()
	start := time.Now()

	if s.err != nil {
		span.RecordError(s.err)
		span.SetStatus(codes.Error, s.err.Error())
		recordSearchMetrics(ctx, time.Since(start), 0, false)
		return nil, s.err
	}

	result := make(Result)
	for i := 0; ; i++ {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				s.seq = cache.Replay[Entity](nil)
				span.RecordError(err)
				span.SetStatus(codes.Error, "search cancelled")
				recordSearchMetrics(ctx, time.Since(start), 0, false)
				return nil, fmt.Errorf("search cancelled: %w", err)
			}
		}
		e, ok := s.seq()
		if !ok {
			break
		}
		result[e.ID()] = e
	}

	setSearchSpanResult(span, len(result), s.g.memo != nil)
	recordSearchMetrics(ctx, time.Since(start), len(result), true)
	return result, nil
}

// traverse maps each node pulled from scope to the far ends of its
// relations in dir. Non-node entities in scope are skipped. Each scope
// node's relations are resolved when that node is pulled.
func (g *Graph) traverse(scope stream, dir direction, label string) stream {
	var pending []*Node
	return func() (Entity, bool) {
		for {
			if len(pending) > 0 {
				n := pending[0]
				pending = pending[1:]
				return n, true
			}
			e, ok := scope()
			if !ok {
				return nil, false
			}
			n, isNode := e.(*Node)
			if !isNode {
				continue
			}
			g.mu.Lock()
			pending = g.endpointsLocked(n, dir, label)
			g.mu.Unlock()
		}
	}
}

// resolveOnce yields the entity returned by resolve on the first pull,
// or nothing when resolve fails.
func resolveOnce(resolve func() (Entity, error)) stream {
	pulled := false
	return func() (Entity, bool) {
		if pulled {
			return nil, false
		}
		pulled = true
		e, err := resolve()
		if err != nil {
			return nil, false
		}
		return e, true
	}
}

func filter(in stream, keep func(Entity) bool) stream {
	return func() (Entity, bool) {
		for {
			e, ok := in()
			if !ok {
				return nil, false
			}
			if keep(e) {
				return e, true
			}
		}
	}
}

// concat yields first, then the stream built by second once first is
// exhausted.
func concat(first stream, second func() stream) stream {
	cur := first
	switched := false
	return func() (Entity, bool) {
		for {
			if e, ok := cur(); ok {
				return e, true
			}
			if switched {
				return nil, false
			}
			switched = true
			cur = second()
		}
	}
}

// quote renders a string argument for a chain signature.
func quote(s string) string {
	if s == "" {
		return ""
	}
	return fmt.Sprintf("%q", s)
}
