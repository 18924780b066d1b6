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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is the five node, six relation graph used across the tests.
type fixture struct {
	g                                *Graph
	node1, node2, node3, node4, node5 *Node
	r1, r2, r3, r4, r5, r6           *Relation
}

func props(t *testing.T, m map[string]any) Properties {
	t.Helper()
	p, err := PropertiesOf(m)
	require.NoError(t, err)
	return p
}

func mustNode(t *testing.T, g *Graph, m map[string]any) *Node {
	t.Helper()
	n, err := g.CreateNode(props(t, m))
	require.NoError(t, err)
	return n
}

func mustRelation(t *testing.T, g *Graph, src *Node, label string, dst *Node) *Relation {
	t.Helper()
	r, err := g.CreateRelation(src, label, dst, nil)
	require.NoError(t, err)
	return r
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	g := New(opts...)
	f := &fixture{g: g}
	f.node1 = mustNode(t, g, map[string]any{"name": "node1", "age": 2, "job": "work1"})
	f.node2 = mustNode(t, g, map[string]any{"name": "node2", "age": 4, "job": "work2"})
	f.node3 = mustNode(t, g, map[string]any{"name": "node3", "job": "work1"})
	f.node4 = mustNode(t, g, map[string]any{"name": "node4", "age": 2})
	f.node5 = mustNode(t, g, map[string]any{"name": "node5", "age": 99, "job": "work1"})
	f.r1 = mustRelation(t, g, f.node1, "friend", f.node4)
	f.r2 = mustRelation(t, g, f.node1, "co_worker", f.node3)
	f.r3 = mustRelation(t, g, f.node5, "boss", f.node1)
	f.r4 = mustRelation(t, g, f.node5, "boss", f.node3)
	f.r5 = mustRelation(t, g, f.node4, "husband", f.node2)
	f.r6 = mustRelation(t, g, f.node2, "wife", f.node4)
	return f
}

func ids[E Entity](items ...E) []ID {
	out := make([]ID, len(items))
	for i, e := range items {
		out[i] = e.ID()
	}
	return out
}

func TestGraph_IDsAreSequentialAcrossKinds(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, ID(0), f.g.ID())
	assert.Equal(t, []ID{1, 2, 3, 4, 5}, ids(f.node1, f.node2, f.node3, f.node4, f.node5))
	assert.Equal(t, []ID{6, 7, 8, 9, 10, 11}, ids(f.r1, f.r2, f.r3, f.r4, f.r5, f.r6))
	assert.Equal(t, ID(12), f.g.NextID())

	require.NoError(t, f.g.RemoveNode(f.node5))
	n := mustNode(t, f.g, nil)
	assert.Equal(t, ID(12), n.ID(), "ids are never reused")
}

func TestGraph_GetByID(t *testing.T) {
	f := newFixture(t)

	e, err := f.g.GetByID(3)
	require.NoError(t, err)
	assert.Same(t, f.node3, e)

	_, err = f.g.GetByID(0)
	assert.ErrorIs(t, err, ErrNotFound, "the graph id is not an entity")

	_, err = f.g.GetByID(999)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.g.RemoveRelation(f.r1))
	_, err = f.g.GetByID(f.r1.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGraph_NodeAndRelationLookup(t *testing.T) {
	f := newFixture(t)

	n, err := f.g.Node(1)
	require.NoError(t, err)
	assert.Same(t, f.node1, n)

	_, err = f.g.Node(f.r1.ID())
	assert.ErrorIs(t, err, ErrNodeNotFound)

	r, err := f.g.Relation(f.r3.ID())
	require.NoError(t, err)
	assert.Equal(t, "boss", r.Label())

	src, err := f.g.Source(r)
	require.NoError(t, err)
	assert.Same(t, f.node5, src)

	dst, err := f.g.Destination(r)
	require.NoError(t, err)
	assert.Same(t, f.node1, dst)

	assert.Equal(t, 5, f.g.NodeCount())
	assert.Equal(t, 6, f.g.RelationCount())
}

func TestGraph_CreateRelationValidation(t *testing.T) {
	f := newFixture(t)
	other := New()
	foreign := mustNode(t, other, nil)

	tests := []struct {
		name    string
		src     *Node
		label   string
		dst     *Node
		wantErr error
	}{
		{name: "nil source", src: nil, label: "x", dst: f.node1, wantErr: ErrNodeNotFound},
		{name: "nil destination", src: f.node1, label: "x", dst: nil, wantErr: ErrNodeNotFound},
		{name: "foreign node", src: f.node1, label: "x", dst: foreign, wantErr: ErrNodeNotFound},
		{name: "empty label", src: f.node1, label: "", dst: f.node2, wantErr: ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := f.g.NextID()
			_, err := f.g.CreateRelation(tt.src, tt.label, tt.dst, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, next, f.g.NextID(), "rejected creations do not consume ids")
		})
	}

	t.Run("removed endpoint", func(t *testing.T) {
		require.NoError(t, f.g.RemoveNode(f.node2))
		_, err := f.g.CreateRelation(f.node1, "x", f.node2, nil)
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})
}

func TestGraph_CreateWiresAdjacency(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []ID{f.r1.ID(), f.r2.ID()}, f.node1.Destinations())
	assert.Equal(t, []ID{f.r3.ID()}, f.node1.Sources())
	assert.Equal(t, []ID{f.r5.ID()}, f.node4.Destinations())
	assert.Equal(t, []ID{f.r1.ID(), f.r6.ID()}, f.node4.Sources())
	assert.Equal(t, f.node1.ID(), f.r1.Source())
	assert.Equal(t, f.node4.ID(), f.r1.Destination())
}

func TestGraph_Adjacent(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		x, y   *Node
		oneway bool
		twoway bool
	}{
		{name: "outgoing", x: f.node1, y: f.node4, oneway: true, twoway: true},
		{name: "incoming only", x: f.node4, y: f.node1, oneway: false, twoway: true},
		{name: "both directions", x: f.node4, y: f.node2, oneway: true, twoway: true},
		{name: "unrelated", x: f.node3, y: f.node2, oneway: false, twoway: false},
		{name: "self", x: f.node1, y: f.node1, oneway: false, twoway: false},
		{name: "nil", x: nil, y: f.node1, oneway: false, twoway: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.oneway, f.g.Adjacent(tt.x, tt.y))
			assert.Equal(t, tt.twoway, f.g.AdjacentTwoway(tt.x, tt.y))
			assert.Equal(t, tt.twoway, f.g.AdjacentTwoway(tt.y, tt.x), "two-way adjacency is symmetric")
		})
	}
}

func TestGraph_Neighbors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []ID{3, 4}, ids(f.g.Neighbors(f.node1)...))
	assert.Equal(t, []ID{3, 4, 5}, ids(f.g.NeighborsTwoway(f.node1)...))
	assert.Empty(t, f.g.Neighbors(f.node3))
	assert.Equal(t, []ID{1, 5}, ids(f.g.NeighborsTwoway(f.node3)...))

	// Two relations to the same node are reported once.
	mustRelation(t, f.g, f.node1, "friend_again", f.node4)
	assert.Equal(t, []ID{3, 4}, ids(f.g.Neighbors(f.node1)...))

	// neighbors_twoway(x) = neighbors(x) ∪ sources of x's incoming relations
	for _, n := range []*Node{f.node1, f.node2, f.node3, f.node4, f.node5} {
		want := map[ID]bool{}
		for _, m := range f.g.Neighbors(n) {
			want[m.ID()] = true
		}
		for _, rid := range n.Sources() {
			r, err := f.g.Relation(rid)
			require.NoError(t, err)
			want[r.Source()] = true
		}
		got := map[ID]bool{}
		for _, m := range f.g.NeighborsTwoway(n) {
			got[m.ID()] = true
		}
		assert.Equal(t, want, got, "node %d", n.ID())
	}
}

func TestGraph_RemoveNodeCascades(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.g.RemoveNode(f.node2))

	for _, r := range []*Relation{f.r5, f.r6} {
		_, err := f.g.GetByID(r.ID())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, NoID, r.Source())
		assert.Equal(t, NoID, r.Destination())
		assert.Empty(t, r.Label())
	}
	assert.Equal(t, []ID{f.r1.ID()}, f.node4.Sources())
	assert.Empty(t, f.node4.Destinations())

	for _, e := range []Entity{f.node1, f.node3, f.node4, f.node5, f.r1, f.r2, f.r3, f.r4} {
		_, err := f.g.GetByID(e.ID())
		assert.NoError(t, err, "entity %d survives", e.ID())
	}

	// No live relation still references the removed node, and no live
	// node still lists a removed relation.
	for _, e := range f.g.Entities() {
		switch x := e.(type) {
		case *Relation:
			assert.NotEqual(t, f.node2.ID(), x.Source())
			assert.NotEqual(t, f.node2.ID(), x.Destination())
		case *Node:
			for _, rid := range append(x.Sources(), x.Destinations()...) {
				_, err := f.g.Relation(rid)
				assert.NoError(t, err, "node %d lists dead relation %d", x.ID(), rid)
			}
		}
	}

	assert.Equal(t, 4, f.g.NodeCount())
	assert.Equal(t, 4, f.g.RelationCount())
}

func TestGraph_RemoveSelfLoop(t *testing.T) {
	g := New()
	n := mustNode(t, g, nil)
	loop := mustRelation(t, g, n, "self", n)

	assert.True(t, g.Adjacent(n, n))
	require.NoError(t, g.RemoveNode(n))

	assert.Equal(t, 0, g.RelationCount())
	_, err := g.GetByID(loop.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGraph_RemoveIsIdempotent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.g.Remove(f.node1.ID()))
	require.NoError(t, f.g.Remove(f.node1.ID()))
	require.NoError(t, f.g.RemoveEntity(f.node1))
	require.NoError(t, f.g.RemoveNode(f.node1))
	require.NoError(t, f.g.Remove(999))
	require.NoError(t, f.g.RemoveEntity(nil))
	require.NoError(t, f.g.RemoveRelation(f.r1), "already removed by the cascade")

	assert.Equal(t, 4, f.g.NodeCount())
	assert.Equal(t, 3, f.g.RelationCount())
}

func TestGraph_RemoveDispatchesByKind(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.g.RemoveEntity(f.r2))
	assert.False(t, f.g.Adjacent(f.node1, f.node3))
	assert.Equal(t, 5, f.g.NodeCount())

	require.NoError(t, f.g.Remove(f.node3.ID()))
	assert.Equal(t, 4, f.g.NodeCount())
	assert.Equal(t, []ID{f.r3.ID()}, f.node5.Destinations())
}

func TestGraph_RemovedEntityRejectsMutation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.g.RemoveNode(f.node4))

	err := f.node4.Set("age", Int(3))
	assert.True(t, errors.Is(err, ErrTombstoned))
	assert.ErrorIs(t, f.node4.Delete("age"), ErrTombstoned)
}

func TestGraph_GetByPropertyAndValue(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []ID{1, 2, 3, 5}, f.g.GetByProperty("job").IDs())
	assert.Equal(t, []ID{1, 4}, f.g.GetByValue("age", Int(2)).IDs())
	assert.Empty(t, f.g.GetByValue("age", Float(2)), "no coercion between int and float")
	assert.Empty(t, f.g.GetByValue("age", String("2")))
	assert.Empty(t, f.g.GetByProperty("missing"))
}

func TestGraph_Entities(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.g.RemoveRelation(f.r6))

	got := ids(f.g.Entities()...)
	assert.Equal(t, []ID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}
