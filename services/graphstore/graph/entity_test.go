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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend records backend calls and keeps bags in a map.
type memoryBackend struct {
	bags     map[ID]Properties
	loads    int
	unloads  int
	deleted  []ID
	storeErr error
	released bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{bags: make(map[ID]Properties)}
}

func (m *memoryBackend) Load(e Entity) (Properties, error) {
	m.loads++
	return m.bags[e.ID()].Clone(), nil
}

func (m *memoryBackend) Store(e Entity, key string, v Value) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	bag, ok := m.bags[e.ID()]
	if !ok {
		bag = Properties{}
		m.bags[e.ID()] = bag
	}
	if v.IsZero() {
		delete(bag, key)
		return nil
	}
	bag[key] = v
	return nil
}

func (m *memoryBackend) Unload(Entity) error {
	m.unloads++
	return nil
}

func (m *memoryBackend) Delete(id ID) error {
	m.deleted = append(m.deleted, id)
	delete(m.bags, id)
	return nil
}

func (m *memoryBackend) Release() error {
	m.released = true
	m.bags = make(map[ID]Properties)
	return nil
}

// scopedBackend hands every graph its own memoryBackend.
type scopedBackend struct {
	*memoryBackend
	scopes []*memoryBackend
}

func (s *scopedBackend) Scope() Backend {
	m := newMemoryBackend()
	s.scopes = append(s.scopes, m)
	return m
}

// fakeClock advances one second per call.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestEntity_PropertyAccess(t *testing.T) {
	g := New()
	n := mustNode(t, g, map[string]any{"name": "Eric", "age": 31})

	v, err := n.Get("name")
	require.NoError(t, err)
	assert.True(t, String("Eric").Equal(v))

	_, err = n.Get("job")
	assert.ErrorIs(t, err, ErrMissingProperty)

	_, ok := n.Lookup("job")
	assert.False(t, ok)
	assert.True(t, n.Has("age"))

	require.NoError(t, n.Set("job", String("QA")))
	assert.Equal(t, []string{"age", "job", "name"}, n.Keys())

	require.NoError(t, n.Delete("age"))
	require.NoError(t, n.Delete("age"), "deleting an absent key is a no-op")
	assert.False(t, n.Has("age"))

	bag, err := n.Properties()
	require.NoError(t, err)
	bag["mutated"] = Int(1)
	assert.False(t, n.Has("mutated"), "Properties returns a copy")
}

func TestEntity_SetValidation(t *testing.T) {
	g := New()
	n := mustNode(t, g, nil)

	assert.ErrorIs(t, n.Set("", Int(1)), ErrInvalidArgument)
	assert.ErrorIs(t, n.Set("x", Value{}), ErrInvalidValue)

	_, err := g.CreateNode(Properties{"x": {}})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestEntity_Instrumentation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := New(WithClock(clock.Now), WithHistoryLimit(2))
	n := mustNode(t, g, map[string]any{"name": "Josh"})

	created := n.LastAccessed()
	assert.False(t, created.IsZero())

	n.Has("name")
	assert.True(t, n.LastAccessed().After(created), "reads refresh the access time")

	require.NoError(t, n.Set("age", Int(24)))
	require.NoError(t, n.Set("age", Int(25)))
	require.NoError(t, n.Set("name", String("Joshua")))

	history := n.History()
	require.Len(t, history, 2, "history is bounded")
	assert.Equal(t, "age", history[0].Key)
	assert.True(t, Int(24).Equal(history[0].Old))
	assert.True(t, Int(25).Equal(history[0].New))
	assert.Equal(t, "name", history[1].Key)
	assert.True(t, String("Josh").Equal(history[1].Old))
}

func TestEntity_LiteMode(t *testing.T) {
	g := New(WithLite(true))
	n := mustNode(t, g, map[string]any{"name": "al"})

	require.NoError(t, n.Set("age", Int(30)))
	n.Has("age")

	assert.True(t, n.LastAccessed().IsZero())
	assert.Empty(t, n.History())
}

func TestEntity_PersistsThroughBackend(t *testing.T) {
	backend := newMemoryBackend()
	g := New(WithBackend(backend))

	n := mustNode(t, g, map[string]any{"name": "alan", "new": true})
	assert.Equal(t, Properties{"name": String("alan"), "new": Bool(true)}, backend.bags[n.ID()])

	require.NoError(t, n.Set("job", String("Tech")))
	require.NoError(t, n.Delete("new"))
	assert.Equal(t, Properties{"name": String("alan"), "job": String("Tech")}, backend.bags[n.ID()])
}

func TestGraph_Unload(t *testing.T) {
	backend := newMemoryBackend()
	g := New(WithBackend(backend))
	n := mustNode(t, g, map[string]any{"name": "eric"})

	require.NoError(t, g.Unload(n))
	assert.False(t, n.Loaded())
	assert.Equal(t, 1, backend.unloads)
	assert.Equal(t, 0, backend.loads)

	require.NoError(t, g.Unload(n), "unloading an unloaded entity is a no-op")
	assert.Equal(t, 1, backend.unloads)

	v, err := n.Get("name")
	require.NoError(t, err)
	assert.True(t, String("eric").Equal(v))
	assert.True(t, n.Loaded())
	assert.Equal(t, 1, backend.loads)

	require.NoError(t, g.RemoveNode(n))
	assert.ErrorIs(t, g.Unload(n), ErrTombstoned)
}

func TestGraph_UnloadRequiresBackend(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "default"},
		{name: "nop value", opts: []Option{WithBackend(NopBackend{})}},
		{name: "nop pointer", opts: []Option{WithBackend(&NopBackend{})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.opts...)
			n := mustNode(t, g, map[string]any{"name": "eric"})

			assert.ErrorIs(t, g.Unload(n), ErrNoBackend)
			assert.True(t, n.Loaded())
			assert.True(t, n.Has("name"))
		})
	}
}

func TestGraph_ScopedBackendIsolatesGraphs(t *testing.T) {
	shared := &scopedBackend{memoryBackend: newMemoryBackend()}

	old := New(WithBackend(shared))
	oldNode := mustNode(t, old, map[string]any{"name": "old", "secret": 7})
	next := New(WithBackend(shared))
	n := mustNode(t, next, map[string]any{"name": "new"})
	require.Equal(t, oldNode.ID(), n.ID(), "ids restart in every graph")

	require.Len(t, shared.scopes, 2)
	assert.Same(t, shared.scopes[0], old.Backend())
	assert.Same(t, shared.scopes[1], next.Backend())
	assert.Same(t, shared, next.Options().Backend, "options keep the shared backend")

	require.NoError(t, next.Unload(n))
	bag, err := n.Properties()
	require.NoError(t, err)
	assert.Equal(t, Properties{"name": String("new")}, bag)
	assert.Empty(t, shared.bags)

	require.NoError(t, old.Close())
	assert.True(t, shared.scopes[0].released)
	assert.False(t, shared.scopes[1].released)
	assert.ErrorIs(t, old.Unload(oldNode), ErrNoBackend)
	assert.True(t, oldNode.Has("secret"), "the in-memory bag survives Close")
	require.NoError(t, old.Close())
}

func TestGraph_RemoveDeletesPersistedState(t *testing.T) {
	backend := newMemoryBackend()
	f := newFixture(t, WithBackend(backend))

	require.NoError(t, f.g.RemoveNode(f.node2))
	assert.ElementsMatch(t, []ID{f.r5.ID(), f.r6.ID(), f.node2.ID()}, backend.deleted)
	_, ok := backend.bags[f.node2.ID()]
	assert.False(t, ok)
}

func TestGraph_CreateFailsWhenBackendFails(t *testing.T) {
	backend := newMemoryBackend()
	backend.storeErr = errors.New("disk full")
	g := New(WithBackend(backend))

	_, err := g.CreateNode(Properties{"name": String("x")})
	require.Error(t, err)
	assert.Equal(t, 0, g.NodeCount())

	_, err = g.GetByID(1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ID(2), g.NextID(), "the failed id stays consumed")

	// Nodes without properties never touch Store.
	n, err := g.CreateNode(nil)
	require.NoError(t, err)
	assert.Equal(t, ID(2), n.ID())
}
