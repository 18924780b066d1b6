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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAllocator(t *testing.T) {
	var a IDAllocator
	assert.Equal(t, ID(0), a.Peek())
	assert.Equal(t, ID(0), a.Next())
	assert.Equal(t, ID(1), a.Next())
	assert.Equal(t, ID(2), a.Peek())
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, ID(42), id)

	for _, bad := range []string{"", "x", "-1", "1.5", "18446744073709551615"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument, bad)
	}

	assert.Equal(t, "none", NoID.String())
	assert.Equal(t, "7", ID(7).String())
}

func TestEntityStore(t *testing.T) {
	g := New()
	a := mustNode(t, g, nil)
	b := mustNode(t, g, nil)

	s := NewEntityStore()
	require.NoError(t, s.Insert(1, a))
	require.NoError(t, s.Insert(2, b))

	t.Run("duplicate insert", func(t *testing.T) {
		assert.ErrorIs(t, s.Insert(1, b), ErrDuplicateEntity)
	})

	t.Run("nil insert", func(t *testing.T) {
		assert.ErrorIs(t, s.Insert(3, nil), ErrInvalidArgument)
	})

	t.Run("tombstone", func(t *testing.T) {
		assert.True(t, s.Tombstone(1))
		assert.False(t, s.Tombstone(1), "second tombstone is a no-op")
		assert.False(t, s.Tombstone(99))

		_, err := s.Get(1)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, s.Contains(1), "tombstones keep their key")
		assert.ErrorIs(t, s.Insert(1, a), ErrTombstoned)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, 1, s.Live())
	})

	t.Run("values include tombstones", func(t *testing.T) {
		next := s.Values()

		first, ok := next()
		require.True(t, ok)
		assert.Equal(t, ID(1), first.ID)
		assert.True(t, first.Tombstoned())

		second, ok := next()
		require.True(t, ok)
		assert.Equal(t, ID(2), second.ID)
		assert.Same(t, b, second.Entity)

		_, ok = next()
		assert.False(t, ok)

		require.NoError(t, s.Insert(5, a))
		_, ok = next()
		assert.False(t, ok, "an exhausted sequence stays exhausted")
	})

	t.Run("values is lazy", func(t *testing.T) {
		lazy := NewEntityStore()
		next := lazy.Values()
		require.NoError(t, lazy.Insert(1, a))

		first, ok := next()
		require.True(t, ok, "entries inserted before the first pull are seen")
		assert.Equal(t, ID(1), first.ID)
	})
}
