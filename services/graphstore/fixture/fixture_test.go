// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixture

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

const samplePath = "testdata/sample.yaml"

func TestLoad_Sample(t *testing.T) {
	loaded, err := Load(samplePath)
	require.NoError(t, err)
	g := loaded.Graph

	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 3, g.RelationCount())

	eric := loaded.Nodes["eric"]
	require.NotNil(t, eric)
	assert.Equal(t, graph.ID(1), eric.ID())
	assert.Equal(t, graph.ID(4), loaded.Nodes["alan"].ID())

	age, err := eric.Get("age")
	require.NoError(t, err)
	assert.True(t, graph.Int(31).Equal(age))

	likes, err := loaded.Nodes["al"].Get("likes")
	require.NoError(t, err)
	assert.Equal(t, graph.ValueString, likes.ElemKind())

	isNew, err := loaded.Nodes["alan"].Get("new")
	require.NoError(t, err)
	assert.True(t, graph.Bool(true).Equal(isNew))

	assert.True(t, g.Adjacent(eric, loaded.Nodes["josh"]))
	assert.False(t, g.Adjacent(loaded.Nodes["josh"], eric))

	s := g.Search()
	require.NoError(t, s.Dispatch("value", "name", "Josh"))
	require.NoError(t, s.Dispatch("relations_from"))
	result, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []graph.ID{loaded.Nodes["alan"].ID()}, result.IDs())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "unknown field",
			doc:     "nodes: []\nedges: []\n",
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "empty key",
			doc:     "nodes:\n  - properties: {a: 1}\n",
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "duplicate key",
			doc:     "nodes:\n  - key: a\n  - key: a\n",
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "dangling source",
			doc:     "nodes:\n  - key: a\nrelations:\n  - {source: x, label: l, destination: a}\n",
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "dangling destination",
			doc:     "nodes:\n  - key: a\nrelations:\n  - {source: a, label: l, destination: x}\n",
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "empty label",
			doc:     "nodes:\n  - key: a\nrelations:\n  - {source: a, label: '', destination: a}\n",
			wantErr: graph.ErrInvalidArgument,
		},
		{
			name:    "nested map value",
			doc:     "nodes:\n  - key: a\n    properties: {address: {city: x}}\n",
			wantErr: graph.ErrInvalidValue,
		},
		{
			name:    "mixed list",
			doc:     "nodes:\n  - key: a\n    properties: {tags: [1, x]}\n",
			wantErr: graph.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(tt.doc))
			if err == nil {
				_, err = doc.Build()
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	doc, err := Decode(strings.NewReader(""))
	require.NoError(t, err)

	loaded, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Graph.NodeCount())
}

func TestDump_RoundTrip(t *testing.T) {
	loaded, err := Load(samplePath)
	require.NoError(t, err)

	// Removed entities are not dumped.
	require.NoError(t, loaded.Graph.RemoveNode(loaded.Nodes["alan"]))

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, loaded.Graph))

	doc, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Relations, 2)
	assert.Equal(t, "1", doc.Nodes[0].Key)
	assert.Equal(t, "Mentor", doc.Relations[0].Label)

	again, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, again.Graph.NodeCount())
	assert.Equal(t, 2, again.Graph.RelationCount())

	for _, key := range []string{"1", "2", "3"} {
		orig, err := loaded.Graph.Node(mustParseID(t, key))
		require.NoError(t, err)
		want, err := orig.Properties()
		require.NoError(t, err)
		got, err := again.Nodes[key].Properties()
		require.NoError(t, err)
		assert.Equal(t, want.Map(), got.Map(), "node %s", key)
	}
}

func mustParseID(t *testing.T, s string) graph.ID {
	t.Helper()
	id, err := graph.ParseID(s)
	require.NoError(t, err)
	return id
}
