// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixture loads graphs from YAML documents and writes them back.
//
// A document names every node with a key that is local to the document.
// Relations refer to their endpoints by key:
//
//	nodes:
//	  - key: eric
//	    properties: {name: Eric, age: 31}
//	  - key: josh
//	    properties: {name: Josh}
//	relations:
//	  - {source: eric, label: Mentor, destination: josh}
//
// Nodes are created in document order, then relations, so entity ids are
// predictable for a given document.
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

// ErrInvalidFixture is returned for documents that cannot become a graph.
var ErrInvalidFixture = errors.New("invalid fixture")

// Document is the YAML form of a graph.
type Document struct {
	Nodes     []NodeSpec     `yaml:"nodes"`
	Relations []RelationSpec `yaml:"relations,omitempty"`
}

// NodeSpec describes one node.
type NodeSpec struct {
	Key        string         `yaml:"key"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// RelationSpec describes one relation between two node keys.
type RelationSpec struct {
	Source      string         `yaml:"source"`
	Label       string         `yaml:"label"`
	Destination string         `yaml:"destination"`
	Properties  map[string]any `yaml:"properties,omitempty"`
}

// Loaded is a graph built from a Document.
type Loaded struct {
	Graph *graph.Graph

	// Nodes maps document keys to the created nodes.
	Nodes map[string]*graph.Node
}

// Decode parses a document. Unknown fields are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return &doc, nil
}

// Load reads the document at path and builds a graph from it.
func Load(path string, opts ...graph.Option) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	loaded, err := doc.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("build fixture %s: %w", path, err)
	}
	return loaded, nil
}

// Build creates a new graph holding the document's entities.
//
// Outputs:
//   - *Loaded: The graph and the key to node map.
//   - error: ErrInvalidFixture for empty or duplicate keys and dangling
//     relation endpoints; graph errors for bad property values.
func (d *Document) Build(opts ...graph.Option) (*Loaded, error) {
	g := graph.New(opts...)
	loaded, err := d.populate(g)
	if err != nil {
		// Frees whatever the partial graph wrote to its backend.
		_ = g.Close()
		return nil, err
	}
	return loaded, nil
}

func (d *Document) populate(g *graph.Graph) (*Loaded, error) {
	nodes := make(map[string]*graph.Node, len(d.Nodes))

	for i, spec := range d.Nodes {
		if spec.Key == "" {
			return nil, fmt.Errorf("%w: node %d has no key", ErrInvalidFixture, i)
		}
		if _, dup := nodes[spec.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate node key %q", ErrInvalidFixture, spec.Key)
		}
		props, err := graph.PropertiesOf(spec.Properties)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.Key, err)
		}
		n, err := g.CreateNode(props)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.Key, err)
		}
		nodes[spec.Key] = n
	}

	for i, spec := range d.Relations {
		src, ok := nodes[spec.Source]
		if !ok {
			return nil, fmt.Errorf("%w: relation %d: unknown source %q", ErrInvalidFixture, i, spec.Source)
		}
		dst, ok := nodes[spec.Destination]
		if !ok {
			return nil, fmt.Errorf("%w: relation %d: unknown destination %q", ErrInvalidFixture, i, spec.Destination)
		}
		props, err := graph.PropertiesOf(spec.Properties)
		if err != nil {
			return nil, fmt.Errorf("relation %d: %w", i, err)
		}
		if _, err := g.CreateRelation(src, spec.Label, dst, props); err != nil {
			return nil, fmt.Errorf("relation %d: %w", i, err)
		}
	}

	return &Loaded{Graph: g, Nodes: nodes}, nil
}

// FromGraph converts the live entities of g into a Document. Node keys
// are the node ids.
func FromGraph(g *graph.Graph) (*Document, error) {
	doc := &Document{}
	for _, e := range g.Entities() {
		props, err := e.Properties()
		if err != nil {
			return nil, fmt.Errorf("properties of %s: %w", e.ID(), err)
		}
		var m map[string]any
		if len(props) > 0 {
			m = props.Map()
		}

		switch x := e.(type) {
		case *graph.Node:
			doc.Nodes = append(doc.Nodes, NodeSpec{Key: x.ID().String(), Properties: m})
		case *graph.Relation:
			doc.Relations = append(doc.Relations, RelationSpec{
				Source:      x.Source().String(),
				Label:       x.Label(),
				Destination: x.Destination().String(),
				Properties:  m,
			})
		}
	}
	return doc, nil
}

// Dump writes g as a YAML document.
func Dump(w io.Writer, g *graph.Graph) error {
	doc, err := FromGraph(g)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return enc.Close()
}
