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

// Node is a vertex of the graph.
//
// A node does not own its relations. It records their ids in two
// adjacency sets which the Graph keeps in sync on every creation and
// removal.
type Node struct {
	base

	// sources holds ids of relations whose destination is this node.
	sources map[ID]struct{}

	// destinations holds ids of relations whose source is this node.
	destinations map[ID]struct{}
}

// Sources returns the ids of incoming relations in ascending order.
func (n *Node) Sources() []ID {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.touchLocked()
	return sortedIDs(n.sources)
}

// Destinations returns the ids of outgoing relations in ascending order.
func (n *Node) Destinations() []ID {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.touchLocked()
	return sortedIDs(n.destinations)
}

// Degree returns the number of incident relations. A self-loop counts twice.
func (n *Node) Degree() int {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	return len(n.sources) + len(n.destinations)
}
