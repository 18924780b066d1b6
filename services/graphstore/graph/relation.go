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

// Relation is a directed, labeled edge from a source node to a
// destination node.
//
// Multiple relations with the same label between the same pair of nodes
// are allowed. On removal the label is cleared and both endpoints are
// set to NoID.
type Relation struct {
	base

	label       string
	source      ID
	destination ID
}

// Label returns the relation label.
func (r *Relation) Label() string {
	r.g.mu.Lock()
	defer r.g.mu.Unlock()
	r.touchLocked()
	return r.label
}

// Source returns the id of the origin node.
func (r *Relation) Source() ID {
	r.g.mu.Lock()
	defer r.g.mu.Unlock()
	r.touchLocked()
	return r.source
}

// Destination returns the id of the target node.
func (r *Relation) Destination() ID {
	r.g.mu.Lock()
	defer r.g.mu.Unlock()
	r.touchLocked()
	return r.destination
}

// clearLocked drops the label and endpoints of a removed relation.
func (r *Relation) clearLocked() {
	r.label = ""
	r.source = NoID
	r.destination = NoID
}
