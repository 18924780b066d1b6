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
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID identifies the graph, a node or a relation.
type ID uint64

// NoID marks a cleared reference, such as the endpoints of a removed relation.
const NoID ID = math.MaxUint64

// String returns the decimal form of the id.
func (id ID) String() string {
	if id == NoID {
		return "none"
	}
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a decimal id.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || ID(n) == NoID {
		return NoID, fmt.Errorf("%w: %q is not an entity id", ErrInvalidArgument, s)
	}
	return ID(n), nil
}

// IDAllocator hands out ids in strictly increasing order, starting at 0.
//
// It is not safe for concurrent use; the owning Graph guards it.
type IDAllocator struct {
	next ID
}

// Next consumes and returns the next id.
func (a *IDAllocator) Next() ID {
	id := a.next
	a.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (a *IDAllocator) Peek() ID {
	return a.next
}
