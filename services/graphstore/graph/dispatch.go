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
	"sort"
	"strings"
)

// searchMethod describes one step that can be applied by name.
type searchMethod struct {
	minArgs int
	maxArgs int
	usage   string

	// prepare validates args and returns the step to apply. It must not
	// touch the Search so that a rejected call leaves the chain unchanged.
	prepare func(args []string) (func(*Search), error)
}

// searchMethods lists the public steps. Names starting with "_" and
// Execute are deliberately absent.
var searchMethods = map[string]searchMethod{
	"property": {
		minArgs: 1,
		maxArgs: 1,
		usage:   "property,<name>",
		prepare: func(args []string) (func(*Search), error) {
			name := args[0]
			if name == "" {
				return nil, fmt.Errorf("%w: property name is empty", ErrInvalidArgument)
			}
			return func(s *Search) { s.Property(name) }, nil
		},
	},
	"value": {
		minArgs: 2,
		maxArgs: 2,
		usage:   "value,<name>,<value>",
		prepare: func(args []string) (func(*Search), error) {
			name := args[0]
			if name == "" {
				return nil, fmt.Errorf("%w: property name is empty", ErrInvalidArgument)
			}
			v := ParseValue(args[1])
			return func(s *Search) { s.Value(name, v) }, nil
		},
	},
	"get_by_id": {
		minArgs: 1,
		maxArgs: 1,
		usage:   "get_by_id,<id>",
		prepare: func(args []string) (func(*Search), error) {
			id, err := ParseID(args[0])
			if err != nil {
				return nil, err
			}
			return func(s *Search) { s.GetByID(id) }, nil
		},
	},
	"relations_to":   relationMethod("relations_to", (*Search).RelationsTo),
	"relations_from": relationMethod("relations_from", (*Search).RelationsFrom),
	"relations":      relationMethod("relations", (*Search).Relations),
}

// relationMethod builds the dispatch entry shared by the traversal steps.
// Arguments: an optional node id (empty for the current sequence) and an
// optional label.
func relationMethod(name string, apply func(*Search, ...RelationOption) *Search) searchMethod {
	return searchMethod{
		minArgs: 0,
		maxArgs: 2,
		usage:   name + "[,<node id>[,<label>]]",
		prepare: func(args []string) (func(*Search), error) {
			var opts []RelationOption
			if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
				id, err := ParseID(args[0])
				if err != nil {
					return nil, err
				}
				opts = append(opts, WithNodeID(id))
			}
			if len(args) > 1 && args[1] != "" {
				opts = append(opts, WithLabel(args[1]))
			}
			return func(s *Search) { apply(s, opts...) }, nil
		},
	}
}

// SearchMethods returns the names accepted by Dispatch, sorted.
func SearchMethods() []string {
	names := make([]string, 0, len(searchMethods))
	for name := range searchMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SearchMethodUsage returns the argument form of a dispatchable step.
func SearchMethodUsage(name string) (string, bool) {
	m, ok := searchMethods[name]
	return m.usage, ok
}

// Dispatch applies the named step with positional string arguments.
//
// Description:
//
//	Arguments are validated before anything is applied, and a step that
//	fails while being applied (for example get_by_id with an unknown id)
//	is rolled back. Either way a rejected call leaves the chain exactly
//	as it was and later calls can still succeed. Values are parsed with
//	ParseValue and ids with ParseID.
//
// Outputs:
//   - error: ErrUnknownMethod for names not in SearchMethods,
//     ErrInvalidArgument for bad arity or unparsable arguments,
//     ErrNotFound for unknown ids, or the sticky error of a search that
//     had already failed through the direct API.
func (s *Search) Dispatch(name string, args ...string) error {
	if s.err != nil {
		return s.err
	}
	m, ok := searchMethods[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	if len(args) < m.minArgs || len(args) > m.maxArgs {
		return fmt.Errorf("%w: %s takes %s, got %d argument(s)", ErrInvalidArgument, name, arity(m), len(args))
	}

	apply, err := m.prepare(args)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	seq, chain, steps := s.seq, s.chain.String(), s.steps
	apply(s)
	if err := s.err; err != nil {
		s.seq, s.steps, s.err = seq, steps, nil
		s.chain.Reset()
		s.chain.WriteString(chain)
		return err
	}
	return nil
}

// ParseCommand splits a comma separated façade segment such as
// "value,name,Josh" into a method name and its arguments.
func ParseCommand(segment string) (string, []string) {
	parts := strings.Split(segment, ",")
	return strings.TrimSpace(parts[0]), parts[1:]
}

func arity(m searchMethod) string {
	if m.minArgs == m.maxArgs {
		return fmt.Sprintf("%d argument(s)", m.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", m.minArgs, m.maxArgs)
}
