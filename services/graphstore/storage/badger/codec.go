// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

// wireValue is the persisted form of a graph.Value. The kind tag keeps
// Int(2) and Float(2) distinct after a round trip.
type wireValue struct {
	Kind  string          `json:"k"`
	Value json.RawMessage `json:"v,omitempty"`
	Items []wireValue     `json:"l,omitempty"`
}

func encodeValue(v graph.Value) ([]byte, error) {
	w, err := toWire(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func decodeValue(data []byte) (graph.Value, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return graph.Value{}, fmt.Errorf("decode value: %w", err)
	}
	return fromWire(w)
}

func toWire(v graph.Value) (wireValue, error) {
	w := wireValue{Kind: v.Kind().String()}
	switch v.Kind() {
	case graph.ValueList:
		items, _ := v.AsList()
		w.Items = make([]wireValue, 0, len(items))
		for _, item := range items {
			iw, err := toWire(item)
			if err != nil {
				return wireValue{}, err
			}
			w.Items = append(w.Items, iw)
		}
		return w, nil
	case graph.ValueInt, graph.ValueFloat, graph.ValueString, graph.ValueBool:
		raw, err := json.Marshal(v.Interface())
		if err != nil {
			return wireValue{}, fmt.Errorf("encode %s value: %w", v.Kind(), err)
		}
		w.Value = raw
		return w, nil
	default:
		return wireValue{}, fmt.Errorf("encode value: %w", graph.ErrInvalidValue)
	}
}

func fromWire(w wireValue) (graph.Value, error) {
	kind, ok := graph.ParseValueKind(w.Kind)
	if !ok {
		return graph.Value{}, fmt.Errorf("decode value kind %q: %w", w.Kind, graph.ErrInvalidValue)
	}

	switch kind {
	case graph.ValueInt:
		var i int64
		if err := json.Unmarshal(w.Value, &i); err != nil {
			return graph.Value{}, fmt.Errorf("decode int: %w", err)
		}
		return graph.Int(i), nil
	case graph.ValueFloat:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return graph.Value{}, fmt.Errorf("decode float: %w", err)
		}
		return graph.Float(f), nil
	case graph.ValueString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return graph.Value{}, fmt.Errorf("decode string: %w", err)
		}
		return graph.String(s), nil
	case graph.ValueBool:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return graph.Value{}, fmt.Errorf("decode bool: %w", err)
		}
		return graph.Bool(b), nil
	case graph.ValueList:
		items := make([]graph.Value, 0, len(w.Items))
		for _, iw := range w.Items {
			item, err := fromWire(iw)
			if err != nil {
				return graph.Value{}, err
			}
			items = append(items, item)
		}
		return graph.List(items...)
	default:
		return graph.Value{}, fmt.Errorf("decode value kind %q: %w", w.Kind, graph.ErrInvalidValue)
	}
}
