// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphstore

import (
	"github.com/AleutianAI/graphstore/services/graphstore/cache"
	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the machine readable error code.
	Code string `json:"code,omitempty"`
}

// HealthResponse is the response for GET /v1/graph/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/graph/ready.
type ReadyResponse struct {
	// Ready is true once a graph is being served.
	Ready bool `json:"ready"`

	Nodes     int `json:"nodes"`
	Relations int `json:"relations"`
}

// CommandsResponse lists the search steps a chain may use.
type CommandsResponse struct {
	Commands []CommandInfo `json:"commands"`
}

// CommandInfo describes one search step.
type CommandInfo struct {
	Name  string `json:"name"`
	Usage string `json:"usage"`
}

// SearchResponse is the result of an executed chain.
type SearchResponse struct {
	// Result holds the matching entity ids in ascending order.
	Result []graph.ID `json:"result"`

	// Data holds the entities keyed by id when requested with data=true.
	Data map[string]EntityView `json:"data,omitempty"`

	// Chain is the signature of the executed chain.
	Chain string `json:"chain"`
}

// EntityView is the JSON form of a node or relation.
type EntityView struct {
	ID          graph.ID       `json:"id"`
	Kind        string         `json:"kind"`
	Label       string         `json:"label,omitempty"`
	Source      *graph.ID      `json:"source,omitempty"`
	Destination *graph.ID      `json:"destination,omitempty"`
	Properties  map[string]any `json:"properties"`
}

// SessionResponse is returned when a session is created or extended.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Chain     string `json:"chain"`
	Steps     int    `json:"steps"`
}

// StepRequest is the body of POST /v1/graph/sessions/:id/steps.
type StepRequest struct {
	Method string   `json:"method" binding:"required"`
	Args   []string `json:"args"`
}

// StatsResponse is the response for GET /v1/graph/stats.
type StatsResponse struct {
	Nodes     int              `json:"nodes"`
	Relations int              `json:"relations"`
	NextID    graph.ID         `json:"next_id"`
	Sessions  int              `json:"sessions"`
	Cache     *cache.MemoStats `json:"cache,omitempty"`
}
