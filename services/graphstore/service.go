// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphstore serves an in-memory property graph over HTTP.
//
// The service exposes endpoints for:
//   - One-shot search chains encoded in the URL path
//   - Search sessions that accumulate steps across requests
//   - Entity lookup and graph statistics
//
// All requests are serialized through the service mutex, so each request
// is the single owner of the graph while it runs.
package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/graphstore/services/graphstore/cache"
	"github.com/AleutianAI/graphstore/services/graphstore/graph"
	"github.com/AleutianAI/graphstore/services/graphstore/telemetry"
)

// ServiceVersion is the graph store service version.
const ServiceVersion = "0.1.0"

// ServiceConfig configures the graph store service.
type ServiceConfig struct {
	// MaxSessions bounds the number of open search sessions. The least
	// recently used session is dropped when the bound is reached.
	// Default: 256
	MaxSessions int

	// SearchTimeout bounds a single Execute. Zero means no bound.
	// Default: 10s
	SearchTimeout time.Duration
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSessions:   256,
		SearchTimeout: 10 * time.Second,
	}
}

// session is a search being built across requests.
type session struct {
	id      string
	search  *graph.Search
	steps   int
	created time.Time
}

// Service owns the served graph and the open search sessions.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Every method takes the service
//	mutex for its whole duration.
type Service struct {
	mu       sync.Mutex
	config   ServiceConfig
	g        *graph.Graph
	sessions *cache.LRUCache[string, *session]
	logger   *slog.Logger
}

// NewService creates a service around g. A nil logger uses slog.Default.
func NewService(g *graph.Graph, config ServiceConfig, logger *slog.Logger) *Service {
	if config.MaxSessions <= 0 {
		config.MaxSessions = DefaultServiceConfig().MaxSessions
	}
	if logger == nil {
		logger = slog.Default()
	}
	if g == nil {
		g = graph.New()
	}

	svc := &Service{
		config: config,
		g:      g,
		logger: logger.With(slog.String("component", "graphstore_service")),
	}
	svc.sessions = cache.NewLRUCache[string, *session](config.MaxSessions).
		OnEvict(func(id string, _ *session) {
			svc.logger.Debug("session evicted", slog.String("session_id", id))
		})
	return svc
}

// Graph returns the graph currently served.
func (s *Service) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g
}

// Replace swaps in a new graph. Open sessions belong to the old graph and
// are dropped, and the old graph is closed so its backend scope is freed.
func (s *Service) Replace(g *graph.Graph) {
	if g == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.sessions.Len()
	old := s.g
	s.g = g
	s.sessions.Purge()
	activeSessions.Set(0)
	graphReloads.Inc()

	if old != nil && old != g {
		if err := old.Close(); err != nil {
			s.logger.Warn("closing replaced graph", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("graph replaced",
		slog.Int("nodes", g.NodeCount()),
		slog.Int("relations", g.RelationCount()),
		slog.Int("sessions_dropped", dropped),
	)
}

// Commands lists the search steps a chain may use.
func (s *Service) Commands() []CommandInfo {
	names := graph.SearchMethods()
	out := make([]CommandInfo, 0, len(names))
	for _, name := range names {
		usage, _ := graph.SearchMethodUsage(name)
		out = append(out, CommandInfo{Name: name, Usage: usage})
	}
	return out
}

// RunChain builds and executes a one-shot chain.
//
// Inputs:
//
//	ctx - Bounds the execution.
//	segments - One "method,arg,..." command per element. Empty elements
//	  are skipped.
//	withData - Include entity bodies in the response.
//
// Outputs:
//
//	*SearchResponse - The sorted ids and optional bodies.
//	error - ErrUnknownMethod or ErrInvalidArgument for a bad segment,
//	  ErrNotFound for unresolvable ids, or a context error.
func (s *Service) RunChain(ctx context.Context, segments []string, withData bool) (*SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := s.g.Search()
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		name, args := graph.ParseCommand(segment)
		if err := search.Dispatch(name, args...); err != nil {
			searchExecutions.WithLabelValues("chain", "rejected").Inc()
			return nil, fmt.Errorf("segment %q: %w", segment, err)
		}
	}
	return s.executeLocked(ctx, search, "chain", withData)
}

// OpenSession starts a new search session.
func (s *Service) OpenSession(ctx context.Context) SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &session{
		id:      uuid.NewString(),
		search:  s.g.Search(),
		created: time.Now(),
	}
	s.sessions.Set(sess.id, sess)
	activeSessions.Set(float64(s.sessions.Len()))

	telemetry.LoggerWithSession(ctx, s.logger, sess.id).Debug("session opened")
	return SessionResponse{SessionID: sess.id}
}

// AddStep applies one named step to a session's search. A rejected step
// leaves the session unchanged.
func (s *Service) AddStep(ctx context.Context, id, method string, args []string) (SessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		return SessionResponse{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := sess.search.Dispatch(method, args...); err != nil {
		return SessionResponse{}, err
	}
	sess.steps++

	telemetry.LoggerWithSession(ctx, s.logger, id).Debug("step added",
		slog.String("method", method),
		slog.Int("steps", sess.steps),
	)
	return SessionResponse{SessionID: id, Chain: sess.search.Chain(), Steps: sess.steps}, nil
}

// ExecuteSession executes a session's search and closes the session.
func (s *Service) ExecuteSession(ctx context.Context, id string, withData bool) (*SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.sessions.Delete(id)
	activeSessions.Set(float64(s.sessions.Len()))

	telemetry.LoggerWithSession(ctx, s.logger, id).Debug("session executed",
		slog.Int("steps", sess.steps),
		slog.Duration("age", time.Since(sess.created)),
	)
	return s.executeLocked(ctx, sess.search, "session", withData)
}

// CloseSession drops a session without executing it.
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sessions.Delete(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	activeSessions.Set(float64(s.sessions.Len()))
	return nil
}

// Entity returns the view of one live entity.
func (s *Service) Entity(id graph.ID) (EntityView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.g.GetByID(id)
	if err != nil {
		return EntityView{}, err
	}
	return viewOf(e)
}

// Stats reports graph, session and cache counters.
func (s *Service) Stats() StatsResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatsResponse{
		Nodes:     s.g.NodeCount(),
		Relations: s.g.RelationCount(),
		NextID:    s.g.NextID(),
		Sessions:  s.sessions.Len(),
	}
	if stats, ok := s.g.CacheStats(); ok {
		resp.Cache = &stats
	}
	return resp
}

// Ready reports whether a graph is being served.
func (s *Service) Ready() ReadyResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReadyResponse{
		Ready:     s.g != nil,
		Nodes:     s.g.NodeCount(),
		Relations: s.g.RelationCount(),
	}
}

// executeLocked runs search under the configured timeout.
// Caller must hold s.mu.
func (s *Service) executeLocked(ctx context.Context, search *graph.Search, source string, withData bool) (*SearchResponse, error) {
	if s.config.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SearchTimeout)
		defer cancel()
	}

	result, err := search.Execute(ctx)
	if err != nil {
		searchExecutions.WithLabelValues(source, "error").Inc()
		return nil, err
	}
	searchExecutions.WithLabelValues(source, "ok").Inc()

	resp := &SearchResponse{Result: result.IDs(), Chain: search.Chain()}
	if withData {
		resp.Data = make(map[string]EntityView, len(result))
		for _, e := range result.Sorted() {
			view, err := viewOf(e)
			if err != nil {
				return nil, err
			}
			resp.Data[e.ID().String()] = view
		}
	}
	return resp, nil
}

// viewOf renders an entity for JSON.
func viewOf(e graph.Entity) (EntityView, error) {
	props, err := e.Properties()
	if err != nil {
		return EntityView{}, fmt.Errorf("properties of %s: %w", e.ID(), err)
	}
	view := EntityView{
		ID:         e.ID(),
		Kind:       e.Kind().String(),
		Properties: props.Map(),
	}
	if r, ok := e.(*graph.Relation); ok {
		src, dst := r.Source(), r.Destination()
		view.Label = r.Label()
		view.Source = &src
		view.Destination = &dst
	}
	return view, nil
}
