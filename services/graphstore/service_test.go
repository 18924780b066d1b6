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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

func TestService_ReplaceDropsSessions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess := svc.OpenSession(ctx)
	_, err := svc.AddStep(ctx, sess.SessionID, "property", []string{"name"})
	require.NoError(t, err)

	next := graph.New()
	_, err = next.CreateNode(graph.Properties{"name": graph.String("solo")})
	require.NoError(t, err)
	svc.Replace(next)

	assert.Same(t, next, svc.Graph())
	_, err = svc.ExecuteSession(ctx, sess.SessionID, false)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	resp, err := svc.RunChain(ctx, []string{"value,name,solo"}, false)
	require.NoError(t, err)
	assert.Equal(t, []graph.ID{1}, resp.Result)

	svc.Replace(nil)
	assert.Same(t, next, svc.Graph(), "a nil graph is ignored")
}

// releaseRecorder counts Release calls on a graph's backend.
type releaseRecorder struct {
	graph.NopBackend
	released int
}

func (r *releaseRecorder) Release() error {
	r.released++
	return nil
}

func TestService_ReplaceClosesOldGraph(t *testing.T) {
	oldBackend := &releaseRecorder{}
	old := graph.New(graph.WithBackend(oldBackend))
	svc := NewService(old, DefaultServiceConfig(), nil)

	svc.Replace(old)
	assert.Equal(t, 0, oldBackend.released, "replacing a graph with itself keeps it open")

	svc.Replace(graph.New())
	assert.Equal(t, 1, oldBackend.released)
}

func TestService_RejectedStepKeepsSessionUsable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sess := svc.OpenSession(ctx)

	_, err := svc.AddStep(ctx, sess.SessionID, "get_by_id", []string{"9999"})
	require.ErrorIs(t, err, graph.ErrNotFound)
	_, err = svc.AddStep(ctx, sess.SessionID, "relations_from", []string{"9999"})
	require.ErrorIs(t, err, graph.ErrNotFound)

	step, err := svc.AddStep(ctx, sess.SessionID, "property", []string{"job"})
	require.NoError(t, err)
	assert.Equal(t, 1, step.Steps)
	assert.Equal(t, `/property("job")`, step.Chain)

	resp, err := svc.ExecuteSession(ctx, sess.SessionID, false)
	require.NoError(t, err)
	assert.Equal(t, []graph.ID{1, 4}, resp.Result)
}

func TestService_SessionLimit(t *testing.T) {
	loaded := newTestService(t).Graph()
	svc := NewService(loaded, ServiceConfig{MaxSessions: 2}, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	first := svc.OpenSession(ctx)
	svc.OpenSession(ctx)
	svc.OpenSession(ctx)

	assert.Equal(t, 2, svc.Stats().Sessions)
	_, err := svc.AddStep(ctx, first.SessionID, "property", []string{"name"})
	assert.ErrorIs(t, err, ErrSessionNotFound, "the oldest session is evicted")
}

func TestService_RunChainSkipsEmptySegments(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.RunChain(context.Background(), []string{"", "value,name,Josh", " ", "relations_from"}, false)
	require.NoError(t, err)
	assert.Equal(t, []graph.ID{4}, resp.Result)
	assert.Equal(t, `/value("name","Josh")/relations_from(,)`, resp.Chain)
}

func TestService_SearchTimeout(t *testing.T) {
	svc := NewService(newTestService(t).Graph(), ServiceConfig{SearchTimeout: time.Nanosecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.RunChain(ctx, []string{"property,name"}, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{err: ErrSessionNotFound, wantStatus: http.StatusNotFound, wantCode: "SESSION_NOT_FOUND"},
		{err: graph.ErrUnknownMethod, wantStatus: http.StatusBadRequest, wantCode: "UNKNOWN_METHOD"},
		{err: graph.ErrInvalidArgument, wantStatus: http.StatusBadRequest, wantCode: "INVALID_ARGUMENT"},
		{err: graph.ErrInvalidValue, wantStatus: http.StatusBadRequest, wantCode: "INVALID_ARGUMENT"},
		{err: graph.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{err: graph.ErrNodeNotFound, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantCode: "TIMEOUT"},
		{err: context.Canceled, wantStatus: http.StatusServiceUnavailable, wantCode: "CANCELLED"},
		{err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
