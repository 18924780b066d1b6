// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/graphstore/pkg/logging"
	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 256, cfg.Server.MaxSessions)
	assert.Equal(t, 10*time.Second, cfg.Server.SearchTimeout)
	assert.True(t, cfg.Graph.Cache)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, 0.5, cfg.Storage.GCDiscardRatio)
	assert.Equal(t, 200*time.Millisecond, cfg.Fixture.Debounce)
	assert.Equal(t, logging.LevelInfo, cfg.Logging.Level)
	assert.Equal(t, "graphstore", cfg.Telemetry.ServiceName)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParse_OverridesDefaults(t *testing.T) {
	data := []byte(`
server:
  addr: "127.0.0.1:9000"
  search_timeout: 2s
graph:
  lite: true
  max_length: 50
storage:
  enabled: true
  in_memory: true
fixture:
  path: graph.yaml
  watch: true
logging:
  level: debug
  json: true
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.SearchTimeout)
	assert.Equal(t, 256, cfg.Server.MaxSessions, "unset keys keep defaults")
	assert.True(t, cfg.Graph.Lite)
	assert.True(t, cfg.Graph.Cache)
	assert.Equal(t, 50, cfg.Graph.MaxLength)
	assert.True(t, cfg.Storage.InMemory)
	assert.True(t, cfg.Fixture.Watch)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown key", yaml: "server:\n  port: 80\n"},
		{name: "empty addr", yaml: "server:\n  addr: \"\"\n"},
		{name: "zero sessions", yaml: "server:\n  max_sessions: 0\n"},
		{name: "negative rate", yaml: "server:\n  rate_limit: -1\n"},
		{name: "storage without path", yaml: "storage:\n  enabled: true\n"},
		{name: "discard ratio too high", yaml: "storage:\n  gc_discard_ratio: 1.5\n"},
		{name: "watch without path", yaml: "fixture:\n  watch: true\n"},
		{name: "bad log level", yaml: "logging:\n  level: loud\n"},
		{name: "bad exporter", yaml: "telemetry:\n  trace_exporter: jaeger\n"},
		{name: "bad duration", yaml: "server:\n  search_timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "graphstore.yaml")

	require.NoError(t, WriteDefault(path, false))

	err := WriteDefault(path, false)
	assert.ErrorIs(t, err, ErrConfigExists)
	require.NoError(t, WriteDefault(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "search_timeout: 10s")
	assert.Contains(t, string(data), "level: info")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConverters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/tmp/graphstore"
	logger := slog.New(slog.DiscardHandler)

	svc := cfg.Server.ServiceConfig()
	assert.Equal(t, cfg.Server.MaxSessions, svc.MaxSessions)
	assert.Equal(t, cfg.Server.SearchTimeout, svc.SearchTimeout)

	router := cfg.Server.RouterConfig("gs")
	assert.Equal(t, "gs", router.ServiceName)
	assert.Equal(t, cfg.Server.RateBurst, router.RateBurst)

	bc := cfg.Storage.BadgerConfig(logger)
	assert.Equal(t, "/tmp/graphstore", bc.Path)
	assert.Same(t, logger, bc.Logger)

	cfg.Graph.Lite = true
	g := graph.New(cfg.Graph.Options(nil, logger)...)
	opts := g.Options()
	assert.True(t, opts.Lite)
	assert.True(t, opts.Cache)
	assert.Equal(t, cfg.Graph.MaxLength, opts.MaxLength)
	assert.Same(t, logger, opts.Logger)

	wo := cfg.Fixture.WatcherOptions(nil, logger)
	assert.Equal(t, cfg.Fixture.Debounce, wo.Debounce)
}
