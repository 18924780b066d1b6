// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the graphstore binary's YAML configuration.
package config

import (
	"log/slog"
	"time"

	"github.com/AleutianAI/graphstore/pkg/logging"
	"github.com/AleutianAI/graphstore/services/graphstore"
	"github.com/AleutianAI/graphstore/services/graphstore/fixture"
	"github.com/AleutianAI/graphstore/services/graphstore/graph"
	"github.com/AleutianAI/graphstore/services/graphstore/storage/badger"
	"github.com/AleutianAI/graphstore/services/graphstore/telemetry"
)

type GraphStoreConfig struct {
	// Server: HTTP listener and session limits
	Server ServerConfig `yaml:"server"`

	// Graph: entity instrumentation and search memoization
	Graph GraphConfig `yaml:"graph"`

	// Storage: optional Badger property backend
	Storage StorageConfig `yaml:"storage"`

	// Fixture: YAML graph loaded at startup
	Fixture FixtureConfig `yaml:"fixture"`

	Logging   logging.Config   `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr          string        `yaml:"addr" validate:"required"`           // e.g. ":8080"
	MaxSessions   int           `yaml:"max_sessions" validate:"gte=1"`      // e.g. 256
	SearchTimeout time.Duration `yaml:"search_timeout" validate:"gte=0"`    // e.g. 10s
	RateLimit     float64       `yaml:"rate_limit" validate:"gte=0"`        // requests/s, 0 = off
	RateBurst     int           `yaml:"rate_burst" validate:"gte=0"`        // e.g. 20
	ShutdownGrace time.Duration `yaml:"shutdown_grace" validate:"gte=0"`    // e.g. 10s
}

type GraphConfig struct {
	Lite          bool `yaml:"lite"`
	Cache         bool `yaml:"cache"`
	MaxLength     int  `yaml:"max_length" validate:"gte=0"`
	CacheCapacity int  `yaml:"cache_capacity" validate:"gte=0"`
	HistoryLimit  int  `yaml:"history_limit" validate:"gte=0"`
}

type StorageConfig struct {
	// Enabled attaches a Badger backend so Unload can evict property bags.
	Enabled        bool          `yaml:"enabled"`
	Path           string        `yaml:"path" validate:"required_if=Enabled true InMemory false"`
	InMemory       bool          `yaml:"in_memory"`
	SyncWrites     bool          `yaml:"sync_writes"`
	GCInterval     time.Duration `yaml:"gc_interval" validate:"gte=0"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio" validate:"gt=0,lt=1"`
}

type FixtureConfig struct {
	Path     string        `yaml:"path" validate:"required_if=Watch true"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// DefaultConfig returns the configuration written by "config init".
func DefaultConfig() GraphStoreConfig {
	badgerDefaults := badger.DefaultConfig()
	serviceDefaults := graphstore.DefaultServiceConfig()
	graphDefaults := graph.DefaultOptions()

	return GraphStoreConfig{
		Server: ServerConfig{
			Addr:          ":8080",
			MaxSessions:   serviceDefaults.MaxSessions,
			SearchTimeout: serviceDefaults.SearchTimeout,
			RateLimit:     100,
			RateBurst:     20,
			ShutdownGrace: 10 * time.Second,
		},
		Graph: GraphConfig{
			Cache:         true,
			MaxLength:     graphDefaults.MaxLength,
			CacheCapacity: graphDefaults.CacheCapacity,
			HistoryLimit:  graphDefaults.HistoryLimit,
		},
		Storage: StorageConfig{
			SyncWrites:     badgerDefaults.SyncWrites,
			GCInterval:     badgerDefaults.GCInterval,
			GCDiscardRatio: badgerDefaults.GCDiscardRatio,
		},
		Fixture: FixtureConfig{
			Debounce: fixture.DefaultWatcherOptions().Debounce,
		},
		Logging: logging.Config{
			Level:   logging.LevelInfo,
			Service: "graphstore",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// ServiceConfig converts the server section for graphstore.NewService.
func (c ServerConfig) ServiceConfig() graphstore.ServiceConfig {
	return graphstore.ServiceConfig{
		MaxSessions:   c.MaxSessions,
		SearchTimeout: c.SearchTimeout,
	}
}

// RouterConfig converts the server section for graphstore.NewRouter.
func (c ServerConfig) RouterConfig(serviceName string) graphstore.RouterConfig {
	return graphstore.RouterConfig{
		ServiceName: serviceName,
		RateLimit:   c.RateLimit,
		RateBurst:   c.RateBurst,
	}
}

// Options converts the graph section to graph options. The backend and
// logger are supplied by the caller.
func (c GraphConfig) Options(backend graph.Backend, logger *slog.Logger) []graph.Option {
	opts := []graph.Option{
		graph.WithLite(c.Lite),
		graph.WithCache(c.Cache),
		graph.WithMaxLength(c.MaxLength),
		graph.WithCacheCapacity(c.CacheCapacity),
		graph.WithHistoryLimit(c.HistoryLimit),
	}
	if backend != nil {
		opts = append(opts, graph.WithBackend(backend))
	}
	if logger != nil {
		opts = append(opts, graph.WithLogger(logger))
	}
	return opts
}

// BadgerConfig converts the storage section.
func (c StorageConfig) BadgerConfig(logger *slog.Logger) badger.Config {
	return badger.Config{
		Path:           c.Path,
		InMemory:       c.InMemory,
		SyncWrites:     c.SyncWrites,
		Logger:         logger,
		GCInterval:     c.GCInterval,
		GCDiscardRatio: c.GCDiscardRatio,
	}
}

// WatcherOptions converts the fixture section.
func (c FixtureConfig) WatcherOptions(graphOpts []graph.Option, logger *slog.Logger) *fixture.WatcherOptions {
	return &fixture.WatcherOptions{
		Debounce:     c.Debounce,
		GraphOptions: graphOpts,
		Logger:       logger,
	}
}
