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
	"log/slog"
	"time"

	"github.com/AleutianAI/graphstore/services/graphstore/cache"
)

// Default configuration values.
const (
	// DefaultMaxLength is the largest search step result that is memoized.
	DefaultMaxLength = cache.DefaultMaxLength

	// DefaultCacheCapacity is the number of memoized chain positions kept.
	DefaultCacheCapacity = cache.DefaultCapacity

	// DefaultHistoryLimit is the number of property changes kept per entity.
	DefaultHistoryLimit = 64
)

// Options configures Graph behavior.
type Options struct {
	// Lite disables last-access tracking and property history on
	// every entity the graph creates.
	Lite bool

	// Cache enables memoization of search steps.
	Cache bool

	// MaxLength is the largest step result, in entities, that is
	// memoized. Default: 1000
	MaxLength int

	// CacheCapacity bounds the number of memoized chain positions.
	// Default: 1024
	CacheCapacity int

	// HistoryLimit bounds the per-entity change log. Zero keeps
	// everything. Default: 64
	HistoryLimit int

	// Backend persists property bags. Default: NopBackend.
	Backend Backend

	// Logger receives debug output for removals and invalidations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Clock stamps last-access times and history. Default: time.Now
	Clock func() time.Time
}

// DefaultOptions returns the defaults used by New.
func DefaultOptions() Options {
	return Options{
		MaxLength:     DefaultMaxLength,
		CacheCapacity: DefaultCacheCapacity,
		HistoryLimit:  DefaultHistoryLimit,
		Backend:       NopBackend{},
		Logger:        slog.Default(),
		Clock:         time.Now,
	}
}

// Option is a functional option for configuring Graph.
type Option func(*Options)

// WithLite turns entity instrumentation off.
func WithLite(lite bool) Option {
	return func(o *Options) {
		o.Lite = lite
	}
}

// WithCache turns search step memoization on or off.
func WithCache(enabled bool) Option {
	return func(o *Options) {
		o.Cache = enabled
	}
}

// WithMaxLength sets the largest memoized step result.
func WithMaxLength(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxLength = n
		}
	}
}

// WithCacheCapacity sets how many chain positions are memoized.
func WithCacheCapacity(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.CacheCapacity = n
		}
	}
}

// WithHistoryLimit sets the per-entity change log bound.
func WithHistoryLimit(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.HistoryLimit = n
		}
	}
}

// WithBackend sets the persistence backend. A nil backend is ignored.
func WithBackend(b Backend) Option {
	return func(o *Options) {
		if b != nil {
			o.Backend = b
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithClock sets the time source. A nil clock is ignored.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Clock = now
		}
	}
}
