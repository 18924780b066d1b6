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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("graphstore.graph")
	meter  = otel.Meter("graphstore.graph")
)

// Metrics for graph mutation and search.
var (
	entitiesCreated metric.Int64Counter
	entitiesRemoved metric.Int64Counter
	searchLatency   metric.Float64Histogram
	searchResults   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		entitiesCreated, err = meter.Int64Counter(
			"graphstore_entities_created_total",
			metric.WithDescription("Total number of entities created"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		entitiesRemoved, err = meter.Int64Counter(
			"graphstore_entities_removed_total",
			metric.WithDescription("Total number of entities removed, cascades included"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchLatency, err = meter.Float64Histogram(
			"graphstore_search_duration_seconds",
			metric.WithDescription("Duration of search execution"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchResults, err = meter.Int64Histogram(
			"graphstore_search_results",
			metric.WithDescription("Number of entities returned per search"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCreated counts one created entity.
func recordCreated(kind Kind) {
	if err := initMetrics(); err != nil {
		return
	}
	entitiesCreated.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind.String())),
	)
}

// recordRemoved counts removed entities of one kind.
func recordRemoved(kind Kind, n int) {
	if n == 0 {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	entitiesRemoved.Add(context.Background(), int64(n),
		metric.WithAttributes(attribute.String("kind", kind.String())),
	)
}

// recordSearchMetrics records metrics for one Execute call.
func recordSearchMetrics(ctx context.Context, duration time.Duration, resultCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	searchLatency.Record(ctx, duration.Seconds(), attrs)
	if success {
		searchResults.Record(ctx, int64(resultCount))
	}
}

// startSearchSpan creates a span for a search execution.
func startSearchSpan(ctx context.Context, chain string, steps int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Search.Execute",
		trace.WithAttributes(
			attribute.String("graph.search.chain", chain),
			attribute.Int("graph.search.steps", steps),
		),
	)
}

// setSearchSpanResult sets the result attributes on a search span.
func setSearchSpanResult(span trace.Span, resultCount int, cached bool) {
	span.SetAttributes(
		attribute.Int("graph.search.result_count", resultCount),
		attribute.Bool("graph.search.cache_enabled", cached),
	)
}
