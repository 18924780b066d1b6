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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequests counts requests by route template and status class
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphstore_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})

	// searchExecutions counts executed chains by entry point and outcome
	searchExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphstore_search_executions_total",
		Help: "Total executed search chains",
	}, []string{"source", "outcome"}) // source: "chain" or "session"

	// rateLimited counts requests rejected by the limiter
	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graphstore_http_rate_limited_total",
		Help: "Total requests rejected by rate limiting",
	})

	// activeSessions tracks open search sessions
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphstore_sessions_active",
		Help: "Open search sessions",
	})

	// graphReloads counts graph replacements
	graphReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graphstore_graph_reloads_total",
		Help: "Total times the served graph was replaced",
	})
)
