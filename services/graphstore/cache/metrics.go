// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	// memoLookups counts memo lookups by result
	memoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphstore_memo_lookups_total",
		Help: "Total memoized chain lookups by result",
	}, []string{"result"}) // "hit" or "miss"

	// memoInstalls counts drained tees by what happened to their buffer
	memoInstalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphstore_memo_installs_total",
		Help: "Total drained memo tees by outcome",
	}, []string{"outcome"}) // "installed", "oversize" or "stale"

	// memoInvalidations counts wholesale cache clears
	memoInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graphstore_memo_invalidations_total",
		Help: "Total memo invalidations caused by graph mutation",
	})
)
