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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/graphstore/services/graphstore/telemetry"
)

// RegisterRoutes registers all graph store routes with the router.
//
// Description:
//
//	Registers all /v1/graph/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	GET    /v1/graph/health - Health check
//	GET    /v1/graph/ready - Readiness check
//	GET    /v1/graph/commands - List search commands
//	GET    /v1/graph/search/*chain - Run a one-shot chain
//	POST   /v1/graph/sessions - Open a search session
//	POST   /v1/graph/sessions/:id/steps - Add a step to a session
//	POST   /v1/graph/sessions/:id/execute - Execute and close a session
//	DELETE /v1/graph/sessions/:id - Close a session
//	GET    /v1/graph/entities/:id - Get one entity
//	GET    /v1/graph/stats - Graph, session and cache statistics
//
// Example:
//
//	svc := graphstore.NewService(g, graphstore.DefaultServiceConfig(), logger)
//	v1 := router.Group("/v1")
//	graphstore.RegisterRoutes(v1, graphstore.NewHandlers(svc, logger))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	g := rg.Group("/graph")
	{
		g.GET("/health", handlers.HandleHealth)
		g.GET("/ready", handlers.HandleReady)

		g.GET("/commands", handlers.HandleCommands)
		g.GET("/search/*chain", handlers.HandleSearch)

		g.POST("/sessions", handlers.HandleOpenSession)
		g.POST("/sessions/:id/steps", handlers.HandleAddStep)
		g.POST("/sessions/:id/execute", handlers.HandleExecuteSession)
		g.DELETE("/sessions/:id", handlers.HandleCloseSession)

		g.GET("/entities/:id", handlers.HandleEntity)
		g.GET("/stats", handlers.HandleStats)
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName names the otelgin server spans.
	ServiceName string

	// RateLimit is the sustained requests per second. Zero disables
	// limiting.
	RateLimit float64

	// RateBurst is the limiter bucket size.
	RateBurst int
}

// NewRouter builds a gin engine with recovery, tracing, request ids,
// request metrics and rate limiting, serving the graph routes and
// /metrics.
func NewRouter(handlers *Handlers, cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "graphstore"
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.ServiceName),
		RequestID(),
		RequestMetrics(),
		RateLimit(cfg.RateLimit, cfg.RateBurst),
	)

	metrics := telemetry.MetricsHandler()
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metrics))

	RegisterRoutes(router.Group("/v1"), handlers)
	return router
}
