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
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/graphstore/services/graphstore/graph"
	"github.com/AleutianAI/graphstore/services/graphstore/telemetry"
)

// Handlers contains the HTTP handlers for the graph store.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// HandleHealth handles GET /v1/graph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/graph/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Ready())
}

// HandleCommands handles GET /v1/graph/commands and GET /v1/graph/search/.
//
// Response:
//
//	200 OK: CommandsResponse
func (h *Handlers) HandleCommands(c *gin.Context) {
	c.JSON(http.StatusOK, CommandsResponse{Commands: h.svc.Commands()})
}

// HandleSearch handles GET /v1/graph/search/*chain.
//
// Description:
//
//	Each path segment is one "method,arg,..." command, applied in order.
//	An empty chain lists the available commands instead.
//
// Query Parameters:
//
//	data - "true" to include entity bodies.
//
// Response:
//
//	200 OK: SearchResponse
//	400 Bad Request: UNKNOWN_METHOD or INVALID_ARGUMENT
//	404 Not Found: NOT_FOUND for an unresolvable id
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleSearch")

	chain := strings.Trim(c.Param("chain"), "/")
	if chain == "" {
		h.HandleCommands(c)
		return
	}

	resp, err := h.svc.RunChain(c.Request.Context(), strings.Split(chain, "/"), wantData(c))
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	logger.Debug("chain executed", slog.String("chain", resp.Chain), slog.Int("results", len(resp.Result)))
	c.JSON(http.StatusOK, resp)
}

// HandleOpenSession handles POST /v1/graph/sessions.
//
// Response:
//
//	201 Created: SessionResponse
func (h *Handlers) HandleOpenSession(c *gin.Context) {
	getOrCreateRequestID(c)
	c.JSON(http.StatusCreated, h.svc.OpenSession(c.Request.Context()))
}

// HandleAddStep handles POST /v1/graph/sessions/:id/steps.
//
// Request Body:
//
//	StepRequest
//
// Response:
//
//	200 OK: SessionResponse
//	400 Bad Request: INVALID_REQUEST, UNKNOWN_METHOD or INVALID_ARGUMENT
//	404 Not Found: SESSION_NOT_FOUND, or NOT_FOUND for get_by_id
func (h *Handlers) HandleAddStep(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleAddStep")

	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.AddStep(c.Request.Context(), c.Param("id"), req.Method, req.Args)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleExecuteSession handles POST /v1/graph/sessions/:id/execute.
// The session is closed whether or not execution succeeds.
func (h *Handlers) HandleExecuteSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleExecuteSession")

	resp, err := h.svc.ExecuteSession(c.Request.Context(), c.Param("id"), wantData(c))
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleCloseSession handles DELETE /v1/graph/sessions/:id.
func (h *Handlers) HandleCloseSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleCloseSession")

	if err := h.svc.CloseSession(c.Param("id")); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleEntity handles GET /v1/graph/entities/:id.
func (h *Handlers) HandleEntity(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleEntity")

	id, err := graph.ParseID(c.Param("id"))
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	view, err := h.svc.Entity(id)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleStats handles GET /v1/graph/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *Handlers) requestLogger(c *gin.Context, requestID, handler string) *slog.Logger {
	return telemetry.LoggerWithTrace(c.Request.Context(), h.logger).With(
		slog.String("request_id", requestID),
		slog.String("handler", handler),
	)
}

// fail writes err as an ErrorResponse. Client errors log at Info, the
// rest at Error.
func (h *Handlers) fail(c *gin.Context, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()), slog.String("code", code))
	} else {
		logger.Info("request rejected", slog.String("error", err.Error()), slog.String("code", code))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// errorStatus maps an error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, graph.ErrUnknownMethod):
		return http.StatusBadRequest, "UNKNOWN_METHOD"
	case errors.Is(err, graph.ErrInvalidArgument), errors.Is(err, graph.ErrInvalidValue):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, graph.ErrNotFound), errors.Is(err, graph.ErrNodeNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func wantData(c *gin.Context) bool {
	return c.Query("data") == "true"
}
