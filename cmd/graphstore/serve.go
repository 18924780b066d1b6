// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/graphstore/services/graphstore"
	"github.com/AleutianAI/graphstore/services/graphstore/fixture"
	"github.com/AleutianAI/graphstore/services/graphstore/graph"
	"github.com/AleutianAI/graphstore/services/graphstore/telemetry"
)

type serveOptions struct {
	addr  string
	watch bool
	debug bool
}

func newServeCmd(a *app) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph over HTTP",
		Long: `Serve loads the configured fixture (or starts empty) and exposes the
search API under /v1/graph and Prometheus metrics under /metrics.

With --watch the fixture file is reloaded on change; open sessions are
dropped on every reload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = opts.addr
			}
			if opts.watch {
				a.cfg.Fixture.Watch = true
			}
			return a.runServe(cmd.Context(), opts.debug)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the fixture when the file changes")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "gin debug mode")
	return cmd
}

// runServe runs the HTTP server and, with watching on, the fixture
// watcher until ctx is cancelled or SIGINT/SIGTERM arrives.
func (a *app) runServe(ctx context.Context, debug bool) error {
	if a.cfg.Fixture.Watch && a.cfg.Fixture.Path == "" {
		return errors.New("--watch requires --fixture or fixture.path")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := a.slogger()

	shutdownTelemetry, err := telemetry.Init(ctx, a.cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
		}
	}()

	g, graphOpts, closeStore, err := a.openGraph()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("storage close", slog.String("error", err.Error()))
		}
	}()

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, svc := a.newServer(g)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("graphstore listening", slog.String("addr", srv.Addr), slog.String("version", graphstore.ServiceVersion))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownGrace)
		defer cancel()
		logger.Info("shutting down", slog.Duration("grace", a.cfg.Server.ShutdownGrace))
		return srv.Shutdown(sctx)
	})

	if a.cfg.Fixture.Watch {
		watcher, err := fixture.NewWatcher(a.cfg.Fixture.Path, func(l *fixture.Loaded) {
			svc.Replace(l.Graph)
		}, a.cfg.Fixture.WatcherOptions(graphOpts, logger))
		if err != nil {
			stop()
			_ = group.Wait()
			return err
		}
		group.Go(func() error { return watcher.Run(gctx) })
	}

	return group.Wait()
}

// newServer wires the service, handlers and router for g.
func (a *app) newServer(g *graph.Graph) (*http.Server, *graphstore.Service) {
	logger := a.slogger()
	svc := graphstore.NewService(g, a.cfg.Server.ServiceConfig(), logger)
	router := graphstore.NewRouter(
		graphstore.NewHandlers(svc, logger),
		a.cfg.Server.RouterConfig(a.cfg.Telemetry.ServiceName),
	)

	return &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, svc
}
