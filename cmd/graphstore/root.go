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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/graphstore/cmd/graphstore/config"
	"github.com/AleutianAI/graphstore/pkg/logging"
	"github.com/AleutianAI/graphstore/services/graphstore/fixture"
	"github.com/AleutianAI/graphstore/services/graphstore/graph"
	"github.com/AleutianAI/graphstore/services/graphstore/storage/badger"
)

// skipConfigAnnotation marks commands that run without loading config.
const skipConfigAnnotation = "graphstore/skip-config"

// app carries state shared by every subcommand. It is populated by the
// root command's PersistentPreRunE.
type app struct {
	configPath  string
	fixturePath string
	logLevel    string

	cfg    config.GraphStoreConfig
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "graphstore",
		Short: "An in-memory property graph with chained search",
		Long: `graphstore holds nodes and labelled relations with typed properties
in memory, and answers chained searches over them from the command line
or over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, skip := cmd.Annotations[skipConfigAnnotation]; skip {
				return nil
			}
			return a.load(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default: built-in defaults)")
	flags.StringVarP(&a.fixturePath, "fixture", "f", "", "YAML graph to load (overrides fixture.path)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides logging.level)")

	root.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newMethodsCmd(),
		newDumpCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the config, applies flag overrides and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.fixturePath != "" {
		cfg.Fixture.Path = a.fixturePath
	}
	if a.logLevel != "" {
		level, err := logging.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		cfg.Logging.Level = level
	}

	cfg.Logging.Writer = cmd.ErrOrStderr()
	a.cfg = cfg
	a.logger = logging.New(cfg.Logging)
	return nil
}

func (a *app) close() error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}

func (a *app) slogger() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger.Slog()
}

// openGraph builds the graph from the configured fixture, or an empty
// graph when none is set, with the Badger backend attached when storage
// is enabled. The returned func closes the store.
func (a *app) openGraph() (*graph.Graph, []graph.Option, func() error, error) {
	logger := a.slogger()
	closeStore := func() error { return nil }

	var backend graph.Backend
	if a.cfg.Storage.Enabled {
		db, err := badger.OpenDB(a.cfg.Storage.BadgerConfig(logger))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open storage: %w", err)
		}
		b, err := badger.NewBackend(db, logger)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		backend = b
		closeStore = db.Close
		logger.Info("storage attached", slog.String("path", db.Path()), slog.Bool("in_memory", db.InMemory()))
	}

	opts := a.cfg.Graph.Options(backend, logger)
	if a.cfg.Fixture.Path == "" {
		return graph.New(opts...), opts, closeStore, nil
	}

	loaded, err := fixture.Load(a.cfg.Fixture.Path, opts...)
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}
	logger.Info("fixture loaded",
		slog.String("path", a.cfg.Fixture.Path),
		slog.Int("nodes", loaded.Graph.NodeCount()),
		slog.Int("relations", loaded.Graph.RelationCount()),
	)
	return loaded.Graph, opts, closeStore, nil
}
