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
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/graphstore/cmd/graphstore/config"
	"github.com/AleutianAI/graphstore/pkg/ux"
	"github.com/AleutianAI/graphstore/services/graphstore"
	"github.com/AleutianAI/graphstore/services/graphstore/fixture"
	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

var skipConfig = map[string]string{skipConfigAnnotation: "true"}

// --- Methods ---

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "methods",
		Short:       "List the search commands a chain may use",
		Args:        cobra.NoArgs,
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			out := ux.NewOutput(w, ux.DetectMode(w))

			names := graph.SearchMethods()
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				usage, _ := graph.SearchMethodUsage(name)
				rows = append(rows, []string{name, usage})
			}
			out.Title("Search commands")
			out.Table([]string{"METHOD", "USAGE"}, rows)
			return nil
		},
	}
}

// --- Dump ---

func newDumpCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Load the fixture and write it back as YAML",
		Long: `Dump loads the configured fixture and writes the live graph as a
fixture document. Node keys are the node ids, so the output reloads to
the same ids.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, _, closeStore, err := a.openGraph()
			if err != nil {
				return err
			}
			defer closeStore()

			if outPath == "" {
				return fixture.Dump(cmd.OutOrStdout(), g)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := fixture.Dump(f, g); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

// --- Config ---

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the default configuration",
		Args:        cobra.MaximumNArgs(1),
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			ux.NewOutput(w, ux.DetectMode(w)).Success(fmt.Sprintf("wrote %s", path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, flags applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

// --- Version ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: skipConfig,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			ux.NewOutput(w, ux.DetectMode(w)).KeyValues([]ux.KeyValue{
				{Key: "version", Value: graphstore.ServiceVersion},
				{Key: "go", Value: runtime.Version()},
				{Key: "platform", Value: runtime.GOOS + "/" + runtime.GOARCH},
			})
		},
	}
}
