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
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/graphstore/pkg/ux"
	"github.com/AleutianAI/graphstore/services/graphstore"
)

const (
	outputAuto  = "auto"
	outputJSON  = "json"
	outputTable = "table"
)

type queryOptions struct {
	output  string
	idsOnly bool
}

func newQueryCmd(a *app) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <command>...",
		Short: "Run one search chain against the fixture",
		Long: `Query loads the fixture and runs a chain of search commands, each
written "method,arg,...". Commands may be separate arguments or joined
with "/" as in the HTTP path.

Examples:
  graphstore query -f graph.yaml value,name,Josh relations_from
  graphstore query -f graph.yaml /property,job/relations_from,,Mentor
  graphstore query -f graph.yaml --output json get_by_id,4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputAuto, "auto, json or table (auto: table on a terminal)")
	cmd.Flags().BoolVar(&opts.idsOnly, "ids", false, "print only the matching ids")
	return cmd
}

// splitSegments accepts both "a b" and "a/b" forms.
func splitSegments(args []string) []string {
	var segments []string
	for _, arg := range args {
		segments = append(segments, strings.Split(arg, "/")...)
	}
	return segments
}

func (a *app) runQuery(ctx context.Context, w io.Writer, args []string, opts *queryOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mode, err := resolveOutput(opts.output, w)
	if err != nil {
		return err
	}

	g, _, closeStore, err := a.openGraph()
	if err != nil {
		return err
	}
	defer closeStore()

	svc := graphstore.NewService(g, a.cfg.Server.ServiceConfig(), a.slogger())
	resp, err := svc.RunChain(ctx, splitSegments(args), !opts.idsOnly)
	if err != nil {
		return err
	}

	switch {
	case opts.idsOnly:
		for _, id := range resp.Result {
			fmt.Fprintln(w, id)
		}
		return nil
	case mode == outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	default:
		renderSearch(ux.NewOutput(w, ux.DetectMode(w)), resp)
		return nil
	}
}

func resolveOutput(output string, w io.Writer) (string, error) {
	switch output {
	case outputJSON, outputTable:
		return output, nil
	case outputAuto, "":
		if ux.IsTerminal(w) {
			return outputTable, nil
		}
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unknown output %q: want auto, json or table", output)
	}
}

func renderSearch(out *ux.Output, resp *graphstore.SearchResponse) {
	out.Title(resp.Chain)

	rows := make([][]string, 0, len(resp.Result))
	for _, id := range resp.Result {
		view, ok := resp.Data[id.String()]
		if !ok {
			rows = append(rows, []string{id.String(), "", "", ""})
			continue
		}
		rows = append(rows, []string{
			view.ID.String(),
			view.Kind,
			describeShape(view),
			formatProperties(view.Properties),
		})
	}
	out.Table([]string{"ID", "KIND", "SHAPE", "PROPERTIES"}, rows)
	out.Muted(fmt.Sprintf("%d result(s)", len(resp.Result)))
}

// describeShape renders a relation as "src -label-> dst" and a node as
// an empty string.
func describeShape(view graphstore.EntityView) string {
	if view.Source == nil || view.Destination == nil {
		return ""
	}
	return fmt.Sprintf("%d -%s-> %d", *view.Source, view.Label, *view.Destination)
}

func formatProperties(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, props[k]))
	}
	return strings.Join(parts, " ")
}
