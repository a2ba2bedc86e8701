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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AleutianAI/AleutianPipelines/pkg/dag"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/datatypes"
	"github.com/spf13/cobra"
)

// errNotDAG is returned by check --fail-on-cycle for cyclic pipelines.
var errNotDAG = errors.New("pipeline is not a DAG")

func newCheckCmd(a *app) *cobra.Command {
	var (
		verbose     bool
		failOnCycle bool
	)

	cmd := &cobra.Command{
		Use:   "check [file|-]",
		Short: "Analyze a pipeline JSON document without starting the server",
		Long: `check reads a pipeline document ({"nodes": [...], "edges": [...]}) from
a file, or from stdin when the argument is "-" or omitted, and prints the
same JSON the /pipelines/parse endpoint would return.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPipeline(cmd, args)
			if err != nil {
				return err
			}

			req, err := datatypes.ParsePipeline(raw)
			if err != nil {
				return fmt.Errorf("invalid pipeline: %w", err)
			}

			res := dag.Analyze(req.ToInput())
			a.logger.Slog().Debug("pipeline analyzed",
				"num_nodes", res.NumNodes, "num_edges", res.NumEdges, "is_dag", res.IsDAG)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(datatypes.NewParseResponse(res)); err != nil {
				return err
			}

			if verbose && res.BackEdge != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "cycle closes at %q -> %q\n",
					datatypes.KeyText(res.BackEdge.From), datatypes.KeyText(res.BackEdge.To))
			}
			if failOnCycle && !res.IsDAG {
				return errNotDAG
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the edge that closes a cycle to stderr")
	cmd.Flags().BoolVar(&failOnCycle, "fail-on-cycle", false, "exit non-zero when the pipeline is not a DAG")
	return cmd
}

// readPipeline returns the document named by args, or stdin.
func readPipeline(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}
	return data, nil
}
