// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dag

// Analyze builds the adjacency mapping for in and checks it for cycles.
//
// # Description
//
// Convenience entry point used by the HTTP handler and the CLI. The counts
// in the Result are the raw submitted counts (see package docs).
//
// # Examples
//
//	res := dag.Analyze(in)
//	if !res.IsDAG {
//	    log.Printf("cycle closed by %s -> %s", res.BackEdge.From, res.BackEdge.To)
//	}
func Analyze(in Input) Result {
	g := Build(in)
	res := Result{
		NumNodes: g.NumNodes(),
		NumEdges: g.NumEdges(),
		IsDAG:    true,
	}
	if be, cyclic := FindBackEdge(g); cyclic {
		res.IsDAG = false
		res.BackEdge = &be
	}
	return res
}
