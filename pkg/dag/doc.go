// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dag answers one question about a submitted pipeline graph: is it
// a directed acyclic graph?
//
// # Description
//
// A request carries an ordered list of nodes and an ordered list of directed
// edges. Build turns them into an adjacency mapping, IsDAG walks that mapping
// depth-first looking for a back edge, and Analyze bundles both together with
// the raw counts reported back to the caller.
//
//	Input{Nodes, Edges}
//	   │
//	   ▼
//	Build ──► *Graph (adjacency + raw counts)
//	   │
//	   ▼
//	FindBackEdge / IsDAG ──► bool
//
// # Counting
//
// Reported counts are the raw submitted counts: duplicate node identifiers,
// duplicate edges and nodes without an identifier all count once per entry,
// even though the adjacency mapping collapses duplicates.
//
// # Thread Safety
//
// Every function in this package is pure. A *Graph is immutable after Build
// returns and may be read from any number of goroutines.
package dag
