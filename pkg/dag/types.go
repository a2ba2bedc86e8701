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

// =============================================================================
// Input Types
// =============================================================================

// Node is one entry of the submitted node list.
//
// Only the identifier matters for adjacency. HasID is false when the entry
// carried no identifier at all; such a node still counts toward NumNodes but
// never becomes an adjacency key. An empty ID with HasID set is a valid,
// opaque identifier.
type Node struct {
	ID    string
	HasID bool
}

// NewNode returns a Node carrying the given identifier.
func NewNode(id string) Node {
	return Node{ID: id, HasID: true}
}

// Edge is a directed edge from Source to Target.
type Edge struct {
	Source string
	Target string
}

// Input is a graph description exactly as submitted: order and duplicates
// are preserved.
type Input struct {
	Nodes []Node
	Edges []Edge
}

// =============================================================================
// Result Types
// =============================================================================

// BackEdge is the edge that closed a cycle during traversal. From is the
// node being explored, To is the node already on the traversal path.
type BackEdge struct {
	From string
	To   string
}

// Result is the answer to a single analysis request.
//
// # Fields
//
//   - NumNodes: len(Input.Nodes), duplicates included
//   - NumEdges: len(Input.Edges), duplicates included
//   - IsDAG: true when no directed cycle exists
//   - BackEdge: the edge that closed the first cycle found, nil for a DAG.
//     Which cycle is found first depends on submission order.
type Result struct {
	NumNodes int
	NumEdges int
	IsDAG    bool
	BackEdge *BackEdge
}
