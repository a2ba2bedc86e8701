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

// Graph is an adjacency mapping built from an Input.
//
// # Description
//
// Every identifier that appears in the node list or as an edge endpoint is a
// vertex, possibly with no successors. Successors are kept in first-seen
// order with duplicates removed, and vertices are kept in first-seen order,
// so traversal over the same Input is always the same.
//
// # Thread Safety
//
// Immutable after Build returns.
type Graph struct {
	order    []string
	succ     map[string][]string
	numNodes int
	numEdges int
}

// Build converts a submitted node and edge list into a Graph.
//
// # Description
//
// Node identifiers are registered first, in submission order, followed by
// any edge endpoint not already seen. Duplicate node identifiers collapse to
// one vertex and duplicate edges collapse to one adjacency entry. Endpoints
// that were never declared as nodes are added as vertices rather than
// rejected.
//
// # Inputs
//
//   - in: Submitted graph. Nodes without an identifier are counted only.
//
// # Outputs
//
//   - *Graph: Never nil. Build has no error conditions.
//
// # Examples
//
//	g := dag.Build(dag.Input{
//	    Nodes: []dag.Node{dag.NewNode("A"), dag.NewNode("B")},
//	    Edges: []dag.Edge{{Source: "A", Target: "B"}, {Source: "A", Target: "B"}},
//	})
//	g.NumEdges()      // 2
//	g.Successors("A") // [B]
func Build(in Input) *Graph {
	g := &Graph{
		order:    make([]string, 0, len(in.Nodes)),
		succ:     make(map[string][]string, len(in.Nodes)),
		numNodes: len(in.Nodes),
		numEdges: len(in.Edges),
	}

	for _, n := range in.Nodes {
		if n.HasID {
			g.addVertex(n.ID)
		}
	}

	type pair struct{ from, to string }
	seen := make(map[pair]struct{}, len(in.Edges))
	for _, e := range in.Edges {
		g.addVertex(e.Source)
		g.addVertex(e.Target)

		key := pair{e.Source, e.Target}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		g.succ[e.Source] = append(g.succ[e.Source], e.Target)
	}

	return g
}

func (g *Graph) addVertex(id string) {
	if _, ok := g.succ[id]; ok {
		return
	}
	g.succ[id] = nil
	g.order = append(g.order, id)
}

// NumNodes returns the number of node entries submitted.
func (g *Graph) NumNodes() int { return g.numNodes }

// NumEdges returns the number of edge entries submitted.
func (g *Graph) NumEdges() int { return g.numEdges }

// Len returns the number of distinct vertices in the adjacency mapping.
func (g *Graph) Len() int { return len(g.order) }

// Vertices returns the vertex identifiers in first-seen order.
func (g *Graph) Vertices() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// HasVertex reports whether id is a key of the adjacency mapping.
func (g *Graph) HasVertex(id string) bool {
	_, ok := g.succ[id]
	return ok
}

// Successors returns the distinct targets of id's outgoing edges, in
// first-seen order. Returns nil for unknown identifiers and for vertices
// without outgoing edges.
func (g *Graph) Successors(id string) []string {
	s := g.succ[id]
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
