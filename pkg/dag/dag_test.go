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

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func nodes(ids ...string) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewNode(id))
	}
	return out
}

// edges builds an edge list from alternating source/target identifiers.
func edges(pairs ...string) []Edge {
	if len(pairs)%2 != 0 {
		panic("edges: odd number of identifiers")
	}
	out := make([]Edge, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Edge{Source: pairs[i], Target: pairs[i+1]})
	}
	return out
}

// =============================================================================
// Build Tests
// =============================================================================

func TestBuild_EveryDeclaredNodeHasEntry(t *testing.T) {
	g := Build(Input{Nodes: nodes("A", "B", "C")})

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []string{"A", "B", "C"}, g.Vertices())
	for _, id := range []string{"A", "B", "C"} {
		assert.True(t, g.HasVertex(id))
		assert.Nil(t, g.Successors(id))
	}
}

func TestBuild_UndeclaredEndpointsBecomeVertices(t *testing.T) {
	g := Build(Input{
		Nodes: nodes("A"),
		Edges: edges("A", "X", "Y", "A"),
	})

	assert.Equal(t, []string{"A", "X", "Y"}, g.Vertices())
	assert.Equal(t, []string{"X"}, g.Successors("A"))
	assert.Equal(t, []string{"A"}, g.Successors("Y"))
	assert.Nil(t, g.Successors("X"))
}

func TestBuild_DuplicatesCollapseButCountsDoNot(t *testing.T) {
	g := Build(Input{
		Nodes: nodes("A", "A", "B"),
		Edges: edges("A", "B", "A", "B", "A", "B"),
	})

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 3, g.NumEdges())
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"B"}, g.Successors("A"))
}

func TestBuild_NodeWithoutIDCountsOnly(t *testing.T) {
	g := Build(Input{Nodes: []Node{{}, NewNode("A"), {}}})

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 1, g.Len())
	assert.False(t, g.HasVertex(""))
}

func TestBuild_EmptyStringIsAnIdentifier(t *testing.T) {
	g := Build(Input{Nodes: nodes(""), Edges: edges("", "")})

	assert.True(t, g.HasVertex(""))
	assert.Equal(t, []string{""}, g.Successors(""))
	assert.False(t, IsDAG(g))
}

func TestBuild_SuccessorsReturnsCopy(t *testing.T) {
	g := Build(Input{Edges: edges("A", "B")})

	s := g.Successors("A")
	s[0] = "Z"

	assert.Equal(t, []string{"B"}, g.Successors("A"))
}

// =============================================================================
// Cycle Detection Tests
// =============================================================================

func TestIsDAG_EmptyGraph(t *testing.T) {
	assert.True(t, IsDAG(Build(Input{})))
	assert.True(t, IsDAG(nil))
}

func TestIsDAG_NoEdgesIsAlwaysDAG(t *testing.T) {
	for n := 0; n <= 50; n += 5 {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i%26))
		}
		assert.True(t, IsDAG(Build(Input{Nodes: nodes(ids...)})), "n=%d", n)
	}
}

func TestIsDAG_SelfLoop(t *testing.T) {
	g := Build(Input{Nodes: nodes("A", "B"), Edges: edges("A", "B", "B", "B")})

	be, cyclic := FindBackEdge(g)

	require.True(t, cyclic)
	assert.Equal(t, BackEdge{From: "B", To: "B"}, be)
}

func TestIsDAG_Chain(t *testing.T) {
	for _, n := range []int{1, 2, 3, 10, 100} {
		in := chain(n)
		assert.True(t, IsDAG(Build(in)), "chain of %d", n)
	}
}

func TestIsDAG_ChainWithBackEdge(t *testing.T) {
	for _, n := range []int{2, 3, 10, 100} {
		in := chain(n)
		// Any edge from a later node to an earlier one closes exactly one cycle.
		in.Edges = append(in.Edges, Edge{Source: id(n - 1), Target: id(n / 2)})
		assert.False(t, IsDAG(Build(in)), "chain of %d", n)
	}
}

func TestIsDAG_LongChainDoesNotOverflow(t *testing.T) {
	in := chain(200_000)
	assert.True(t, IsDAG(Build(in)))

	in.Edges = append(in.Edges, Edge{Source: id(199_999), Target: id(0)})
	assert.False(t, IsDAG(Build(in)))
}

func TestIsDAG_DiamondIsNotACycle(t *testing.T) {
	// B and C both reach D; D is done by the time it is seen a second time.
	g := Build(Input{
		Nodes: nodes("A", "B", "C", "D"),
		Edges: edges("A", "B", "A", "C", "B", "D", "C", "D"),
	})
	assert.True(t, IsDAG(g))
}

func TestIsDAG_CycleInSecondComponent(t *testing.T) {
	g := Build(Input{
		Nodes: nodes("A", "B", "X", "Y"),
		Edges: edges("A", "B", "X", "Y", "Y", "X"),
	})

	be, cyclic := FindBackEdge(g)

	require.True(t, cyclic)
	assert.Equal(t, BackEdge{From: "Y", To: "X"}, be)
}

func TestIsDAG_CycleThroughUndeclaredNode(t *testing.T) {
	g := Build(Input{
		Nodes: nodes("A"),
		Edges: edges("A", "ghost", "ghost", "A"),
	})
	assert.False(t, IsDAG(g))
}

func TestIsDAG_Idempotent(t *testing.T) {
	inputs := []Input{
		chain(5),
		{Nodes: nodes("A", "B", "C"), Edges: edges("A", "B", "B", "C", "C", "A")},
		{},
	}
	for _, in := range inputs {
		g := Build(in)
		first := IsDAG(g)
		assert.Equal(t, first, IsDAG(g))
		assert.Equal(t, first, IsDAG(g))
	}
}

func TestIsDAG_EdgeOrderIndependent(t *testing.T) {
	base := []Input{
		{Nodes: nodes("A", "B", "C", "D"), Edges: edges("A", "B", "B", "C", "C", "D", "A", "D")},
		{Nodes: nodes("A", "B", "C", "D"), Edges: edges("A", "B", "B", "C", "C", "D", "D", "B")},
		{Nodes: nodes("A", "B"), Edges: edges("A", "B", "A", "B", "B", "A")},
	}
	for _, in := range base {
		want := IsDAG(Build(in))
		permute(in.Edges, func(perm []Edge) {
			got := IsDAG(Build(Input{Nodes: in.Nodes, Edges: perm}))
			assert.Equal(t, want, got, "edges=%v", perm)
		})
	}
}

// =============================================================================
// Analyze Tests
// =============================================================================

func TestAnalyze_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		nodes int
		edges int
		isDAG bool
	}{
		{
			name:  "chain",
			in:    Input{Nodes: nodes("A", "B", "C"), Edges: edges("A", "B", "B", "C")},
			nodes: 3, edges: 2, isDAG: true,
		},
		{
			name:  "triangle",
			in:    Input{Nodes: nodes("A", "B", "C"), Edges: edges("A", "B", "B", "C", "C", "A")},
			nodes: 3, edges: 3, isDAG: false,
		},
		{
			name:  "self loop",
			in:    Input{Nodes: nodes("A"), Edges: edges("A", "A")},
			nodes: 1, edges: 1, isDAG: false,
		},
		{
			name:  "empty",
			in:    Input{Nodes: []Node{}, Edges: []Edge{}},
			nodes: 0, edges: 0, isDAG: true,
		},
		{
			name:  "duplicate edges counted",
			in:    Input{Nodes: nodes("A", "B"), Edges: edges("A", "B", "A", "B")},
			nodes: 2, edges: 2, isDAG: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Analyze(tt.in)

			assert.Equal(t, tt.nodes, res.NumNodes)
			assert.Equal(t, tt.edges, res.NumEdges)
			assert.Equal(t, tt.isDAG, res.IsDAG)
			if tt.isDAG {
				assert.Nil(t, res.BackEdge)
			} else {
				assert.NotNil(t, res.BackEdge)
			}
		})
	}
}

// =============================================================================
// Helpers
// =============================================================================

func id(i int) string {
	return "n" + strconv.Itoa(i)
}

func chain(n int) Input {
	in := Input{Nodes: make([]Node, 0, n)}
	for i := 0; i < n; i++ {
		in.Nodes = append(in.Nodes, NewNode(id(i)))
		if i > 0 {
			in.Edges = append(in.Edges, Edge{Source: id(i - 1), Target: id(i)})
		}
	}
	return in
}

// permute calls fn with every permutation of es (Heap's algorithm).
func permute(es []Edge, fn func([]Edge)) {
	work := make([]Edge, len(es))
	copy(work, es)

	var gen func(k int)
	gen = func(k int) {
		if k <= 1 {
			fn(work)
			return
		}
		gen(k - 1)
		for i := 0; i < k-1; i++ {
			if k%2 == 0 {
				work[i], work[k-1] = work[k-1], work[i]
			} else {
				work[0], work[k-1] = work[k-1], work[0]
			}
			gen(k - 1)
		}
	}
	gen(len(work))
}
