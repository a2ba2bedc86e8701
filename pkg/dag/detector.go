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

// mark is the per-vertex traversal state for one detection call.
type mark uint8

const (
	unvisited mark = iota
	// onPath: entered but not yet left, i.e. on the current DFS path.
	onPath
	done
)

// frame is one entry of the explicit DFS stack. next indexes the successor
// to examine when the frame is resumed.
type frame struct {
	vertex string
	next   int
}

// FindBackEdge searches g for a directed cycle.
//
// # Description
//
// Depth-first traversal with a recursion-path marker, run on an explicit
// stack so that long chains cost heap rather than goroutine stack. Every
// vertex not yet visited starts a new traversal, so disconnected components
// are each covered. A vertex is marked onPath before its own successors are
// examined, which makes a self-loop an immediate back edge.
//
// # Outputs
//
//   - BackEdge: The edge that closed the first cycle found. Zero if none.
//   - bool: true if a cycle was found.
//
// # Complexity
//
// O(V+E) time, O(V) auxiliary space. The traversal state is allocated per
// call and discarded on return.
func FindBackEdge(g *Graph) (BackEdge, bool) {
	if g == nil || len(g.order) == 0 {
		return BackEdge{}, false
	}

	state := make(map[string]mark, len(g.order))
	stack := make([]frame, 0, 16)

	for _, root := range g.order {
		if state[root] != unvisited {
			continue
		}

		state[root] = onPath
		stack = append(stack[:0], frame{vertex: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succ := g.succ[top.vertex]

			if top.next == len(succ) {
				state[top.vertex] = done
				stack = stack[:len(stack)-1]
				continue
			}

			target := succ[top.next]
			top.next++

			switch state[target] {
			case onPath:
				return BackEdge{From: top.vertex, To: target}, true
			case unvisited:
				state[target] = onPath
				stack = append(stack, frame{vertex: target})
			}
			// done: explored via another path, cannot reach the current one.
		}
	}

	return BackEdge{}, false
}

// IsDAG reports whether g contains no directed cycle. An empty or nil graph
// is a DAG.
func IsDAG(g *Graph) bool {
	_, cyclic := FindBackEdge(g)
	return !cyclic
}
