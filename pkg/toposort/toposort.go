// Package toposort provides a string-keyed directed graph with deterministic
// topological ordering. Ties are broken by lexicographic node name so a fixed
// graph always sorts the same way.
package toposort

import "sort"

// Graph is a directed graph over string node names.
type Graph struct {
	nodes      map[string]struct{}
	successors map[string][]string
	inDegree   map[string]int
}

// NewGraph initializes an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]struct{}),
		successors: make(map[string][]string),
		inDegree:   make(map[string]int),
	}
}

// AddNode inserts a node. Returns false if the node already exists.
func (g *Graph) AddNode(name string) bool {
	if _, exists := g.nodes[name]; exists {
		return false
	}

	g.nodes[name] = struct{}{}

	return true
}

// AddEdge inserts the link from "from" to "to", creating missing nodes.
// Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)

	for _, succ := range g.successors[from] {
		if succ == to {
			return
		}
	}

	g.successors[from] = append(g.successors[from], to)
	g.inDegree[to]++
}

// Successors returns the direct successors of name in insertion order.
func (g *Graph) Successors(name string) []string {
	succ := g.successors[name]
	out := make([]string, len(succ))
	copy(out, succ)

	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Toposort returns a topological ordering using Kahn's algorithm.
// The second return value is false when the graph contains a cycle;
// the returned order then covers only the acyclic prefix.
func (g *Graph) Toposort() ([]string, bool) {
	inDegree := make(map[string]int, len(g.nodes))
	for name := range g.nodes {
		inDegree[name] = g.inDegree[name]
	}

	ready := make([]string, 0, len(g.nodes))

	for name := range g.nodes {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))

	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		released := make([]string, 0)

		for _, succ := range g.successors[current] {
			inDegree[succ]--

			if inDegree[succ] == 0 {
				released = append(released, succ)
			}
		}

		sort.Strings(released)
		ready = mergeSorted(ready, released)
	}

	return order, len(order) == len(g.nodes)
}

// mergeSorted merges two lexicographically sorted slices.
func mergeSorted(a, b []string) []string {
	merged := make([]string, 0, len(a)+len(b))
	i, j := 0, 0

	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			merged = append(merged, a[i])
			i++

			continue
		}

		merged = append(merged, b[j])
		j++
	}

	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)

	return merged
}
