package refmodel

import (
	"github.com/ib823/sapforensics/pkg/toposort"
)

// dfsDepthFactor bounds the fallback search on cyclic models to a multiple
// of the activity count, so rework loops cannot run the search away.
const dfsDepthFactor = 2

// CriticalPath returns the longest activity path from any start activity to
// any end activity. Acyclic models use topological dynamic programming;
// cyclic models (recurring payroll, monthly depreciation) fall back to
// bounded DFS with a per-path visited set. The result is non-empty whenever
// start and end activities exist.
func (m *Model) CriticalPath() []string {
	if len(m.starts) == 0 || len(m.ends) == 0 {
		return nil
	}

	graph := toposort.NewGraph()

	for activity := range m.activities {
		graph.AddNode(activity)
	}

	for _, edge := range m.edges {
		graph.AddEdge(edge.From, edge.To)
	}

	order, acyclic := graph.Toposort()
	if acyclic {
		return m.criticalPathDP(order)
	}

	return m.criticalPathDFS()
}

// criticalPathDP computes the longest start-to-end path over a topological
// order in O(V+E).
func (m *Model) criticalPathDP(order []string) []string {
	longest := make(map[string]int, len(order))
	previous := make(map[string]string, len(order))

	for activity := range m.activities {
		longest[activity] = -1
	}

	for start := range m.starts {
		longest[start] = 0
	}

	for _, activity := range order {
		if longest[activity] < 0 {
			continue
		}

		for _, succ := range m.successors[activity] {
			if longest[activity]+1 > longest[succ] {
				longest[succ] = longest[activity] + 1
				previous[succ] = activity
			}
		}
	}

	bestEnd := ""
	bestLen := -1

	for _, end := range m.EndActivities() {
		if longest[end] > bestLen {
			bestLen = longest[end]
			bestEnd = end
		}
	}

	if bestEnd == "" {
		// No end reachable from a start; fall back to the bounded search
		// so callers still get a usable path.
		return m.criticalPathDFS()
	}

	path := []string{bestEnd}
	for current := bestEnd; ; {
		prev, ok := previous[current]
		if !ok {
			break
		}

		path = append([]string{prev}, path...)
		current = prev
	}

	return path
}

// criticalPathDFS finds the longest simple start-to-end path with a
// depth-bounded DFS. Each branch keeps its own visited set so cycles
// terminate.
func (m *Model) criticalPathDFS() []string {
	depthLimit := dfsDepthFactor * len(m.activities)

	var best []string

	for _, start := range m.StartActivities() {
		visited := map[string]struct{}{start: {}}
		m.dfs(start, []string{start}, visited, depthLimit, &best)
	}

	if len(best) == 0 {
		// Starts cannot reach any end at all; the start alone is still a
		// defensible answer for display purposes.
		return m.StartActivities()[:1]
	}

	return best
}

func (m *Model) dfs(current string, path []string, visited map[string]struct{}, depthLimit int, best *[]string) {
	if m.IsEnd(current) && len(path) > len(*best) {
		*best = append([]string(nil), path...)
	}

	if len(path) >= depthLimit {
		return
	}

	for _, succ := range m.successors[current] {
		if _, seen := visited[succ]; seen {
			continue
		}

		visited[succ] = struct{}{}
		m.dfs(succ, append(path, succ), visited, depthLimit, best)
		delete(visited, succ)
	}
}
