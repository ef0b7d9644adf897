// Package refmodel provides directed-graph reference models of standard ERP
// business processes, with SLA targets and a cycle-safe critical path.
package refmodel

import (
	"sort"
)

// EdgeType labels the control-flow semantics of a model edge.
type EdgeType string

// Edge types. Replay currently treats parallel edges as alternatives; the
// label is retained so a future replay can specialise.
const (
	EdgeSequence EdgeType = "sequence"
	EdgeParallel EdgeType = "parallel"
	EdgeChoice   EdgeType = "choice"
)

// Edge is one directed transition of a reference model.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// SLATarget is the service-level expectation for one transition.
type SLATarget struct {
	Target   float64 `json:"target"`
	Unit     string  `json:"unit"`
	Severity string  `json:"severity"`
}

// Model is a canonical directed-graph description of a business process.
// Cycles are permitted (rework, periodic postings).
type Model struct {
	ID   string
	Name string

	activities map[string]struct{}
	edges      []Edge
	starts     map[string]struct{}
	ends       map[string]struct{}

	SLATargets          map[string]SLATarget
	CriticalTransitions []string

	// Derived indices, maintained on AddEdge for O(1) lookups.
	successors   map[string][]string
	predecessors map[string][]string
	edgeSet      map[string]struct{}
}

// New creates an empty model.
func New(id, name string) *Model {
	return &Model{
		ID:           id,
		Name:         name,
		activities:   make(map[string]struct{}),
		starts:       make(map[string]struct{}),
		ends:         make(map[string]struct{}),
		SLATargets:   make(map[string]SLATarget),
		successors:   make(map[string][]string),
		predecessors: make(map[string][]string),
		edgeSet:      make(map[string]struct{}),
	}
}

// TransitionKey renders the canonical "A → B" transition string.
func TransitionKey(from, to string) string {
	return from + " → " + to
}

// AddActivity registers an activity.
func (m *Model) AddActivity(name string) {
	m.activities[name] = struct{}{}
}

// AddEdge registers a transition, adding missing activities.
func (m *Model) AddEdge(from, to string, edgeType EdgeType) {
	m.AddActivity(from)
	m.AddActivity(to)

	key := TransitionKey(from, to)
	if _, exists := m.edgeSet[key]; exists {
		return
	}

	m.edges = append(m.edges, Edge{From: from, To: to, Type: edgeType})
	m.edgeSet[key] = struct{}{}
	m.successors[from] = append(m.successors[from], to)
	m.predecessors[to] = append(m.predecessors[to], from)
}

// SetStart marks activities as process entry points.
func (m *Model) SetStart(names ...string) {
	for _, name := range names {
		m.AddActivity(name)
		m.starts[name] = struct{}{}
	}
}

// SetEnd marks activities as process completion points.
func (m *Model) SetEnd(names ...string) {
	for _, name := range names {
		m.AddActivity(name)
		m.ends[name] = struct{}{}
	}
}

// SetSLA declares the target for a transition.
func (m *Model) SetSLA(from, to string, target SLATarget) {
	m.SLATargets[TransitionKey(from, to)] = target
}

// MarkCritical appends a transition to the critical-transitions list.
func (m *Model) MarkCritical(from, to string) {
	m.CriticalTransitions = append(m.CriticalTransitions, TransitionKey(from, to))
}

// HasActivity reports whether the activity belongs to the model.
func (m *Model) HasActivity(name string) bool {
	_, ok := m.activities[name]

	return ok
}

// HasEdge reports whether the transition exists.
func (m *Model) HasEdge(from, to string) bool {
	_, ok := m.edgeSet[TransitionKey(from, to)]

	return ok
}

// IsStart reports whether the activity is an entry point.
func (m *Model) IsStart(name string) bool {
	_, ok := m.starts[name]

	return ok
}

// IsEnd reports whether the activity is a completion point.
func (m *Model) IsEnd(name string) bool {
	_, ok := m.ends[name]

	return ok
}

// Successors returns the direct successors of an activity.
func (m *Model) Successors(name string) []string {
	return m.successors[name]
}

// Predecessors returns the direct predecessors of an activity.
func (m *Model) Predecessors(name string) []string {
	return m.predecessors[name]
}

// Activities returns all activities in sorted order.
func (m *Model) Activities() []string {
	names := make([]string, 0, len(m.activities))
	for name := range m.activities {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Edges returns the edges in declaration order.
func (m *Model) Edges() []Edge {
	edges := make([]Edge, len(m.edges))
	copy(edges, m.edges)

	return edges
}

// EdgeCount returns the number of edges.
func (m *Model) EdgeCount() int {
	return len(m.edges)
}

// StartActivities returns the entry points in sorted order.
func (m *Model) StartActivities() []string {
	return sortedKeys(m.starts)
}

// EndActivities returns the completion points in sorted order.
func (m *Model) EndActivities() []string {
	return sortedKeys(m.ends)
}

// FindPath searches for a path from one activity to another via successor
// BFS bounded to maxDepth hops. It returns the intermediate activities
// (excluding both endpoints) and whether a path was found. A path uses at
// least one edge, so from == to requires a self-edge or a cycle back to
// from within the bound.
func (m *Model) FindPath(from, to string, maxDepth int) ([]string, bool) {
	type queueItem struct {
		activity string
		path     []string
	}

	visited := map[string]struct{}{from: {}}
	queue := []queueItem{{activity: from}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if len(item.path) >= maxDepth {
			continue
		}

		for _, succ := range m.successors[item.activity] {
			if succ == to {
				return item.path, true
			}

			if _, seen := visited[succ]; seen {
				continue
			}

			visited[succ] = struct{}{}

			next := make([]string, len(item.path)+1)
			copy(next, item.path)
			next[len(item.path)] = succ

			queue = append(queue, queueItem{activity: succ, path: next})
		}
	}

	return nil, false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
