package mining

import (
	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/refmodel"
	"github.com/ib823/sapforensics/pkg/alg/mapx"
)

// Heuristic miner defaults.
const (
	// DefaultDependencyThreshold keeps only strongly directed transitions
	// in the main flow.
	DefaultDependencyThreshold = 0.9
	// DefaultLoopThreshold admits every observed self-loop.
	DefaultLoopThreshold = 0.0
)

// DependencyEdge is one retained transition with its measures.
type DependencyEdge struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Frequency  int     `json:"frequency"`
	Dependency float64 `json:"dependency"`
}

// DiscoveryResult is the output of heuristic mining: the discovered model
// plus the retained dependency edges.
type DiscoveryResult struct {
	Model *refmodel.Model  `json:"-"`
	Edges []DependencyEdge `json:"edges"`

	ActivityCount int `json:"activity_count"`
	EdgeCount     int `json:"edge_count"`
	CaseCount     int `json:"case_count"`
}

// Summary returns the flat scalar digest of the result.
func (r *DiscoveryResult) Summary() map[string]any {
	return map[string]any{
		"activity_count": r.ActivityCount,
		"edge_count":     r.EdgeCount,
		"case_count":     r.CaseCount,
	}
}

// HeuristicMiner discovers a directed activity graph from an event log by
// the dependency measure of the heuristics-miner family.
type HeuristicMiner struct {
	DependencyThreshold float64
	LoopThreshold       float64
}

// NewHeuristicMiner creates a miner with the default thresholds.
func NewHeuristicMiner() *HeuristicMiner {
	return &HeuristicMiner{
		DependencyThreshold: DefaultDependencyThreshold,
		LoopThreshold:       DefaultLoopThreshold,
	}
}

// Mine discovers a model from the log. The dependency measure for a pair
// (a, b) is (|a→b| − |b→a|) / (|a→b| + |b→a| + 1); self-loops use
// |a→a| / (|a→a| + 1). Activities with no retained incoming edge become
// starts, those with no retained outgoing edge become ends.
func (hm *HeuristicMiner) Mine(log *eventlog.EventLog) *DiscoveryResult {
	follows := make(map[string]map[string]int)

	for _, trace := range log.Traces() {
		activities := trace.Activities()
		for i := 1; i < len(activities); i++ {
			from, to := activities[i-1], activities[i]

			if follows[from] == nil {
				follows[from] = make(map[string]int)
			}

			follows[from][to]++
		}
	}

	model := refmodel.New(log.Name, "discovered: "+log.Name)

	for _, activity := range log.Activities() {
		model.AddActivity(activity)
	}

	var edges []DependencyEdge

	for _, from := range mapx.SortedKeys(follows) {
		for _, to := range mapx.SortedKeys(follows[from]) {
			forward := follows[from][to]
			backward := follows[to][from]

			var dependency float64

			var threshold float64

			if from == to {
				dependency = float64(forward) / float64(forward+1)
				threshold = hm.LoopThreshold
			} else {
				dependency = float64(forward-backward) / float64(forward+backward+1)
				threshold = hm.DependencyThreshold
			}

			if dependency <= threshold {
				continue
			}

			model.AddEdge(from, to, refmodel.EdgeSequence)
			edges = append(edges, DependencyEdge{
				From:       from,
				To:         to,
				Frequency:  forward,
				Dependency: dependency,
			})
		}
	}

	for _, activity := range model.Activities() {
		if len(model.Predecessors(activity)) == 0 {
			model.SetStart(activity)
		}

		if len(model.Successors(activity)) == 0 {
			model.SetEnd(activity)
		}
	}

	return &DiscoveryResult{
		Model:         model,
		Edges:         edges,
		ActivityCount: len(model.Activities()),
		EdgeCount:     model.EdgeCount(),
		CaseCount:     log.CaseCount(),
	}
}
