package mining

import (
	"fmt"
	"sort"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/refmodel"
)

// replaySkipDepth bounds the successor search used to explain a non-adjacent
// transition as a run of skipped activities.
const replaySkipDepth = 5

// conformancePctFactor converts a 0..1 rate to percent.
const conformancePctFactor = 100

// ConformanceChecker replays an event log against a reference model using
// token counting.
type ConformanceChecker struct {
	model *refmodel.Model
}

// NewConformanceChecker creates a checker for the given model.
func NewConformanceChecker(model *refmodel.Model) (*ConformanceChecker, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil reference model", eventlog.ErrValidation)
	}

	return &ConformanceChecker{model: model}, nil
}

// tokenCounters holds the four replay counters.
type tokenCounters struct {
	produced  int
	consumed  int
	missing   int
	remaining int
}

func (c *tokenCounters) add(other tokenCounters) {
	c.produced += other.produced
	c.consumed += other.consumed
	c.missing += other.missing
	c.remaining += other.remaining
}

// fitness computes 0.5·(1 − missing/consumed) + 0.5·(1 − remaining/produced),
// with each ratio taken as 0 when its denominator is 0.
func (c *tokenCounters) fitness() float64 {
	missingRatio := 0.0
	if c.consumed > 0 {
		missingRatio = float64(c.missing) / float64(c.consumed)
	}

	remainingRatio := 0.0
	if c.produced > 0 {
		remainingRatio = float64(c.remaining) / float64(c.produced)
	}

	return 0.5*(1-missingRatio) + 0.5*(1-remainingRatio)
}

// Check replays every trace and returns the accumulated conformance result.
// An empty log yields fitness 1 and a 100% conformance rate.
func (c *ConformanceChecker) Check(log *eventlog.EventLog) *ConformanceResult {
	result := &ConformanceResult{
		ModelID:              c.model.ID,
		DeviationsByType:     make(map[string]int),
		DeviationsByActivity: make(map[string]int),
	}

	var global tokenCounters

	observed := make(map[string]struct{})

	for _, trace := range log.Traces() {
		counters, deviations := c.replayTrace(trace, observed)

		global.add(counters)
		result.TotalCases++

		caseFitness := counters.fitness()
		if caseFitness == 1 && len(deviations) == 0 {
			result.FullyConformant++
		}

		result.Cases = append(result.Cases, CaseFitness{
			CaseID:     trace.CaseID,
			Fitness:    caseFitness,
			Deviations: len(deviations),
		})

		for _, deviation := range deviations {
			result.Deviations = append(result.Deviations, deviation)
			result.DeviationsByType[string(deviation.Type)]++
			result.DeviationsByActivity[deviation.Activity]++
		}
	}

	sortDeviations(result.Deviations)

	result.Produced = global.produced
	result.Consumed = global.consumed
	result.Missing = global.missing
	result.Remaining = global.remaining
	result.Fitness = global.fitness()
	result.Precision = c.precision(observed)

	if result.TotalCases > 0 {
		result.ConformanceRate = conformancePctFactor * float64(result.FullyConformant) / float64(result.TotalCases)
		result.AvgDeviationsPerCase = float64(len(result.Deviations)) / float64(result.TotalCases)
	} else {
		result.ConformanceRate = conformancePctFactor
		result.Fitness = 1
	}

	return result
}

// replayTrace runs token replay over one trace, recording consecutive
// activity pairs into observed for the precision computation.
func (c *ConformanceChecker) replayTrace(trace *eventlog.Trace, observed map[string]struct{}) (tokenCounters, []Deviation) {
	var counters tokenCounters

	var deviations []Deviation

	record := func(devType DeviationType, activity, detail string) {
		deviations = append(deviations, Deviation{
			Type:     devType,
			CaseID:   trace.CaseID,
			Activity: activity,
			Detail:   detail,
		})
	}

	activities := trace.Activities()

	for i, current := range activities {
		if i == 0 {
			counters.produced++
			counters.consumed++

			switch {
			case c.model.IsStart(current):
			case c.model.HasActivity(current):
				counters.missing++
				record(DeviationUnexpectedStart, current, "trace does not begin at a start activity")
			default:
				counters.missing++
				record(DeviationInsert, current, "activity not in model")
			}

			continue
		}

		previous := activities[i-1]
		observed[refmodel.TransitionKey(previous, current)] = struct{}{}

		switch {
		case c.model.HasEdge(previous, current):
			counters.produced++
			counters.consumed++
		case c.model.HasActivity(current):
			skipped, found := c.model.FindPath(previous, current, replaySkipDepth)
			if found {
				for _, skippedActivity := range skipped {
					record(DeviationSkip, skippedActivity, "activity skipped between "+previous+" and "+current)
				}

				counters.produced += len(skipped)
				counters.remaining += len(skipped)
				counters.produced++
				counters.consumed++
			} else {
				counters.missing++
				counters.consumed++
				counters.produced++
				record(DeviationInvalidTransition, current, "no model path from "+previous)
			}
		default:
			counters.missing++
			counters.consumed++
			counters.produced++
			record(DeviationInsert, current, "activity not in model")
		}
	}

	last := activities[len(activities)-1]
	if c.model.HasActivity(last) && !c.model.IsEnd(last) {
		counters.remaining += 1 + c.distanceToEnd(last)
		record(DeviationPrematureEnd, last, "trace does not reach an end activity")
	}

	return counters, deviations
}

// distanceToEnd returns the intermediate count of the shortest bounded path
// from the activity to any end activity, or 0 when none is reachable.
func (c *ConformanceChecker) distanceToEnd(activity string) int {
	best := -1

	for _, end := range c.model.EndActivities() {
		intermediates, found := c.model.FindPath(activity, end, replaySkipDepth)
		if !found {
			continue
		}

		if best < 0 || len(intermediates) < best {
			best = len(intermediates)
		}
	}

	if best < 0 {
		return 0
	}

	return best
}

// precision is the escaping-edges measure: the fraction of model edges that
// were actually observed, 1 when the model has no edges.
func (c *ConformanceChecker) precision(observed map[string]struct{}) float64 {
	edges := c.model.Edges()
	if len(edges) == 0 {
		return 1
	}

	unobserved := 0

	for _, edge := range edges {
		_, seen := observed[refmodel.TransitionKey(edge.From, edge.To)]
		if !seen {
			unobserved++
		}
	}

	return 1 - float64(unobserved)/float64(len(edges))
}

// sortDeviations orders deviations for stable presentation: by case, then
// activity, then type.
func sortDeviations(deviations []Deviation) {
	sort.SliceStable(deviations, func(i, j int) bool {
		if deviations[i].CaseID != deviations[j].CaseID {
			return deviations[i].CaseID < deviations[j].CaseID
		}

		if deviations[i].Activity != deviations[j].Activity {
			return deviations[i].Activity < deviations[j].Activity
		}

		return deviations[i].Type < deviations[j].Type
	})
}
