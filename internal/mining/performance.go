package mining

import (
	"sort"
	"strings"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/refmodel"
	"github.com/ib823/sapforensics/pkg/alg/mapx"
	"github.com/ib823/sapforensics/pkg/alg/stats"
)

// maxBottlenecks caps the bottleneck ranking for presentation.
const maxBottlenecks = 10

// PerformanceAnalyzer derives waiting-time and cycle-time statistics from a
// timestamped event log. Events without timestamps are excluded.
type PerformanceAnalyzer struct {
	// Model, when set, supplies SLA targets for per-transition breach counts.
	Model *refmodel.Model
}

// NewPerformanceAnalyzer creates an analyzer without SLA comparison.
func NewPerformanceAnalyzer() *PerformanceAnalyzer {
	return &PerformanceAnalyzer{}
}

// Analyze computes per-transition waiting-time distributions, the bottleneck
// ranking (median latency × frequency), and the per-case cycle-time
// histogram. An empty log yields a zero result.
func (pa *PerformanceAnalyzer) Analyze(log *eventlog.EventLog) *PerformanceResult {
	waits := make(map[string][]float64)

	var cycleTimes []float64

	for _, trace := range log.Traces() {
		timed := timedEvents(trace)
		if len(timed) == 0 {
			continue
		}

		for i := 1; i < len(timed); i++ {
			previous, current := timed[i-1], timed[i]
			key := refmodel.TransitionKey(previous.Activity, current.Activity)
			waits[key] = append(waits[key], current.Timestamp.Sub(previous.Timestamp).Hours())
		}

		if len(timed) > 1 {
			cycleTimes = append(cycleTimes, timed[len(timed)-1].Timestamp.Sub(timed[0].Timestamp).Hours())
		}
	}

	result := &PerformanceResult{TimedCaseCount: len(cycleTimes)}

	for _, key := range mapx.SortedKeys(waits) {
		samples := waits[key]
		from, to := splitTransitionKey(key)

		transition := TransitionStats{
			From:        from,
			To:          to,
			Count:       len(samples),
			MeanHours:   stats.Mean(samples),
			MedianHours: stats.Median(samples),
			P95Hours:    stats.Percentile(samples, stats.PercentileP95),
		}

		if pa.Model != nil {
			target, ok := pa.Model.SLATargets[key]
			if ok {
				transition.SLATarget = target.Target
				for _, wait := range samples {
					if wait > target.Target {
						transition.SLABreaches++
					}
				}
			}
		}

		result.Transitions = append(result.Transitions, transition)
	}

	result.Bottlenecks = rankBottlenecks(result.Transitions)

	if len(cycleTimes) > 0 {
		result.CycleTimeMean = stats.Mean(cycleTimes)
		result.CycleTimeP50 = stats.Median(cycleTimes)
		result.CycleTimeP90 = stats.Percentile(cycleTimes, stats.PercentileP90)
		result.CycleTimeP95 = stats.Percentile(cycleTimes, stats.PercentileP95)
	}

	return result
}

// rankBottlenecks scores every transition by median latency × frequency and
// keeps the top entries, ties broken by transition key.
func rankBottlenecks(transitions []TransitionStats) []Bottleneck {
	bottlenecks := make([]Bottleneck, 0, len(transitions))

	for _, transition := range transitions {
		score := transition.MedianHours * float64(transition.Count)
		if score <= 0 {
			continue
		}

		bottlenecks = append(bottlenecks, Bottleneck{
			Transition: refmodel.TransitionKey(transition.From, transition.To),
			Score:      score,
		})
	}

	sort.SliceStable(bottlenecks, func(i, j int) bool {
		if bottlenecks[i].Score != bottlenecks[j].Score {
			return bottlenecks[i].Score > bottlenecks[j].Score
		}

		return bottlenecks[i].Transition < bottlenecks[j].Transition
	})

	if len(bottlenecks) > maxBottlenecks {
		bottlenecks = bottlenecks[:maxBottlenecks]
	}

	return bottlenecks
}

// timedEvents returns the trace's events that carry a timestamp, preserving
// order.
func timedEvents(trace *eventlog.Trace) []eventlog.Event {
	events := make([]eventlog.Event, 0, len(trace.Events))

	for _, event := range trace.Events {
		if event.HasTimestamp() {
			events = append(events, event)
		}
	}

	return events
}

func splitTransitionKey(key string) (from, to string) {
	from, to, _ = strings.Cut(key, " → ")

	return from, to
}
