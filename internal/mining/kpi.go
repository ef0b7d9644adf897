package mining

import (
	"regexp"
	"slices"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/pkg/alg/mapx"
	"github.com/ib823/sapforensics/pkg/alg/stats"
)

// KPI categories.
const (
	CategoryTime        = "time"
	CategoryQuality     = "quality"
	CategoryVolume      = "volume"
	CategoryConformance = "conformance"
	CategoryResource    = "resource"
	CategoryProcess     = "process"
)

// automationPattern matches resources that indicate automated execution.
var automationPattern = regexp.MustCompile(`^(SYSTEM|BATCH|RFC.*|WF-BATCH.*)$`)

// wipSampleCount is the number of occupancy samples taken across the log's
// time span for the work-in-progress estimate.
const wipSampleCount = 100

const kpiPctFactor = 100

// KPI is one indicator with its dispersion and confidence interval.
type KPI struct {
	Value float64        `json:"value"`
	Unit  string         `json:"unit"`
	Count int            `json:"count"`
	CI    stats.Interval `json:"ci"`
	Stats stats.Summary  `json:"stats"`
}

// KPIReport groups indicators by category.
type KPIReport struct {
	Level      float64                   `json:"level"`
	Categories map[string]map[string]KPI `json:"categories"`
}

// Summary returns the flat value digest: "category.name" → value.
func (r *KPIReport) Summary() map[string]any {
	flat := make(map[string]any)

	for _, category := range mapx.SortedKeys(r.Categories) {
		for _, name := range mapx.SortedKeys(r.Categories[category]) {
			flat[category+"."+name] = r.Categories[category][name].Value
		}
	}

	return flat
}

// Get returns the named KPI, with ok reporting presence.
func (r *KPIReport) Get(category, name string) (KPI, bool) {
	kpi, ok := r.Categories[category][name]

	return kpi, ok
}

// KPIEngine computes the per-category indicator set over an event log.
type KPIEngine struct {
	// Level is the confidence level for intervals, default 0.95.
	Level float64
}

// NewKPIEngine creates an engine with 95% confidence intervals.
func NewKPIEngine() *KPIEngine {
	return &KPIEngine{Level: stats.Level95}
}

// Compute derives time, quality, volume, resource, and process KPIs from
// the log. Conformance KPIs are included when a replay result is supplied;
// process KPIs come from the mapping's catalogue. Empty logs yield
// zero-valued indicators.
func (e *KPIEngine) Compute(log *eventlog.EventLog, conformance *ConformanceResult, defs []eventlog.KPIDef) *KPIReport {
	report := &KPIReport{
		Level:      e.Level,
		Categories: make(map[string]map[string]KPI),
	}

	e.timeKPIs(report, log)
	e.qualityKPIs(report, log)
	e.volumeKPIs(report, log)
	e.resourceKPIs(report, log)

	if conformance != nil {
		e.set(report, CategoryConformance, "fitness", "ratio", []float64{conformance.Fitness})
		e.set(report, CategoryConformance, "precision", "ratio", []float64{conformance.Precision})
		e.set(report, CategoryConformance, "conformance_rate", "percent", []float64{conformance.ConformanceRate})
	}

	for _, def := range defs {
		var counts []float64

		for _, trace := range log.Traces() {
			occurrences := 0

			for _, activity := range trace.Activities() {
				if activity == def.Activity {
					occurrences++
				}
			}

			counts = append(counts, float64(occurrences))
		}

		unit := def.Unit
		if unit == "" {
			unit = "count"
		}

		e.set(report, CategoryProcess, def.Name, unit, counts)
	}

	return report
}

// set records a KPI whose value is the sample mean.
func (e *KPIEngine) set(report *KPIReport, category, name, unit string, samples []float64) {
	if report.Categories[category] == nil {
		report.Categories[category] = make(map[string]KPI)
	}

	report.Categories[category][name] = KPI{
		Value: stats.Mean(samples),
		Unit:  unit,
		Count: len(samples),
		CI:    stats.ConfidenceInterval(samples, e.Level),
		Stats: stats.Describe(samples),
	}
}

// scalar records a single-valued KPI with a degenerate interval.
func (e *KPIEngine) scalar(report *KPIReport, category, name, unit string, value float64) {
	e.set(report, category, name, unit, []float64{value})
}

func (e *KPIEngine) timeKPIs(report *KPIReport, log *eventlog.EventLog) {
	var cycleTimes, touchTimes, activitiesPerCase []float64

	for _, trace := range log.Traces() {
		activitiesPerCase = append(activitiesPerCase, float64(len(trace.Events)))

		timed := timedEvents(trace)
		if len(timed) < 2 {
			continue
		}

		cycleTimes = append(cycleTimes, timed[len(timed)-1].Timestamp.Sub(timed[0].Timestamp).Hours())

		// Touch time: elapsed hours where consecutive events share a
		// resource, approximating active handling as opposed to queueing.
		var touch float64

		for i := 1; i < len(timed); i++ {
			if timed[i].Resource != "" && timed[i].Resource == timed[i-1].Resource {
				touch += timed[i].Timestamp.Sub(timed[i-1].Timestamp).Hours()
			}
		}

		touchTimes = append(touchTimes, touch)
	}

	e.set(report, CategoryTime, "cycle_time_hours", "hours", cycleTimes)
	e.set(report, CategoryTime, "touch_time_hours", "hours", touchTimes)
	e.set(report, CategoryTime, "activities_per_case", "count", activitiesPerCase)
}

func (e *KPIEngine) qualityKPIs(report *KPIReport, log *eventlog.EventLog) {
	var reworkFlags, selfLoopFlags []float64

	for _, trace := range log.Traces() {
		sequence := trace.Activities()

		rework := 0.0
		if hasRework(sequence) {
			rework = kpiPctFactor
		}

		reworkFlags = append(reworkFlags, rework)

		selfLoop := 0.0

		for i := 1; i < len(sequence); i++ {
			if sequence[i] == sequence[i-1] {
				selfLoop = kpiPctFactor

				break
			}
		}

		selfLoopFlags = append(selfLoopFlags, selfLoop)
	}

	firstTimeRight := make([]float64, len(reworkFlags))
	for i, flag := range reworkFlags {
		firstTimeRight[i] = kpiPctFactor - flag
	}

	variants := NewVariantAnalyzer().Analyze(log)

	happyFlags := make([]float64, 0, log.CaseCount())
	straightThrough := make([]float64, 0, log.CaseCount())

	happyCases := make(map[string]struct{})

	for _, variant := range variants.Variants {
		if !variant.Rework && len(variant.Sequence) > 0 && slices.Equal(variant.Sequence, variants.HappyPath) {
			for _, caseID := range variant.CaseIDs {
				happyCases[caseID] = struct{}{}
			}
		}
	}

	for _, trace := range log.Traces() {
		happy := 0.0
		if _, ok := happyCases[trace.CaseID]; ok {
			happy = kpiPctFactor
		}

		happyFlags = append(happyFlags, happy)

		// Straight-through: every event executed by an automated resource.
		automated := len(trace.Events) > 0

		for _, event := range trace.Events {
			if !automationPattern.MatchString(event.Resource) {
				automated = false

				break
			}
		}

		value := 0.0
		if automated {
			value = kpiPctFactor
		}

		straightThrough = append(straightThrough, value)
	}

	e.set(report, CategoryQuality, "rework_rate", "percent", reworkFlags)
	e.set(report, CategoryQuality, "first_time_right", "percent", firstTimeRight)
	e.set(report, CategoryQuality, "self_loop_rate", "percent", selfLoopFlags)
	e.set(report, CategoryQuality, "happy_path_rate", "percent", happyFlags)
	e.set(report, CategoryQuality, "straight_through_rate", "percent", straightThrough)
	e.scalar(report, CategoryQuality, "variant_count", "count", float64(variants.VariantCount))
}

func (e *KPIEngine) volumeKPIs(report *KPIReport, log *eventlog.EventLog) {
	e.scalar(report, CategoryVolume, "case_count", "count", float64(log.CaseCount()))
	e.scalar(report, CategoryVolume, "event_count", "count", float64(log.EventCount()))
	e.scalar(report, CategoryVolume, "activity_count", "count", float64(len(log.Activities())))
	e.set(report, CategoryVolume, "avg_wip", "cases", wipSamples(log))
}

func (e *KPIEngine) resourceKPIs(report *KPIReport, log *eventlog.EventLog) {
	var handoversPerCase, automationShares []float64

	for _, trace := range log.Traces() {
		handovers := 0
		automatedEvents := 0
		resourcedEvents := 0

		var previous string

		for _, event := range trace.Events {
			if event.Resource == "" {
				continue
			}

			resourcedEvents++

			if automationPattern.MatchString(event.Resource) {
				automatedEvents++
			}

			if previous != "" && previous != event.Resource {
				handovers++
			}

			previous = event.Resource
		}

		handoversPerCase = append(handoversPerCase, float64(handovers))

		if resourcedEvents > 0 {
			automationShares = append(automationShares, kpiPctFactor*float64(automatedEvents)/float64(resourcedEvents))
		}
	}

	e.scalar(report, CategoryResource, "unique_resources", "count", float64(len(log.Resources())))
	e.set(report, CategoryResource, "handovers_per_case", "count", handoversPerCase)
	e.set(report, CategoryResource, "automation_rate", "percent", automationShares)
}

// wipSamples estimates work in progress by sampling case occupancy at
// evenly spaced instants across the log's time span.
func wipSamples(log *eventlog.EventLog) []float64 {
	type span struct {
		start, end int64
	}

	var spans []span

	var lo, hi int64

	for _, trace := range log.Traces() {
		timed := timedEvents(trace)
		if len(timed) == 0 {
			continue
		}

		s := span{
			start: timed[0].Timestamp.UnixMilli(),
			end:   timed[len(timed)-1].Timestamp.UnixMilli(),
		}

		if len(spans) == 0 || s.start < lo {
			lo = s.start
		}

		if len(spans) == 0 || s.end > hi {
			hi = s.end
		}

		spans = append(spans, s)
	}

	if len(spans) == 0 {
		return nil
	}

	if hi == lo {
		return []float64{float64(len(spans))}
	}

	samples := make([]float64, 0, wipSampleCount)
	step := float64(hi-lo) / float64(wipSampleCount-1)

	for i := 0; i < wipSampleCount; i++ {
		at := lo + int64(float64(i)*step)
		active := 0

		for _, s := range spans {
			if s.start <= at && at <= s.end {
				active++
			}
		}

		samples = append(samples, float64(active))
	}

	return samples
}
