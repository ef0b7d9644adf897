package mining

import (
	"math"
	"sort"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/pkg/alg/mapx"
	"github.com/ib823/sapforensics/pkg/alg/stats"
)

// balancedCVThreshold separates balanced workloads from skewed ones.
const balancedCVThreshold = 0.5

// DefaultSoDRules are the conflicts checked when the caller supplies none.
// They cover the classic create/approve and receive/pay separations.
var DefaultSoDRules = []SoDRule{
	{ActivityA: "Create Purchase Order", ActivityB: "Approve Purchase Order"},
	{ActivityA: "Invoice Receipt", ActivityB: "Payment Run"},
	{ActivityA: "Create Sales Order", ActivityB: "Credit Check"},
	{ActivityA: "Create Journal Entry", ActivityB: "Post Document"},
	{ActivityA: "Hire Employee", ActivityB: "Run Payroll"},
}

// SocialNetworkAnalyzer derives resource interaction structure from an
// event log. Events without a resource are excluded.
type SocialNetworkAnalyzer struct {
	// Rules are the segregation-of-duties conflicts to check. Nil means
	// DefaultSoDRules; an empty non-nil slice disables the check.
	Rules []SoDRule
}

// NewSocialNetworkAnalyzer creates an analyzer with the default SoD rules.
func NewSocialNetworkAnalyzer() *SocialNetworkAnalyzer {
	return &SocialNetworkAnalyzer{}
}

// Analyze computes the handover and working-together matrices, per-resource
// utilisation with centrality, the activity-resource matrix, and SoD
// violations.
func (sa *SocialNetworkAnalyzer) Analyze(log *eventlog.EventLog) *SocialNetworkResult {
	rules := sa.Rules
	if rules == nil {
		rules = DefaultSoDRules
	}

	result := &SocialNetworkResult{
		Handover:        make(map[string]map[string]int),
		WorkingTogether: make(map[string]map[string]int),
		ActivityMatrix:  make(map[string]map[string]int),
	}

	eventCounts := make(map[string]int)
	activityCounts := make(map[string]map[string]int)

	var violations []SoDViolation

	for _, trace := range log.Traces() {
		caseResources := make(map[string]struct{})
		resourceActivities := make(map[string]map[string]struct{})

		var previousResource string

		for _, event := range trace.Events {
			resource := event.Resource
			if resource == "" {
				previousResource = ""

				continue
			}

			eventCounts[resource]++
			addCell(result.ActivityMatrix, event.Activity, resource)
			addCell(activityCounts, resource, event.Activity)

			if resourceActivities[resource] == nil {
				resourceActivities[resource] = make(map[string]struct{})
			}

			resourceActivities[resource][event.Activity] = struct{}{}
			caseResources[resource] = struct{}{}

			if previousResource != "" && previousResource != resource {
				addCell(result.Handover, previousResource, resource)
			}

			previousResource = resource
		}

		recordWorkingTogether(result.WorkingTogether, caseResources)
		violations = append(violations, checkSoD(rules, trace.CaseID, resourceActivities)...)
	}

	result.SoDViolations = violations
	result.Resources = buildResourceStats(eventCounts, activityCounts, result.Handover)

	counts := make([]float64, 0, len(eventCounts))
	for _, resource := range mapx.SortedKeys(eventCounts) {
		counts = append(counts, float64(eventCounts[resource]))
	}

	result.UtilizationCV = stats.CoefficientOfVariation(counts)
	result.Balanced = result.UtilizationCV < balancedCVThreshold

	return result
}

func addCell(matrix map[string]map[string]int, row, col string) {
	if matrix[row] == nil {
		matrix[row] = make(map[string]int)
	}

	matrix[row][col]++
}

// recordWorkingTogether increments the symmetric co-occurrence counts for
// every resource pair active in the case.
func recordWorkingTogether(matrix map[string]map[string]int, caseResources map[string]struct{}) {
	resources := mapx.SortedKeys(caseResources)

	for i, a := range resources {
		for _, b := range resources[i+1:] {
			addCell(matrix, a, b)
			addCell(matrix, b, a)
		}
	}
}

// checkSoD reports every rule whose two activities were performed by the
// same resource within the case.
func checkSoD(rules []SoDRule, caseID string, resourceActivities map[string]map[string]struct{}) []SoDViolation {
	var violations []SoDViolation

	for _, resource := range mapx.SortedKeys(resourceActivities) {
		performed := resourceActivities[resource]

		for _, rule := range rules {
			_, didA := performed[rule.ActivityA]
			_, didB := performed[rule.ActivityB]

			if didA && didB {
				violations = append(violations, SoDViolation{
					Rule:     rule,
					CaseID:   caseID,
					Resource: resource,
				})
			}
		}
	}

	return violations
}

// buildResourceStats assembles per-resource workload summaries sorted by
// event count descending, ties by name. Centrality is sqrt(in × out) over
// handover volume, a cheap proxy for betweenness.
func buildResourceStats(eventCounts map[string]int, activityCounts map[string]map[string]int, handover map[string]map[string]int) []ResourceStats {
	inbound := make(map[string]int)
	outbound := make(map[string]int)

	for from, row := range handover {
		for to, count := range row {
			outbound[from] += count
			inbound[to] += count
		}
	}

	resources := make([]ResourceStats, 0, len(eventCounts))

	for _, resource := range mapx.SortedKeys(eventCounts) {
		activities := mapx.SortedKeys(activityCounts[resource])

		primary := ""
		primaryCount := 0

		for _, activity := range activities {
			if activityCounts[resource][activity] > primaryCount {
				primary = activity
				primaryCount = activityCounts[resource][activity]
			}
		}

		resources = append(resources, ResourceStats{
			Resource:        resource,
			EventCount:      eventCounts[resource],
			PrimaryActivity: primary,
			Activities:      activities,
			Centrality:      math.Sqrt(float64(inbound[resource]) * float64(outbound[resource])),
		})
	}

	sort.SliceStable(resources, func(i, j int) bool {
		if resources[i].EventCount != resources[j].EventCount {
			return resources[i].EventCount > resources[j].EventCount
		}

		return resources[i].Resource < resources[j].Resource
	})

	return resources
}
