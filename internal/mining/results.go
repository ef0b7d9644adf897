// Package mining implements the process-mining algorithms: heuristic
// discovery, token-based conformance replay, performance, variant and
// social-network analyses, and the statistical KPI engine. All analyses are
// purely in-memory, deterministic for a fixed input, and never mutate the
// event log they receive.
package mining

import (
	"encoding/json"
	"fmt"
)

// DeviationType classifies a conformance deviation.
type DeviationType string

// Deviation types recorded during token replay.
const (
	DeviationUnexpectedStart   DeviationType = "unexpected_start"
	DeviationInsert            DeviationType = "insert"
	DeviationSkip              DeviationType = "skip"
	DeviationInvalidTransition DeviationType = "invalid_transition"
	DeviationPrematureEnd      DeviationType = "premature_end"
)

// Deviation is one replay mismatch between a trace and the model.
type Deviation struct {
	Type     DeviationType `json:"type"`
	CaseID   string        `json:"case_id"`
	Activity string        `json:"activity"`
	Detail   string        `json:"detail,omitempty"`
}

// CaseFitness is the replay outcome of one trace.
type CaseFitness struct {
	CaseID     string  `json:"case_id"`
	Fitness    float64 `json:"fitness"`
	Deviations int     `json:"deviations"`
}

// ConformanceResult is the immutable output of token-based replay.
type ConformanceResult struct {
	ModelID             string  `json:"model_id"`
	TotalCases          int     `json:"total_cases"`
	FullyConformant     int     `json:"fully_conformant_cases"`
	ConformanceRate     float64 `json:"conformance_rate"`
	Fitness             float64 `json:"fitness"`
	Precision           float64 `json:"precision"`
	Produced            int     `json:"produced"`
	Consumed            int     `json:"consumed"`
	Missing             int     `json:"missing"`
	Remaining           int     `json:"remaining"`
	AvgDeviationsPerCase float64 `json:"avg_deviations_per_case"`

	Cases               []CaseFitness  `json:"cases"`
	Deviations          []Deviation    `json:"deviations"`
	DeviationsByType    map[string]int `json:"deviations_by_type"`
	DeviationsByActivity map[string]int `json:"deviations_by_activity"`
}

// Summary returns the flat scalar digest of the result.
func (r *ConformanceResult) Summary() map[string]any {
	return map[string]any{
		"model_id":         r.ModelID,
		"total_cases":      r.TotalCases,
		"fully_conformant": r.FullyConformant,
		"conformance_rate": r.ConformanceRate,
		"fitness":          r.Fitness,
		"precision":        r.Precision,
		"deviation_count":  len(r.Deviations),
	}
}

// TransitionStats describes the waiting-time distribution of one transition.
type TransitionStats struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Count       int     `json:"count"`
	MeanHours   float64 `json:"mean_hours"`
	MedianHours float64 `json:"median_hours"`
	P95Hours    float64 `json:"p95_hours"`
	SLATarget   float64 `json:"sla_target_hours,omitempty"`
	SLABreaches int     `json:"sla_breaches,omitempty"`
}

// Bottleneck is one transition ranked by median latency × frequency.
type Bottleneck struct {
	Transition string  `json:"transition"`
	Score      float64 `json:"score"`
}

// PerformanceResult is the immutable output of performance analysis.
type PerformanceResult struct {
	Transitions     []TransitionStats `json:"transitions"`
	Bottlenecks     []Bottleneck      `json:"bottlenecks"`
	CycleTimeP50    float64           `json:"cycle_time_p50_hours"`
	CycleTimeP90    float64           `json:"cycle_time_p90_hours"`
	CycleTimeP95    float64           `json:"cycle_time_p95_hours"`
	CycleTimeMean   float64           `json:"cycle_time_mean_hours"`
	TimedCaseCount  int               `json:"timed_case_count"`
}

// Summary returns the flat scalar digest of the result.
func (r *PerformanceResult) Summary() map[string]any {
	return map[string]any{
		"transition_count": len(r.Transitions),
		"bottleneck_count": len(r.Bottlenecks),
		"cycle_time_p50":   r.CycleTimeP50,
		"cycle_time_p95":   r.CycleTimeP95,
		"timed_cases":      r.TimedCaseCount,
	}
}

// Variant is one distinct activity sequence with its frequency.
type Variant struct {
	Sequence []string `json:"sequence"`
	Count    int      `json:"count"`
	Percent  float64  `json:"percent"`
	CaseIDs  []string `json:"case_ids"`
	Rework   bool     `json:"rework"`
}

// VariantAnalysisResult is the immutable output of variant analysis.
type VariantAnalysisResult struct {
	Variants     []Variant `json:"variants"`
	VariantCount int       `json:"variant_count"`
	HappyPath    []string  `json:"happy_path,omitempty"`
	HappyPathPct float64   `json:"happy_path_pct"`
}

// Summary returns the flat scalar digest of the result.
func (r *VariantAnalysisResult) Summary() map[string]any {
	return map[string]any{
		"variant_count":  r.VariantCount,
		"happy_path_pct": r.HappyPathPct,
	}
}

// ResourceStats summarises one resource's workload.
type ResourceStats struct {
	Resource        string   `json:"resource"`
	EventCount      int      `json:"event_count"`
	PrimaryActivity string   `json:"primary_activity,omitempty"`
	Activities      []string `json:"activities"`
	Centrality      float64  `json:"centrality"`
}

// SoDRule declares two activities that must not share a resource in a case.
type SoDRule struct {
	ActivityA string `json:"activity_a"`
	ActivityB string `json:"activity_b"`
}

// SoDViolation records a segregation-of-duties breach.
type SoDViolation struct {
	Rule     SoDRule `json:"rule"`
	CaseID   string  `json:"case_id"`
	Resource string  `json:"resource"`
}

// SocialNetworkResult is the immutable output of social-network analysis.
type SocialNetworkResult struct {
	Handover        map[string]map[string]int `json:"handover"`
	WorkingTogether map[string]map[string]int `json:"working_together"`
	ActivityMatrix  map[string]map[string]int `json:"activity_matrix"`
	Resources       []ResourceStats           `json:"resources"`
	UtilizationCV   float64                   `json:"utilization_cv"`
	Balanced        bool                      `json:"balanced"`
	SoDViolations   []SoDViolation            `json:"sod_violations"`
}

// Summary returns the flat scalar digest of the result.
func (r *SocialNetworkResult) Summary() map[string]any {
	return map[string]any{
		"resource_count": len(r.Resources),
		"balanced":       r.Balanced,
		"sod_violations": len(r.SoDViolations),
	}
}

// ToSerializable converts a result struct into a nested record via its JSON
// shape, normalising iteration order through the struct's sorted emission.
func ToSerializable(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize result: %w", err)
	}

	var record map[string]any

	err = json.Unmarshal(data, &record)
	if err != nil {
		return nil, fmt.Errorf("serialize result: %w", err)
	}

	return record, nil
}

// FromSerializable restores a result struct from its nested-record form.
func FromSerializable[T any](record map[string]any) (*T, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("deserialize result: %w", err)
	}

	result := new(T)

	err = json.Unmarshal(data, result)
	if err != nil {
		return nil, fmt.Errorf("deserialize result: %w", err)
	}

	return result, nil
}
