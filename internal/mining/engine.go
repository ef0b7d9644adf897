package mining

import (
	"log/slog"
	"time"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/refmodel"
)

// ProcessAnalysis bundles every analysis output for one business process.
type ProcessAnalysis struct {
	ProcessID string `json:"process_id"`

	BuildStats  eventlog.BuildStats    `json:"build_stats"`
	Discovery   *DiscoveryResult       `json:"discovery"`
	Conformance *ConformanceResult     `json:"conformance,omitempty"`
	Performance *PerformanceResult     `json:"performance"`
	Variants    *VariantAnalysisResult `json:"variants"`
	Social      *SocialNetworkResult   `json:"social"`
	KPIs        *KPIReport             `json:"kpis"`

	CaseCount  int `json:"case_count"`
	EventCount int `json:"event_count"`
}

// Summary returns the flat scalar digest of the analysis.
func (a *ProcessAnalysis) Summary() map[string]any {
	summary := map[string]any{
		"process_id":  a.ProcessID,
		"case_count":  a.CaseCount,
		"event_count": a.EventCount,
	}

	if a.Conformance != nil {
		summary["fitness"] = a.Conformance.Fitness
		summary["conformance_rate"] = a.Conformance.ConformanceRate
	}

	if a.Variants != nil {
		summary["variant_count"] = a.Variants.VariantCount
	}

	return summary
}

// Engine is the process-intelligence facade: it builds the event log for a
// process from tabular evidence and runs every analysis over it.
type Engine struct {
	location  *time.Location
	logger    *slog.Logger
	rules     []SoDRule
	threshold float64
}

// Option configures the engine.
type Option func(*Engine)

// WithLocation sets the time zone used when parsing evidence timestamps.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.location = loc
	}
}

// WithSoDRules overrides the default segregation-of-duties rules.
func WithSoDRules(rules []SoDRule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithDependencyThreshold overrides the heuristic-miner main-flow cut.
func WithDependencyThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// NewEngine creates an engine. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{logger: logger, threshold: DefaultDependencyThreshold}
	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Analyze builds the event log per the mapping and runs discovery,
// conformance (when a reference model is supplied), performance, variant,
// social-network, and KPI analyses.
func (e *Engine) Analyze(mapping *eventlog.ProcessMapping, tables map[string][]eventlog.Row, model *refmodel.Model) (*ProcessAnalysis, error) {
	builder := eventlog.NewBuilder(mapping, e.location, e.logger)

	log, buildStats, err := builder.Build(tables)
	if err != nil {
		return nil, err
	}

	return e.AnalyzeLog(mapping.ProcessID, log, buildStats, model, mapping.KPIs)
}

// AnalyzeLog runs every analysis over an already-built event log.
func (e *Engine) AnalyzeLog(processID string, log *eventlog.EventLog, buildStats eventlog.BuildStats, model *refmodel.Model, kpiDefs []eventlog.KPIDef) (*ProcessAnalysis, error) {
	analysis := &ProcessAnalysis{
		ProcessID:  processID,
		BuildStats: buildStats,
		CaseCount:  log.CaseCount(),
		EventCount: log.EventCount(),
	}

	miner := NewHeuristicMiner()
	miner.DependencyThreshold = e.threshold
	analysis.Discovery = miner.Mine(log)

	performance := NewPerformanceAnalyzer()
	performance.Model = model
	analysis.Performance = performance.Analyze(log)

	analysis.Variants = NewVariantAnalyzer().Analyze(log)

	social := NewSocialNetworkAnalyzer()
	social.Rules = e.rules
	analysis.Social = social.Analyze(log)

	if model != nil {
		checker, err := NewConformanceChecker(model)
		if err != nil {
			return nil, err
		}

		analysis.Conformance = checker.Check(log)
	}

	analysis.KPIs = NewKPIEngine().Compute(log, analysis.Conformance, kpiDefs)

	e.logger.Info("process analysis complete",
		"process", processID,
		"cases", analysis.CaseCount,
		"events", analysis.EventCount,
		"variants", analysis.Variants.VariantCount)

	return analysis, nil
}
