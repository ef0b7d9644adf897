// Package orchestrator runs the multi-phase forensic pipeline: system
// identification, dictionary load, parallel module extraction, process
// mining, configuration interpretation, and gap analysis. A single
// supervisor goroutine owns the results map; phase-3 workers are bounded by
// the configured concurrency.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ib823/sapforensics/internal/coverage"
	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/extract/extractors"
	"github.com/ib823/sapforensics/internal/gap"
	"github.com/ib823/sapforensics/internal/mining"
	"github.com/ib823/sapforensics/internal/observability"
	"github.com/ib823/sapforensics/internal/refmodel"
)

// ErrCancelled reports a run stopped by the caller's cancellation signal.
var ErrCancelled = errors.New("run cancelled")

// DefaultConcurrency bounds in-flight phase-3 extractors unless overridden.
const DefaultConcurrency = 5

// Phase identifies one pipeline stage.
type Phase string

// Pipeline phases, in execution order.
const (
	PhaseSystemInfo     Phase = "system_info"
	PhaseDataDictionary Phase = "data_dictionary"
	PhaseModules        Phase = "module_extractors"
	PhaseMining         Phase = "process_mining"
	PhaseInterpretation Phase = "interpretation"
	PhaseGapAnalysis    Phase = "gap_analysis"
	PhaseReport         Phase = "report_assembly"
)

// RunResult is the collated output of one pipeline run.
type RunResult struct {
	RunID      string       `json:"run_id"`
	Mode       extract.Mode `json:"mode"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Cancelled  bool         `json:"cancelled,omitempty"`

	Results  map[string]extract.Result `json:"results"`
	Coverage coverage.SystemReport     `json:"coverage"`

	Analyses        map[string]*mining.ProcessAnalysis `json:"analyses"`
	Interpretations []Finding                          `json:"interpretations,omitempty"`
	GapAnalysis     *gap.Analysis                      `json:"gap_analysis"`
	Confidence      *gap.Confidence                    `json:"confidence"`
}

// Orchestrator drives one extraction-and-analysis run.
type Orchestrator struct {
	registry  *extract.Registry
	ec        *extract.Context
	engine    *mining.Engine
	observers *Observers
	logger    *slog.Logger

	concurrency int
	module      string
	processes   []string
	rules       []InterpretationRule
	checkpoint  CheckpointStore
	evidence    map[string][]eventlog.Row
	mappings    map[string]*eventlog.ProcessMapping
	miningOpts  []mining.Option
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds the phase-3 worker pool. Values below 1 keep the
// default.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.concurrency = n
		}
	}
}

// WithModule restricts phase 3 to extractors of one module.
func WithModule(module string) Option {
	return func(o *Orchestrator) {
		o.module = module
	}
}

// WithProcesses selects the business processes mined in phase 4. The
// default mines every built-in process.
func WithProcesses(ids []string) Option {
	return func(o *Orchestrator) {
		o.processes = ids
	}
}

// WithCheckpoint installs a resume store. Completed extractors are served
// from the cache instead of re-running.
func WithCheckpoint(store CheckpointStore) Option {
	return func(o *Orchestrator) {
		o.checkpoint = store
	}
}

// WithInterpretationRules replaces the default configuration readings. An
// empty non-nil slice disables phase 5.
func WithInterpretationRules(rules []InterpretationRule) Option {
	return func(o *Orchestrator) {
		o.rules = rules
	}
}

// WithEvidence merges extra evidence tables into phase 4, keyed by table
// name. Used when flow or status tables come from outside the extractors.
func WithEvidence(tables map[string][]eventlog.Row) Option {
	return func(o *Orchestrator) {
		o.evidence = tables
	}
}

// WithMappings adds custom process mappings to phase 4. A custom mapping
// overrides the built-in with the same process id; new ids extend the
// default selection.
func WithMappings(mappings ...*eventlog.ProcessMapping) Option {
	return func(o *Orchestrator) {
		if o.mappings == nil {
			o.mappings = make(map[string]*eventlog.ProcessMapping, len(mappings))
		}

		for _, mapping := range mappings {
			o.mappings[mapping.ProcessID] = mapping
		}
	}
}

// WithMiningOptions forwards options to the phase-4 mining engine.
func WithMiningOptions(opts ...mining.Option) Option {
	return func(o *Orchestrator) {
		o.miningOpts = opts
	}
}

// New creates an orchestrator over a populated registry and run context.
func New(registry *extract.Registry, ec *extract.Context, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		ec:          ec,
		logger:      ec.Logger,
		concurrency: DefaultConcurrency,
		rules:       DefaultInterpretationRules,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.engine = mining.NewEngine(o.logger, o.miningOpts...)
	o.observers = newObservers(o.logger)

	return o
}

// Observers returns the callback registry for this orchestrator.
func (o *Orchestrator) Observers() *Observers {
	return o.observers
}

// Run executes the pipeline. An extractor failure never aborts the run; it
// is stored as an error result and reported through OnError. Cancellation
// stops dispatching new extractors and returns the partial result together
// with ErrCancelled.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		Mode:      o.ec.Mode,
		StartedAt: time.Now(),
		Results:   make(map[string]extract.Result),
		Analyses:  make(map[string]*mining.ProcessAnalysis),
	}

	o.logger.Info("run started", "run_id", result.RunID, "mode", string(result.Mode), "concurrency", o.concurrency)

	o.runSingle(ctx, PhaseSystemInfo, extractors.IDSystemInfo, result)
	o.runSingle(ctx, PhaseDataDictionary, extractors.IDDataDictionary, result)

	rfcOnlySkipped := o.runModules(ctx, result)

	o.runMining(ctx, result)

	if len(o.rules) > 0 {
		o.phase(ctx, PhaseInterpretation, func(context.Context) {
			result.Interpretations, _ = interpret(o.rules, result.Results)
		})
	}

	o.runGapAnalysis(ctx, result, rfcOnlySkipped)

	o.phase(ctx, PhaseReport, func(context.Context) {
		result.Coverage = o.ec.Coverage.SystemReport()
		result.FinishedAt = time.Now()
	})

	if ctx.Err() != nil {
		result.Cancelled = true

		return result, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}

	overall := 0.0
	if result.Confidence != nil {
		overall = result.Confidence.Overall
	}

	o.logger.Info("run finished",
		"run_id", result.RunID,
		"extractors", len(result.Results),
		"coverage_pct", result.Coverage.CoveragePct,
		"confidence", overall)

	return result, nil
}

// phase wraps a stage with a span, a duration metric, and a transition
// progress event.
func (o *Orchestrator) phase(ctx context.Context, phase Phase, run func(context.Context)) {
	spanCtx, span := observability.Tracer().Start(ctx, string(phase))
	defer span.End()

	started := time.Now()

	o.observers.emitProgress(Progress{Phase: phase, Timestamp: started})
	run(spanCtx)
	observability.RecordPhase(string(phase), time.Since(started))
}

// runSingle executes one named extractor sequentially (phases 1 and 2).
// An unregistered id is tolerated; the gap analyzer reports the hole.
func (o *Orchestrator) runSingle(ctx context.Context, phase Phase, id string, result *RunResult) {
	o.phase(ctx, phase, func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}

		ex, err := o.registry.New(id)
		if err != nil {
			o.logger.Warn("phase extractor not registered", "phase", string(phase), "extractor", id)

			return
		}

		o.execute(ctx, ex, result)
	})
}

// runModules runs every remaining extractor on a bounded worker pool.
// It returns the ids of RFC-only extractors skipped in offline mode.
func (o *Orchestrator) runModules(ctx context.Context, result *RunResult) []string {
	var rfcOnlySkipped []string

	o.phase(ctx, PhaseModules, func(ctx context.Context) {
		var pending []extract.Extractor

		completed := 0

		for _, desc := range o.registry.ByModule(o.module) {
			if desc.ID == extractors.IDSystemInfo || desc.ID == extractors.IDDataDictionary {
				continue
			}

			if cached, ok := o.loadCheckpoint(desc.ID); ok {
				result.Results[desc.ID] = cached
				observability.RecordExtractorRun(desc.ID, observability.OutcomeCached)

				completed++

				continue
			}

			ex, err := o.registry.New(desc.ID)
			if err != nil {
				continue
			}

			if o.ec.Mode == extract.ModeOffline && isRFCOnly(ex) {
				rfcOnlySkipped = append(rfcOnlySkipped, desc.ID)
				observability.RecordExtractorRun(desc.ID, observability.OutcomeSkipped)
				o.logger.Info("rfc-only extractor skipped offline", "extractor", desc.ID)

				continue
			}

			pending = append(pending, ex)
		}

		total := completed + len(pending)
		slots := make(chan struct{}, o.concurrency)
		// Buffered so a finishing worker never blocks; the slot channel
		// alone bounds in-flight extractors.
		done := make(chan extract.Result, len(pending))
		inFlight := 0

		for _, ex := range pending {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
			}

			if ctx.Err() != nil {
				break
			}

			inFlight++

			go func(ex extract.Extractor) {
				defer func() { <-slots }()

				done <- extract.Run(ctx, o.ec, ex)
			}(ex)
		}

		for ; inFlight > 0; inFlight-- {
			res := <-done
			completed++

			o.finish(res, result)
			o.observers.emitProgress(Progress{
				Phase:     PhaseModules,
				Completed: completed,
				Total:     total,
				Current:   res.ExtractorID,
				Timestamp: time.Now(),
			})
		}
	})

	return rfcOnlySkipped
}

// execute runs one extractor synchronously and records its outcome.
func (o *Orchestrator) execute(ctx context.Context, ex extract.Extractor, result *RunResult) {
	o.finish(extract.Run(ctx, o.ec, ex), result)
}

// finish stores a completed result, saves it to the checkpoint, updates
// metrics, and notifies observers. Runs on the supervisor goroutine only.
func (o *Orchestrator) finish(res extract.Result, result *RunResult) {
	result.Results[res.ExtractorID] = res

	if res.Failed() {
		observability.RecordExtractorRun(res.ExtractorID, observability.OutcomeError)
		o.logger.Error("extractor failed", "extractor", res.ExtractorID, "error", res.Err)
		o.observers.emitError(res.ExtractorID, errors.New(res.Err))
	} else {
		observability.RecordExtractorRun(res.ExtractorID, observability.OutcomeOK)
		o.saveCheckpoint(res)
	}

	o.observers.emitComplete(res.ExtractorID, res)
}

func (o *Orchestrator) loadCheckpoint(id string) (extract.Result, bool) {
	if o.checkpoint == nil {
		return extract.Result{}, false
	}

	if !o.checkpoint.Progress()[id].Complete {
		return extract.Result{}, false
	}

	return o.checkpoint.Load(id, SlotResult)
}

func (o *Orchestrator) saveCheckpoint(res extract.Result) {
	if o.checkpoint == nil {
		return
	}

	err := o.checkpoint.Save(res.ExtractorID, SlotResult, res)
	if err != nil {
		o.logger.Warn("checkpoint save failed", "extractor", res.ExtractorID, "error", err)
	}
}

// runMining analyses each selected business process over the change-document
// evidence gathered in phase 3.
func (o *Orchestrator) runMining(ctx context.Context, result *RunResult) {
	o.phase(ctx, PhaseMining, func(context.Context) {
		tables := o.collectEvidence(result.Results)

		processes := o.processes
		if processes == nil {
			processes = eventlog.DefaultMappingIDs()

			for _, id := range sortedMappingIDs(o.mappings) {
				if eventlog.DefaultMapping(id) == nil {
					processes = append(processes, id)
				}
			}
		}

		for _, processID := range processes {
			mapping := o.mappings[processID]
			if mapping == nil {
				mapping = eventlog.DefaultMapping(processID)
			}

			if mapping == nil {
				o.logger.Warn("unknown process id", "process", processID)

				continue
			}

			analysis, err := o.engine.Analyze(mapping, tables, refmodel.Get(processID))
			if err != nil {
				o.logger.Error("process analysis failed", "process", processID, "error", err)

				continue
			}

			result.Analyses[processID] = analysis
		}
	})
}

// collectEvidence maps extraction payloads onto the evidence table names the
// mapping configurations expect.
func (o *Orchestrator) collectEvidence(results map[string]extract.Result) map[string][]eventlog.Row {
	tables := make(map[string][]eventlog.Row)

	changeDocs := results[extract.ResultChangeDocuments]
	if rows := changeDocs.Rows("headers"); rows != nil {
		tables["CDHDR"] = rows
	}

	if rows := changeDocs.Rows("items"); rows != nil {
		tables["CDPOS"] = rows
	}

	for name, rows := range o.evidence {
		tables[name] = append(tables[name], rows...)
	}

	return tables
}

// runGapAnalysis runs the detectors and scores confidence.
func (o *Orchestrator) runGapAnalysis(ctx context.Context, result *RunResult, rfcOnlySkipped []string) {
	o.phase(ctx, PhaseGapAnalysis, func(context.Context) {
		descriptors := make(map[string]extract.Descriptor)
		categories := make(map[string]string)

		for _, desc := range o.registry.All() {
			descriptors[desc.ID] = desc
			categories[desc.ID] = desc.Category
		}

		analyzer := gap.NewAnalyzer(o.ec.Coverage, result.Results, descriptors)
		analyzer.SetRFCOnlySkipped(rfcOnlySkipped)

		if dict := o.ec.DataDictionary(); dict != nil {
			analyzer.SetKnownTables(dict.KnownTables())
		}

		_, interpreted := interpret(o.rules, result.Results)
		analyzer.SetInterpretedModules(interpreted)

		result.GapAnalysis = analyzer.Analyze()

		confidence, err := gap.NewScorer(o.ec.Coverage, categories).Score(result.GapAnalysis)
		if err != nil {
			o.logger.Error("confidence scoring failed", "error", err)

			return
		}

		result.Confidence = confidence
	})
}

func sortedMappingIDs(mappings map[string]*eventlog.ProcessMapping) []string {
	ids := make([]string, 0, len(mappings))
	for id := range mappings {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func isRFCOnly(ex extract.Extractor) bool {
	marker, ok := ex.(extract.RFCOnly)

	return ok && marker.RFCOnly()
}
