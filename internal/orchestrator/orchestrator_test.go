package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/orchestrator"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func offlineContext() *extract.Context {
	return extract.NewContext(extract.ModeOffline, nil, nil, quietLogger())
}

// fakeExtractor is a registry entry whose behaviour the test controls.
type fakeExtractor struct {
	id      string
	module  string
	rfcOnly bool
	run     func(ctx context.Context) (map[string]any, error)
}

func (f *fakeExtractor) Descriptor() extract.Descriptor {
	return extract.Descriptor{ID: f.id, Name: f.id, Module: f.module, Category: "transaction"}
}

func (f *fakeExtractor) ExpectedTables() []extract.TableExpectation {
	return nil
}

func (f *fakeExtractor) RFCOnly() bool {
	return f.rfcOnly
}

func (f *fakeExtractor) Extract(ctx context.Context, _ *extract.Session) (map[string]any, error) {
	if f.run == nil {
		return map[string]any{"id": f.id}, nil
	}

	return f.run(ctx)
}

func register(t *testing.T, registry *extract.Registry, ex *fakeExtractor) {
	t.Helper()
	require.NoError(t, registry.Register(func() extract.Extractor { return ex }))
}

// quietOptions turns off the phases these tests do not exercise.
func quietOptions(opts ...orchestrator.Option) []orchestrator.Option {
	return append([]orchestrator.Option{
		orchestrator.WithProcesses([]string{}),
		orchestrator.WithInterpretationRules([]orchestrator.InterpretationRule{}),
	}, opts...)
}

func TestRunBoundsConcurrency(t *testing.T) {
	t.Parallel()

	const (
		extractorCount = 20
		maxWorkers     = 4
	)

	var inFlight, peak atomic.Int64

	registry := extract.NewRegistry()

	for i := 0; i < extractorCount; i++ {
		register(t, registry, &fakeExtractor{
			id:     fmt.Sprintf("mod%02d", i),
			module: "FI",
			run: func(context.Context) (map[string]any, error) {
				current := inFlight.Add(1)
				defer inFlight.Add(-1)

				for {
					observed := peak.Load()
					if current <= observed || peak.CompareAndSwap(observed, current) {
						break
					}
				}

				time.Sleep(5 * time.Millisecond)

				return map[string]any{}, nil
			},
		})
	}

	o := orchestrator.New(registry, offlineContext(),
		quietOptions(orchestrator.WithConcurrency(maxWorkers))...)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Results, extractorCount)
	assert.LessOrEqual(t, peak.Load(), int64(maxWorkers))
	assert.False(t, result.Cancelled)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestRunToleratesExtractorFailure(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "healthy", module: "FI"})
	register(t, registry, &fakeExtractor{
		id:     "broken",
		module: "FI",
		run: func(context.Context) (map[string]any, error) {
			return nil, errors.New("table read failed")
		},
	})
	register(t, registry, &fakeExtractor{
		id:     "panicky",
		module: "FI",
		run: func(context.Context) (map[string]any, error) {
			panic("boom")
		},
	})

	var failed []string

	o := orchestrator.New(registry, offlineContext(), quietOptions()...)
	o.Observers().OnError(func(extractorID string, _ error) {
		failed = append(failed, extractorID)
	})

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Results, 3)
	assert.False(t, result.Results["healthy"].Failed())
	assert.True(t, result.Results["broken"].Failed())
	assert.True(t, result.Results["panicky"].Failed())
	assert.ElementsMatch(t, []string{"broken", "panicky"}, failed)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "never_runs", module: "FI"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := orchestrator.New(registry, offlineContext(), quietOptions()...)

	result, err := o.Run(ctx)

	require.ErrorIs(t, err, orchestrator.ErrCancelled)
	require.NotNil(t, result)
	assert.True(t, result.Cancelled)
	assert.Empty(t, result.Results)
}

func TestRunServesCheckpointedResults(t *testing.T) {
	t.Parallel()

	var executions atomic.Int64

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{
		id:     "cached",
		module: "FI",
		run: func(context.Context) (map[string]any, error) {
			executions.Add(1)

			return map[string]any{"fresh": true}, nil
		},
	})

	store := orchestrator.NewMemoryStore()
	cached := extract.Result{ExtractorID: "cached", Payload: map[string]any{"fresh": false}}
	require.NoError(t, store.Save("cached", orchestrator.SlotResult, cached))

	o := orchestrator.New(registry, offlineContext(),
		quietOptions(orchestrator.WithCheckpoint(store))...)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, executions.Load())
	assert.Equal(t, map[string]any{"fresh": false}, result.Results["cached"].Payload)
}

func TestRunSavesCheckpoints(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "saved", module: "FI"})
	register(t, registry, &fakeExtractor{
		id:     "failing",
		module: "FI",
		run: func(context.Context) (map[string]any, error) {
			return nil, errors.New("nope")
		},
	})

	store := orchestrator.NewMemoryStore()

	o := orchestrator.New(registry, offlineContext(),
		quietOptions(orchestrator.WithCheckpoint(store))...)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	progress := store.Progress()
	assert.True(t, progress["saved"].Complete)
	// Failures are never checkpointed so a resume retries them.
	assert.False(t, progress["failing"].Complete)
}

func TestRunSkipsRFCOnlyOffline(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "table_reader", module: "BASIS"})
	register(t, registry, &fakeExtractor{id: "rfc_probe", module: "BASIS", rfcOnly: true})

	o := orchestrator.New(registry, offlineContext(), quietOptions()...)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, result.Results, "table_reader")
	assert.NotContains(t, result.Results, "rfc_probe")

	require.NotNil(t, result.GapAnalysis)
	assert.Contains(t, result.GapAnalysis.Flags, "NO_RFC")
}

func TestRunModuleFilter(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "finance", module: "FI"})
	register(t, registry, &fakeExtractor{id: "sales", module: "SD"})

	o := orchestrator.New(registry, offlineContext(),
		quietOptions(orchestrator.WithModule("FI"))...)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, result.Results, "finance")
	assert.NotContains(t, result.Results, "sales")
}

func TestRunEmitsProgressAndSurvivesPanickyObserver(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "steady", module: "FI"})

	var phases []orchestrator.Phase

	var completions int

	o := orchestrator.New(registry, offlineContext(), quietOptions()...)
	o.Observers().OnProgress(func(p orchestrator.Progress) {
		phases = append(phases, p.Phase)
	})
	o.Observers().OnProgress(func(orchestrator.Progress) {
		panic("misbehaving observer")
	})
	o.Observers().OnExtractorComplete(func(string, extract.Result) {
		completions++
	})

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Contains(t, phases, orchestrator.PhaseModules)
	assert.Contains(t, phases, orchestrator.PhaseGapAnalysis)
	assert.Contains(t, phases, orchestrator.PhaseReport)
	assert.Equal(t, 1, completions)
}

// customMappingJSON builds a minimal transaction-class mapping config over
// the ZHDR table, parameterised by process id.
func customMappingJSON(processID string) string {
	return fmt.Sprintf(`{
		"process_id": %q,
		"name": "Custom Approvals",
		"case_id": {"primary_table": "ZHDR", "field": "DOCNR"},
		"tables": {
			"ZHDR": {
				"class": "transaction",
				"tcode_field": "TCODE",
				"tcode_activities": {"Z001": "Create Custom Document"},
				"activities": [{"activity": "", "timestamp_field": "ERDAT"}]
			}
		},
		"kpis": [{"name": "custom_docs", "unit": "count", "activity": "Create Custom Document"}]
	}`, processID)
}

func zhdrEvidence() map[string][]eventlog.Row {
	return map[string][]eventlog.Row{
		"ZHDR": {
			{"DOCNR": "D1", "TCODE": "Z001", "ERDAT": "20240301"},
			{"DOCNR": "D2", "TCODE": "Z001", "ERDAT": "20240302"},
		},
	}
}

func TestRunMinesCustomMapping(t *testing.T) {
	t.Parallel()

	mapping, err := eventlog.ParseMapping([]byte(customMappingJSON("zcustom")))
	require.NoError(t, err)

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "steady_src", module: "FI"})

	o := orchestrator.New(registry, offlineContext(),
		orchestrator.WithInterpretationRules([]orchestrator.InterpretationRule{}),
		orchestrator.WithMappings(mapping),
		orchestrator.WithEvidence(zhdrEvidence()),
	)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	// A new custom process id extends the default selection.
	analysis := result.Analyses["zcustom"]
	require.NotNil(t, analysis)
	assert.Equal(t, 2, analysis.CaseCount)
	assert.Equal(t, 2, analysis.EventCount)
	assert.Contains(t, result.Analyses, "o2c")
}

func TestRunCustomMappingOverridesBuiltIn(t *testing.T) {
	t.Parallel()

	mapping, err := eventlog.ParseMapping([]byte(customMappingJSON("o2c")))
	require.NoError(t, err)

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "quiet_src", module: "FI"})

	o := orchestrator.New(registry, offlineContext(),
		orchestrator.WithProcesses([]string{"o2c"}),
		orchestrator.WithInterpretationRules([]orchestrator.InterpretationRule{}),
		orchestrator.WithMappings(mapping),
		orchestrator.WithEvidence(zhdrEvidence()),
	)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	// The built-in o2c mapping knows nothing about ZHDR; the override does.
	analysis := result.Analyses["o2c"]
	require.NotNil(t, analysis)
	assert.Equal(t, 2, analysis.CaseCount)
	assert.Equal(t, 2, analysis.EventCount)
}

func TestRunConfidencePresent(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	register(t, registry, &fakeExtractor{id: "quiet", module: "FI"})

	o := orchestrator.New(registry, offlineContext(), quietOptions()...)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, result.Confidence)
	assert.Equal(t, "F", result.Confidence.Grade)
	require.NotNil(t, result.GapAnalysis)
	assert.NotEmpty(t, result.GapAnalysis.MissingCritical)
}
