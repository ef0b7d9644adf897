package report_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/coverage"
	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/gap"
	"github.com/ib823/sapforensics/internal/mining"
	"github.com/ib823/sapforensics/internal/orchestrator"
	"github.com/ib823/sapforensics/internal/refmodel"
	"github.com/ib823/sapforensics/internal/report"
)

var testEpoch = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var o2cActivities = []string{
	"Create Sales Order", "Credit Check", "Create Delivery", "Pick", "Pack",
	"Goods Issue", "Create Invoice", "Send Invoice", "Payment Received", "Clear Invoice",
}

// staffedO2CLog builds two perfect order-to-cash cases worked by ALICE and
// one credit-check-skipping case worked by BOB.
func staffedO2CLog(t *testing.T) *eventlog.EventLog {
	t.Helper()

	log := eventlog.NewLog("o2c")

	addCase := func(caseID, resource string, activities []string) {
		for i, activity := range activities {
			err := log.AddEvent(caseID, eventlog.Event{
				Activity:  activity,
				Timestamp: testEpoch.Add(time.Duration(i) * time.Hour),
				Resource:  resource,
			})
			require.NoError(t, err)
		}
	}

	skipping := append([]string{"Create Sales Order"}, o2cActivities[2:]...)

	addCase("C1", "ALICE", o2cActivities)
	addCase("C2", "ALICE", o2cActivities)
	addCase("C3", "BOB", skipping)

	log.Sort()

	return log
}

func fixtureRun(t *testing.T) *orchestrator.RunResult {
	t.Helper()

	engine := mining.NewEngine(quietLogger(), mining.WithDependencyThreshold(0.5))

	analysis, err := engine.AnalyzeLog(refmodel.ProcessO2C, staffedO2CLog(t),
		eventlog.BuildStats{}, refmodel.Get(refmodel.ProcessO2C), nil)
	require.NoError(t, err)

	tracker := coverage.NewTracker()
	tracker.Track("finance", "BKPF", coverage.StatusExtracted, coverage.Detail{RowCount: 1200})
	tracker.Track("finance", "BSEG", coverage.StatusPartial, coverage.Detail{RowCount: 50000})
	tracker.Track("sales", "VBAK", coverage.StatusFailed, coverage.Detail{Error: "NOT_AUTHORIZED"})

	results := map[string]extract.Result{
		"finance": {ExtractorID: "finance", Payload: map[string]any{
			"documents": []extract.Row{{"BELNR": "01"}, {"BELNR": "02"}},
			"source":    "offline",
		}},
		"sales": {ExtractorID: "sales", Err: "rfc denied"},
		"custom_code": {ExtractorID: "custom_code", Payload: map[string]any{
			"custom_objects": []extract.Row{{"OBJ": "ZFI1"}, {"OBJ": "ZSD1"}, {"OBJ": "ZMM1"}},
		}},
		"configuration": {ExtractorID: "configuration", Payload: map[string]any{
			"company_codes":   []extract.Row{{"BUKRS": "1000"}, {"BUKRS": "2000"}},
			"fiscal_variants": []extract.Row{{"PERIV": "K4"}},
			"source":          "offline",
		}},
		"interfaces": {ExtractorID: "interfaces", Payload: map[string]any{
			"destinations": []extract.Row{
				{"RFCDEST": "ZB_EDI"}, {"RFCDEST": "ZA_BANK"}, {"RFCDEST": ""},
			},
		}},
		extract.ResultChangeDocuments: {ExtractorID: extract.ResultChangeDocuments, Payload: map[string]any{
			"headers": []extract.Row{{"OBJECTID": "C1"}, {"OBJECTID": "C2"}},
		}},
		extract.ResultUsageStatistics: {ExtractorID: extract.ResultUsageStatistics, Payload: map[string]any{
			"workload_records": []extract.Row{{"TCODE": "VA01"}},
		}},
		extract.ResultBatchJobs: {ExtractorID: extract.ResultBatchJobs, Payload: map[string]any{
			"jobs": []extract.Row{{"JOBNAME": "ZBILLING"}},
		}},
		extract.ResultWorkflows: {ExtractorID: extract.ResultWorkflows, Payload: map[string]any{
			"work_items": []extract.Row{{"WI_ID": "1"}},
		}},
	}

	analysisGaps := &gap.Analysis{
		Gaps: []gap.Gap{
			{
				Category:    gap.CategoryTemporal,
				Severity:    gap.SeverityLow,
				Description: "change documents cover the retention window only",
			},
			{
				Category:    gap.CategoryAuthorization,
				Severity:    gap.SeverityHigh,
				Description: "line items denied by authorization checks",
				ExtractorID: "finance",
				Table:       "BSEG",
			},
			{
				Category:    gap.CategoryProcess,
				Severity:    gap.SeverityMedium,
				Description: "no workflow evidence for approvals",
			},
		},
		ByCategory: map[gap.Category]int{
			gap.CategoryTemporal:      1,
			gap.CategoryAuthorization: 1,
			gap.CategoryProcess:       1,
		},
		MissingCritical:   []string{"LFA1", "MARA"},
		AuthorizationGaps: 1,
	}

	confidence := &gap.Confidence{
		Overall: 72.5,
		Grade:   "C",
		Categories: []gap.CategoryScore{
			{Category: "config", Weight: 0.25, Base: 80, Score: 75},
			{Category: "transaction", Weight: 0.10, Base: 67, Score: 62},
		},
	}

	return &orchestrator.RunResult{
		RunID:      "RUN-0001",
		Mode:       extract.ModeOffline,
		StartedAt:  testEpoch,
		FinishedAt: testEpoch.Add(2 * time.Minute),
		Results:    results,
		Coverage:   tracker.SystemReport(),
		Analyses:   map[string]*mining.ProcessAnalysis{refmodel.ProcessO2C: analysis},
		Interpretations: []orchestrator.Finding{
			{Module: "FI", Rule: "company_codes", Description: "2 company codes configured"},
			{Module: "SD", Rule: "sales_orgs", Description: "1 sales organization configured"},
		},
		GapAnalysis: analysisGaps,
		Confidence:  confidence,
	}
}

func fixtureDescriptors() []extract.Descriptor {
	return []extract.Descriptor{
		{ID: "finance", Name: "Financial Documents", Module: "FI", Category: "transaction"},
		{ID: "sales", Name: "Sales Documents", Module: "SD", Category: "transaction"},
		{ID: "custom_code", Name: "Custom Code", Module: "BASIS", Category: "code"},
	}
}

func fixtureReport(t *testing.T) *report.ForensicReport {
	t.Helper()

	return report.New(fixtureRun(t), fixtureDescriptors())
}

func TestModulesSortedDistinct(t *testing.T) {
	t.Parallel()

	rpt := fixtureReport(t)

	assert.Equal(t, []string{"BASIS", "FI", "SD"}, rpt.Modules())
}

func TestToModuleReport(t *testing.T) {
	t.Parallel()

	rpt := fixtureReport(t)

	view, err := rpt.ToModuleReport("FI")
	require.NoError(t, err)

	assert.Equal(t, "FI", view.Module)
	require.Len(t, view.Extractors, 1)

	finance := view.Extractors[0]
	assert.Equal(t, "finance", finance.ID)
	assert.Equal(t, "Financial Documents", finance.Name)
	assert.Empty(t, finance.Error)
	assert.Equal(t, map[string]int{"documents": 2}, finance.Rows)

	// Per-extractor coverage: BKPF extracted plus BSEG partial.
	assert.Equal(t, 2, finance.Coverage.Total)
	assert.Equal(t, 1, finance.Coverage.Extracted)
	assert.Equal(t, 1, finance.Coverage.Partial)
	assert.Equal(t, 100, finance.Coverage.CoveragePct)

	require.Len(t, view.Findings, 1)
	assert.Equal(t, "company_codes", view.Findings[0].Rule)

	require.Len(t, view.Gaps, 1)
	assert.Equal(t, "BSEG", view.Gaps[0].Table)
}

func TestToModuleReportFailedExtractor(t *testing.T) {
	t.Parallel()

	rpt := fixtureReport(t)

	view, err := rpt.ToModuleReport("SD")
	require.NoError(t, err)

	require.Len(t, view.Extractors, 1)
	assert.Equal(t, "rfc denied", view.Extractors[0].Error)
	assert.Nil(t, view.Extractors[0].Rows)
	assert.Empty(t, view.Gaps)
}

func TestToModuleReportUnknownModule(t *testing.T) {
	t.Parallel()

	rpt := fixtureReport(t)

	_, err := rpt.ToModuleReport("HR")

	require.ErrorIs(t, err, report.ErrUnknownModule)
	assert.ErrorContains(t, err, "HR")
}

func TestToDependencyGraph(t *testing.T) {
	t.Parallel()

	graph := fixtureReport(t).ToDependencyGraph()

	require.Len(t, graph.Processes, 1)
	process := graph.Processes[0]

	assert.Equal(t, refmodel.ProcessO2C, process.ProcessID)
	assert.ElementsMatch(t, o2cActivities, process.Nodes)
	assert.Equal(t, []string{"Create Sales Order"}, process.Starts)
	assert.Equal(t, []string{"Clear Invoice"}, process.Ends)

	// The credit-check-skipping case appears once against two conforming
	// cases, so its shortcut edge falls below the dependency cut.
	assert.Len(t, process.Edges, 9)
}

func TestToGapReport(t *testing.T) {
	t.Parallel()

	rpt := fixtureReport(t)
	view := rpt.ToGapReport()

	assert.Equal(t, rpt.Run.Coverage, view.Coverage)
	assert.Same(t, rpt.Run.GapAnalysis, view.Analysis)
	assert.Same(t, rpt.Run.Confidence, view.Confidence)
}

func TestBuildCatalog(t *testing.T) {
	t.Parallel()

	catalog := fixtureReport(t).Catalog

	require.Len(t, catalog.Entries, 1)
	assert.Nil(t, catalog.Entry("p2p"))

	entry := catalog.Entry("o2c")
	require.NotNil(t, entry)

	assert.Equal(t, "Order to Cash", entry.Name)
	assert.Equal(t, "sales", entry.Category)
	assert.Equal(t, 3, entry.CustomCode)
	assert.Equal(t, []string{"ZA_BANK", "ZB_EDI"}, entry.Interfaces)
	assert.Equal(t, map[string]int{"company_codes": 2, "fiscal_variants": 1}, entry.Configuration)

	assert.Equal(t, 2, entry.Evidence.ChangeDocuments)
	assert.Equal(t, 1, entry.Evidence.UsageStatistics)
	assert.Equal(t, 1, entry.Evidence.BatchJobs)
	assert.Equal(t, 1, entry.Evidence.Workflows)

	require.Len(t, entry.Gaps, 1)
	assert.Equal(t, gap.CategoryProcess, entry.Gaps[0].Category)

	require.Len(t, entry.Variants, 2)
	first := entry.Variants[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, first.Volume)
	assert.Equal(t, o2cActivities, first.Steps)
	assert.Equal(t, "Create Sales Order to Clear Invoice in 10 steps", first.Description)
	assert.Equal(t, []string{"ALICE", "BOB"}, first.Users)

	assert.Equal(t, 1, entry.Variants[1].Volume)
}

func TestLoadRoundTrip(t *testing.T) {
	t.Parallel()

	rpt := fixtureReport(t)

	serializable, err := rpt.ToSerializable()
	require.NoError(t, err)

	data, err := json.Marshal(serializable)
	require.NoError(t, err)

	loaded, err := report.Load(data, fixtureDescriptors())
	require.NoError(t, err)

	assert.Equal(t, rpt.Run.RunID, loaded.Run.RunID)
	assert.Equal(t, rpt.Run.Coverage.CoveragePct, loaded.Run.Coverage.CoveragePct)
	assert.Equal(t, rpt.Run.Coverage.ExtractorCount, loaded.Run.Coverage.ExtractorCount)
	assert.Contains(t, loaded.Run.Coverage.Tables, "finance:BKPF")
	require.NotNil(t, loaded.Catalog)
	assert.Equal(t, rpt.Catalog.Entries, loaded.Catalog.Entries)

	// Payload rows survive the type erasure of a JSON reload.
	view, err := loaded.ToModuleReport("FI")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"documents": 2}, view.Extractors[0].Rows)

	// The discovered model is not serialised; nodes come from the edges.
	graph := loaded.ToDependencyGraph()
	require.Len(t, graph.Processes, 1)
	assert.ElementsMatch(t, o2cActivities, graph.Processes[0].Nodes)
	assert.Empty(t, graph.Processes[0].Starts)
	assert.Len(t, graph.Processes[0].Edges, 9)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := report.Load([]byte("{not json"), nil)

	require.Error(t, err)
	assert.ErrorContains(t, err, "decode report")
}

func TestToMarkdown(t *testing.T) {
	t.Parallel()

	markdown := fixtureReport(t).ToMarkdown()

	assert.Contains(t, markdown, "# Forensic Reconstruction Report")
	assert.Contains(t, markdown, "RUN-0001")
	assert.Contains(t, markdown, "## Extraction Coverage")
	assert.Contains(t, markdown, "## Reconstruction Confidence")
	assert.Contains(t, markdown, "grade C")
	assert.Contains(t, markdown, "## Order to Cash")
	assert.Contains(t, markdown, "### Variants")
	assert.Contains(t, markdown, "Create Sales Order → Credit Check")
	assert.Contains(t, markdown, "## Evidence Gaps")
	assert.Contains(t, markdown, "Missing critical tables: LFA1, MARA.")
	assert.NotContains(t, markdown, "cancelled")
}

func TestToExecutiveSummary(t *testing.T) {
	t.Parallel()

	summary := fixtureReport(t).ToExecutiveSummary()

	assert.Contains(t, summary, "# Executive Summary")
	assert.Contains(t, summary, "(67% coverage) across 2 extractors")
	assert.Contains(t, summary, "**72.5 / 100 (grade C)**")
	assert.Contains(t, summary, "1 business processes reconstructed")
	assert.Contains(t, summary, "- **Order to Cash** (sales): 2 variants, 3 cases, 29 events")

	// Gaps are listed most severe first.
	high := strings.Index(summary, "line items denied")
	medium := strings.Index(summary, "no workflow evidence")
	low := strings.Index(summary, "retention window")

	require.Positive(t, high)
	assert.Less(t, high, medium)
	assert.Less(t, medium, low)
}

func TestRenderTerminal(t *testing.T) {
	restore := color.NoColor
	color.NoColor = true

	t.Cleanup(func() { color.NoColor = restore })

	var buf bytes.Buffer

	fixtureReport(t).RenderTerminal(&buf)

	out := buf.String()
	assert.Contains(t, out, "run RUN-0001 (offline)")
	assert.Contains(t, out, "Coverage: 2/3 tables (67%) across 2 extractors")
	assert.Contains(t, out, "Confidence: 72.5 / 100")
	assert.Contains(t, out, "Order to Cash")
	assert.Contains(t, out, "Gaps (3):")
	assert.Contains(t, out, "[HIGH] line items denied by authorization checks")
	assert.NotContains(t, out, "cancelled")
}

func TestRenderProcessMap(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := fixtureReport(t).RenderProcessMap(&buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Process Map")
	assert.Contains(t, html, "o2c")
	assert.Contains(t, html, "Create Sales Order")
}
