package gap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/coverage"
	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/gap"
)

// criticalBaseline marks every foundational table as extracted so tests can
// focus on a single detection at a time.
func criticalBaseline(tracker *coverage.Tracker) {
	tables := []string{
		"BKPF", "BSEG", "CDHDR", "CDPOS", "DD02L", "DD03L",
		"EKKO", "KNA1", "LFA1", "MARA", "T001", "TADIR", "USR02",
	}

	for _, table := range tables {
		tracker.Track("baseline", table, coverage.StatusExtracted, coverage.Detail{RowCount: 1})
	}
}

// healthyResults returns results for every foundational evidence source plus
// the interface extractor, so the process and interface detections stay quiet.
func healthyResults() map[string]extract.Result {
	return map[string]extract.Result{
		extract.ResultChangeDocuments: {ExtractorID: extract.ResultChangeDocuments},
		extract.ResultUsageStatistics: {ExtractorID: extract.ResultUsageStatistics},
		extract.ResultWorkflows:       {ExtractorID: extract.ResultWorkflows},
		"interfaces":                  {ExtractorID: "interfaces"},
	}
}

func TestAnalyzeMissingCriticalTables(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	tracker.Track("finance", "BKPF", coverage.StatusExtracted, coverage.Detail{RowCount: 100})

	analyzer := gap.NewAnalyzer(tracker, healthyResults(), nil)

	analysis := analyzer.Analyze()

	// All criticals except the one attempted.
	assert.Len(t, analysis.MissingCritical, 12)
	assert.NotContains(t, analysis.MissingCritical, "BKPF")
	assert.Contains(t, analysis.MissingCritical, "BSEG")
	assert.Positive(t, analysis.ByCategory[gap.CategoryExtraction])
}

func TestAnalyzeAuthorizationGap(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)
	tracker.Track("security", "USR02", coverage.StatusFailed, coverage.Detail{Error: "RFC error NOT_AUTHORIZED for table USR02"})
	tracker.Track("finance", "BSIS", coverage.StatusFailed, coverage.Detail{Error: "timeout"})

	analyzer := gap.NewAnalyzer(tracker, healthyResults(), nil)

	analysis := analyzer.Analyze()

	assert.Equal(t, 1, analysis.AuthorizationGaps)
	assert.Equal(t, 1, analysis.ByCategory[gap.CategoryAuthorization])
}

func TestAnalyzeVolumeGap(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)
	tracker.Track("finance", "BSEG", coverage.StatusPartial, coverage.Detail{RowCount: 50000})

	analyzer := gap.NewAnalyzer(tracker, healthyResults(), nil)

	analysis := analyzer.Analyze()

	assert.Equal(t, 1, analysis.VolumeGaps)
	require.Equal(t, 1, analysis.ByCategory[gap.CategoryDataVolume])
}

func TestAnalyzeUnattemptedDictionaryTables(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)

	analyzer := gap.NewAnalyzer(tracker, healthyResults(), nil)
	analyzer.SetKnownTables([]string{"BKPF", "VBAK", "VBAP", "ACDOCA", "MATDOC"})

	analysis := analyzer.Analyze()

	var found bool

	for _, g := range analysis.Gaps {
		if g.Category == gap.CategoryExtraction && g.Severity == gap.SeverityMedium {
			assert.Contains(t, g.Description, "4 of 5")

			found = true
		}
	}

	assert.True(t, found)
}

func TestAnalyzeSystemTypeFlags(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)

	analyzer := gap.NewAnalyzer(tracker, healthyResults(), nil)
	analyzer.SetKnownTables([]string{"BKPF"})
	analyzer.SetRFCOnlySkipped([]string{"usage_statistics", "workflows"})

	analysis := analyzer.Analyze()

	assert.Contains(t, analysis.Flags, "NO_RFC")
	assert.Contains(t, analysis.Flags, "NO_UNIVERSAL_JOURNAL")
	assert.Contains(t, analysis.Flags, "NO_MATERIAL_DOCUMENT_LEDGER")
	assert.Equal(t, 3, analysis.ByCategory[gap.CategorySystemType])
}

func TestAnalyzeGenerationMarkersPresent(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)

	analyzer := gap.NewAnalyzer(tracker, healthyResults(), nil)
	analyzer.SetKnownTables([]string{"ACDOCA", "MATDOC"})

	analysis := analyzer.Analyze()

	assert.NotContains(t, analysis.Flags, "NO_UNIVERSAL_JOURNAL")
	assert.NotContains(t, analysis.Flags, "NO_MATERIAL_DOCUMENT_LEDGER")
}

func TestAnalyzeFoundationalEvidenceAbsent(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)

	results := healthyResults()
	delete(results, extract.ResultChangeDocuments)
	results[extract.ResultWorkflows] = extract.Result{
		ExtractorID: extract.ResultWorkflows,
		Err:         "read failed",
	}

	analyzer := gap.NewAnalyzer(tracker, results, nil)

	analysis := analyzer.Analyze()

	assert.Equal(t, 2, analysis.ByCategory[gap.CategoryProcess])
}

func TestAnalyzeInterfaceGaps(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)

	results := healthyResults()
	results["interfaces"] = extract.Result{
		ExtractorID: "interfaces",
		Payload: map[string]any{
			"unreachable_destinations": []string{"PRD_CLNT100", "BW_CLNT200"},
		},
	}

	analyzer := gap.NewAnalyzer(tracker, results, nil)

	analysis := analyzer.Analyze()

	assert.Equal(t, 2, analysis.ByCategory[gap.CategoryInterface])
}

func TestAnalyzeInterfaceNotExamined(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)

	results := healthyResults()
	delete(results, "interfaces")

	analyzer := gap.NewAnalyzer(tracker, results, nil)

	analysis := analyzer.Analyze()

	assert.Equal(t, 1, analysis.ByCategory[gap.CategoryInterface])
}

func TestAnalyzeUninterpretedModules(t *testing.T) {
	t.Parallel()

	tracker := coverage.NewTracker()
	criticalBaseline(tracker)

	descriptors := map[string]extract.Descriptor{
		"finance":   {ID: "finance", Module: "FI"},
		"logistics": {ID: "logistics", Module: "MM"},
	}

	results := healthyResults()
	results["finance"] = extract.Result{ExtractorID: "finance"}
	results["logistics"] = extract.Result{ExtractorID: "logistics"}

	analyzer := gap.NewAnalyzer(tracker, results, descriptors)
	analyzer.SetInterpretedModules([]string{"FI"})

	analysis := analyzer.Analyze()

	require.Equal(t, 1, analysis.ByCategory[gap.CategoryInterpretation])

	for _, g := range analysis.Gaps {
		if g.Category == gap.CategoryInterpretation {
			assert.Contains(t, g.Description, "MM")
		}
	}
}

func TestAnalyzeTemporalAdvisoryAlwaysPresent(t *testing.T) {
	t.Parallel()

	analyzer := gap.NewAnalyzer(coverage.NewTracker(), nil, nil)

	analysis := analyzer.Analyze()

	assert.Equal(t, 1, analysis.ByCategory[gap.CategoryTemporal])
}

func TestReportBeforeAnalyze(t *testing.T) {
	t.Parallel()

	analyzer := gap.NewAnalyzer(coverage.NewTracker(), nil, nil)

	_, err := analyzer.Report()

	require.Error(t, err)
	require.ErrorIs(t, err, gap.ErrPreconditionNotMet)

	analyzer.Analyze()

	analysis, err := analyzer.Report()
	require.NoError(t, err)
	assert.NotNil(t, analysis)
}
