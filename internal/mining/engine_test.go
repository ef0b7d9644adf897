package mining_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/mining"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineAnalyzeLog(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "engine", map[string][]string{
		"C1": {"A", "B", "C", "D", "E"},
		"C2": {"A", "B", "C", "D", "E"},
		"C3": {"A", "C", "D", "E"},
	})

	engine := mining.NewEngine(quietLogger())

	analysis, err := engine.AnalyzeLog("o2c", log, eventlog.BuildStats{}, linearModel(), nil)
	require.NoError(t, err)

	assert.Equal(t, "o2c", analysis.ProcessID)
	assert.Equal(t, 3, analysis.CaseCount)
	assert.Equal(t, 14, analysis.EventCount)
	require.NotNil(t, analysis.Discovery)
	require.NotNil(t, analysis.Conformance)
	require.NotNil(t, analysis.Performance)
	require.NotNil(t, analysis.Variants)
	require.NotNil(t, analysis.Social)
	require.NotNil(t, analysis.KPIs)

	assert.Equal(t, 2, analysis.Conformance.FullyConformant)

	summary := analysis.Summary()
	assert.Equal(t, 2, summary["variant_count"])
}

func TestEngineAnalyzeLogNoModel(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "nomodel", map[string][]string{"C1": {"A", "B"}})

	engine := mining.NewEngine(nil)

	analysis, err := engine.AnalyzeLog("custom", log, eventlog.BuildStats{}, nil, nil)
	require.NoError(t, err)

	assert.Nil(t, analysis.Conformance)
	require.NotNil(t, analysis.Discovery)

	_, ok := analysis.KPIs.Get(mining.CategoryConformance, "fitness")
	assert.False(t, ok)
}

func TestEngineDependencyThresholdOption(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "threshold", map[string][]string{"C1": {"A", "B"}})

	engine := mining.NewEngine(quietLogger(), mining.WithDependencyThreshold(0.4))

	analysis, err := engine.AnalyzeLog("custom", log, eventlog.BuildStats{}, nil, nil)
	require.NoError(t, err)

	assert.True(t, analysis.Discovery.Model.HasEdge("A", "B"))
}
