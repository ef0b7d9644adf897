package mining_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/mining"
	"github.com/ib823/sapforensics/internal/refmodel"
)

var testEpoch = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

// buildLog creates an event log with hourly timestamps per case.
func buildLog(t *testing.T, name string, cases map[string][]string) *eventlog.EventLog {
	t.Helper()

	log := eventlog.NewLog(name)

	for caseID, activities := range cases {
		for i, activity := range activities {
			err := log.AddEvent(caseID, eventlog.Event{
				Activity:  activity,
				Timestamp: testEpoch.Add(time.Duration(i) * time.Hour),
			})
			require.NoError(t, err)
		}
	}

	log.Sort()

	return log
}

// linearModel builds the chain A→B→C→D→E with A as start and E as end.
func linearModel() *refmodel.Model {
	m := refmodel.New("linear", "Linear")
	m.AddEdge("A", "B", refmodel.EdgeSequence)
	m.AddEdge("B", "C", refmodel.EdgeSequence)
	m.AddEdge("C", "D", refmodel.EdgeSequence)
	m.AddEdge("D", "E", refmodel.EdgeSequence)
	m.SetStart("A")
	m.SetEnd("E")

	return m
}

var perfectO2CTrace = []string{
	"Create Sales Order", "Credit Check", "Create Delivery", "Pick", "Pack",
	"Goods Issue", "Create Invoice", "Send Invoice", "Payment Received", "Clear Invoice",
}

func TestCheckPerfectO2CTrace(t *testing.T) {
	t.Parallel()

	model := refmodel.Get(refmodel.ProcessO2C)
	log := buildLog(t, "o2c", map[string][]string{"C1": perfectO2CTrace})

	checker, err := mining.NewConformanceChecker(model)
	require.NoError(t, err)

	result := checker.Check(log)

	assert.Equal(t, 1, result.TotalCases)
	assert.Equal(t, 1, result.FullyConformant)
	assert.InDelta(t, 100.0, result.ConformanceRate, 1e-9)
	assert.InDelta(t, 1.0, result.Fitness, 1e-9)
	assert.Empty(t, result.Deviations)
	assert.Zero(t, result.Missing)
	assert.Zero(t, result.Remaining)
}

func TestCheckSkipDeviation(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "skip", map[string][]string{"C2": {"A", "D", "E"}})

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(log)

	assert.Equal(t, 2, result.DeviationsByType[string(mining.DeviationSkip)])
	assert.Equal(t, 1, result.DeviationsByActivity["B"])
	assert.Equal(t, 1, result.DeviationsByActivity["C"])
	assert.Zero(t, result.Missing)
	assert.Equal(t, 2, result.Remaining)
	assert.Less(t, result.Fitness, 1.0)
	assert.InDelta(t, 0.8, result.Fitness, 1e-9)
}

func TestCheckRepeatedActivityWithoutLoopEdge(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "repeat", map[string][]string{"C1": {"A", "A", "B", "C", "D", "E"}})

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(log)

	// The model has no A→A edge and no cycle back to A, so the repeat is
	// an invalid transition, not a silent replay.
	assert.Zero(t, result.FullyConformant)
	assert.Equal(t, 1, result.DeviationsByType[string(mining.DeviationInvalidTransition)])
	assert.Equal(t, 1, result.DeviationsByActivity["A"])
	assert.Equal(t, 1, result.Missing)
	assert.Less(t, result.Fitness, 1.0)
	assert.InDelta(t, 11.0/12.0, result.Fitness, 1e-9)
}

func TestCheckRepeatedActivityWithLoopEdge(t *testing.T) {
	t.Parallel()

	model := linearModel()
	model.AddEdge("B", "B", refmodel.EdgeSequence)

	log := buildLog(t, "loop", map[string][]string{"C1": {"A", "B", "B", "C", "D", "E"}})

	checker, err := mining.NewConformanceChecker(model)
	require.NoError(t, err)

	result := checker.Check(log)

	assert.Equal(t, 1, result.FullyConformant)
	assert.Empty(t, result.Deviations)
	assert.InDelta(t, 1.0, result.Fitness, 1e-9)
}

func TestCheckInsertDeviation(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "insert", map[string][]string{"C3": {"A", "B", "X", "C", "D", "E"}})

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(log)

	assert.Equal(t, 1, result.DeviationsByType[string(mining.DeviationInsert)])
	assert.GreaterOrEqual(t, result.DeviationsByActivity["X"], 1)
	assert.Less(t, result.Fitness, 1.0)
	assert.Greater(t, result.Fitness, 0.0)
}

func TestCheckMixedConformance(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "mixed", map[string][]string{
		"P1": {"A", "B", "C", "D", "E"},
		"P2": {"A", "B", "C", "D", "E"},
		"S1": {"A", "C", "D", "E"},
		"I1": {"A", "B", "X", "C", "D", "E"},
		"U1": {"B", "C", "D", "E"},
	})

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(log)

	assert.Equal(t, 5, result.TotalCases)
	assert.Equal(t, 2, result.FullyConformant)
	assert.InDelta(t, 50.0, result.ConformanceRate, 1e-9)
	assert.Greater(t, result.Fitness, 0.0)
	assert.Less(t, result.Fitness, 1.0)
	assert.Equal(t, 1, result.DeviationsByType[string(mining.DeviationUnexpectedStart)])
	assert.Positive(t, result.AvgDeviationsPerCase)
}

func TestCheckEmptyLog(t *testing.T) {
	t.Parallel()

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(eventlog.NewLog("empty"))

	assert.Zero(t, result.TotalCases)
	assert.InDelta(t, 100.0, result.ConformanceRate, 1e-9)
	assert.InDelta(t, 1.0, result.Fitness, 1e-9)
	assert.Empty(t, result.Deviations)
}

func TestCheckSingleEventPrematureEnd(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "single", map[string][]string{"C1": {"A"}})

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(log)

	require.Len(t, result.Deviations, 1)
	assert.Equal(t, mining.DeviationPrematureEnd, result.Deviations[0].Type)
	// A pending token plus the three intermediates B, C, D to reach E.
	assert.Equal(t, 4, result.Remaining)
}

func TestCheckFitnessAndPrecisionBounds(t *testing.T) {
	t.Parallel()

	traces := map[string][]string{}
	for i := 0; i < 8; i++ {
		traces[fmt.Sprintf("C%d", i)] = []string{"X", "Y", "A", "E", "B"}
	}

	log := buildLog(t, "bounds", traces)

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(log)

	assert.GreaterOrEqual(t, result.Fitness, 0.0)
	assert.LessOrEqual(t, result.Fitness, 1.0)
	assert.GreaterOrEqual(t, result.Precision, 0.0)
	assert.LessOrEqual(t, result.Precision, 1.0)
}

func TestCheckPrecisionFullyObserved(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "precise", map[string][]string{"C1": {"A", "B", "C", "D", "E"}})

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(log)

	assert.InDelta(t, 1.0, result.Precision, 1e-9)
}

func TestNewConformanceCheckerNilModel(t *testing.T) {
	t.Parallel()

	_, err := mining.NewConformanceChecker(nil)

	require.Error(t, err)
	require.ErrorIs(t, err, eventlog.ErrValidation)
}

func TestCheckDeviationsSorted(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "sorted", map[string][]string{
		"C2": {"B", "X"},
		"C1": {"B", "X"},
	})

	checker, err := mining.NewConformanceChecker(linearModel())
	require.NoError(t, err)

	result := checker.Check(log)

	for i := 1; i < len(result.Deviations); i++ {
		assert.LessOrEqual(t, result.Deviations[i-1].CaseID, result.Deviations[i].CaseID)
	}
}
