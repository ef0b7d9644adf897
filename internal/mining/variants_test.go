package mining_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/mining"
)

func TestVariantsRankedByFrequency(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "variants", map[string][]string{
		"C1": {"A", "B", "C"},
		"C2": {"A", "B", "C"},
		"C3": {"A", "B", "C"},
		"C4": {"A", "C"},
	})

	result := mining.NewVariantAnalyzer().Analyze(log)

	require.Equal(t, 2, result.VariantCount)
	assert.Equal(t, []string{"A", "B", "C"}, result.Variants[0].Sequence)
	assert.Equal(t, 3, result.Variants[0].Count)
	assert.InDelta(t, 75.0, result.Variants[0].Percent, 1e-9)
	assert.ElementsMatch(t, []string{"C1", "C2", "C3"}, result.Variants[0].CaseIDs)
}

func TestVariantsHappyPath(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "happy", map[string][]string{
		"C1": {"A", "B", "C"},
		"C2": {"A", "B", "C"},
		"C3": {"A", "B", "B", "C"},
	})

	result := mining.NewVariantAnalyzer().Analyze(log)

	assert.Equal(t, []string{"A", "B", "C"}, result.HappyPath)
	assert.InDelta(t, 100.0*2.0/3.0, result.HappyPathPct, 1e-9)
}

func TestVariantsReworkDetected(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "rework", map[string][]string{
		"C1": {"A", "B", "A", "C"},
	})

	result := mining.NewVariantAnalyzer().Analyze(log)

	require.Len(t, result.Variants, 1)
	assert.True(t, result.Variants[0].Rework)
	assert.Empty(t, result.HappyPath)
}

func TestVariantsEmptyLog(t *testing.T) {
	t.Parallel()

	log := buildLog(t, "empty", nil)

	result := mining.NewVariantAnalyzer().Analyze(log)

	assert.Zero(t, result.VariantCount)
	assert.Empty(t, result.Variants)
	assert.Zero(t, result.HappyPathPct)
}
