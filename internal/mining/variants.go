package mining

import (
	"sort"
	"strings"

	"github.com/ib823/sapforensics/internal/eventlog"
)

const variantPctFactor = 100

// VariantAnalyzer groups traces by their activity sequence.
type VariantAnalyzer struct{}

// NewVariantAnalyzer creates a variant analyzer.
func NewVariantAnalyzer() *VariantAnalyzer {
	return &VariantAnalyzer{}
}

// Analyze ranks the distinct activity sequences by frequency and designates
// the most frequent sequence without repeated activities as the happy path.
func (va *VariantAnalyzer) Analyze(log *eventlog.EventLog) *VariantAnalysisResult {
	groups := make(map[string]*Variant)

	var order []string

	for _, trace := range log.Traces() {
		sequence := trace.Activities()
		key := strings.Join(sequence, "\x1f")

		variant, ok := groups[key]
		if !ok {
			variant = &Variant{
				Sequence: sequence,
				Rework:   hasRework(sequence),
			}
			groups[key] = variant
			order = append(order, key)
		}

		variant.Count++
		variant.CaseIDs = append(variant.CaseIDs, trace.CaseID)
	}

	total := log.CaseCount()
	result := &VariantAnalysisResult{VariantCount: len(groups)}

	for _, key := range order {
		variant := groups[key]
		if total > 0 {
			variant.Percent = variantPctFactor * float64(variant.Count) / float64(total)
		}

		result.Variants = append(result.Variants, *variant)
	}

	sort.SliceStable(result.Variants, func(i, j int) bool {
		return result.Variants[i].Count > result.Variants[j].Count
	})

	for _, variant := range result.Variants {
		if variant.Rework {
			continue
		}

		result.HappyPath = variant.Sequence
		result.HappyPathPct = variant.Percent

		break
	}

	return result
}

// hasRework reports whether any activity occurs more than once in the
// sequence.
func hasRework(sequence []string) bool {
	seen := make(map[string]struct{}, len(sequence))

	for _, activity := range sequence {
		if _, ok := seen[activity]; ok {
			return true
		}

		seen[activity] = struct{}{}
	}

	return false
}
