package gap

import (
	"fmt"

	"github.com/ib823/sapforensics/internal/coverage"
	"github.com/ib823/sapforensics/pkg/alg/mapx"
	"github.com/ib823/sapforensics/pkg/alg/stats"
)

// categoryWeights is the evidence mix of the overall confidence score.
// Configuration carries the most reconstruction signal, followed by custom
// code; the weights sum to 1.
var categoryWeights = map[string]float64{
	"config":      0.25,
	"masterdata":  0.15,
	"transaction": 0.10,
	"code":        0.20,
	"security":    0.10,
	"interface":   0.10,
	"process":     0.10,
}

// Per-gap score deductions, in points.
const (
	deductPerMissingCritical = 5
	deductPerAuthGap         = 3
	deductPerVolumeGap       = 2
)

// Grade boundaries.
const (
	gradeA = 90
	gradeB = 80
	gradeC = 70
	gradeD = 60
)

const scoreMax = 100

// CategoryScore is the confidence breakdown for one evidence category.
type CategoryScore struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
	Base     float64 `json:"base"`
	Score    float64 `json:"score"`
}

// Confidence is the scored reconstruction confidence.
type Confidence struct {
	Overall    float64         `json:"overall"`
	Grade      string          `json:"grade"`
	Categories []CategoryScore `json:"categories"`

	Deductions struct {
		MissingCritical int `json:"missing_critical"`
		Authorization   int `json:"authorization"`
		Volume          int `json:"volume"`
	} `json:"deductions"`
}

// Scorer turns coverage plus gap analysis into a graded confidence score.
type Scorer struct {
	tracker *coverage.Tracker

	// categories maps extractor id to its evidence category so coverage
	// can be pooled per category.
	categories map[string]string
}

// NewScorer creates a scorer over the run's tracker and the extractor
// category assignments.
func NewScorer(tracker *coverage.Tracker, categories map[string]string) *Scorer {
	return &Scorer{tracker: tracker, categories: categories}
}

// Score computes the per-category and overall confidence. The base of each
// category is its pooled coverage percentage (the system-wide percentage
// when the category has no records); every missing critical table deducts 5
// points, every authorization gap 3, every volume gap 2, clamped to
// [0, 100]. The overall score is the weighted mean.
func (s *Scorer) Score(analysis *Analysis) (*Confidence, error) {
	if analysis == nil {
		return nil, fmt.Errorf("%w: confidence requested before gap analysis", ErrPreconditionNotMet)
	}

	systemPct := float64(s.tracker.SystemReport().CoveragePct)
	categoryPct := s.coverageByCategory()

	deduction := float64(deductPerMissingCritical*len(analysis.MissingCritical) +
		deductPerAuthGap*analysis.AuthorizationGaps +
		deductPerVolumeGap*analysis.VolumeGaps)

	confidence := &Confidence{}
	confidence.Deductions.MissingCritical = deductPerMissingCritical * len(analysis.MissingCritical)
	confidence.Deductions.Authorization = deductPerAuthGap * analysis.AuthorizationGaps
	confidence.Deductions.Volume = deductPerVolumeGap * analysis.VolumeGaps

	var overall float64

	for _, category := range mapx.SortedKeys(categoryWeights) {
		base, ok := categoryPct[category]
		if !ok {
			base = systemPct
		}

		score := stats.Clamp(base-deduction, 0, scoreMax)
		weight := categoryWeights[category]
		overall += weight * score

		confidence.Categories = append(confidence.Categories, CategoryScore{
			Category: category,
			Weight:   weight,
			Base:     base,
			Score:    score,
		})
	}

	confidence.Overall = overall
	confidence.Grade = GradeFor(overall)

	return confidence, nil
}

// coverageByCategory pools the coverage records of each category's
// extractors into one percentage.
func (s *Scorer) coverageByCategory() map[string]float64 {
	covered := make(map[string]int)
	totals := make(map[string]int)

	for _, record := range s.tracker.Records() {
		category, ok := s.categories[record.ExtractorID]
		if !ok {
			continue
		}

		totals[category]++

		if record.Status == coverage.StatusExtracted || record.Status == coverage.StatusPartial {
			covered[category]++
		}
	}

	pct := make(map[string]float64, len(totals))

	for category, total := range totals {
		if total == 0 {
			continue
		}

		pct[category] = scoreMax * float64(covered[category]) / float64(total)
	}

	return pct
}

// GradeFor maps a score to its letter grade.
func GradeFor(score float64) string {
	switch {
	case score >= gradeA:
		return "A"
	case score >= gradeB:
		return "B"
	case score >= gradeC:
		return "C"
	case score >= gradeD:
		return "D"
	default:
		return "F"
	}
}
