// Package gap derives evidence gaps from the coverage tracker and the
// extraction results, and scores reconstruction confidence per evidence
// category. All detections are pure; the analyzer never touches I/O.
package gap

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ib823/sapforensics/internal/coverage"
	"github.com/ib823/sapforensics/internal/extract"
)

// ErrPreconditionNotMet is returned when a report is requested before the
// analysis has run.
var ErrPreconditionNotMet = errors.New("precondition not met")

// Category classifies an evidence gap.
type Category string

// Gap categories.
const (
	CategoryExtraction     Category = "extraction"
	CategoryAuthorization  Category = "authorization"
	CategorySystemType     Category = "system_type"
	CategoryDataVolume     Category = "data_volume"
	CategoryProcess        Category = "process"
	CategoryInterface      Category = "interface"
	CategoryTemporal       Category = "temporal"
	CategoryInterpretation Category = "interpretation"
)

// Gap severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Gap is one detected evidence deficiency.
type Gap struct {
	Category    Category `json:"category"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	ExtractorID string   `json:"extractor_id,omitempty"`
	Table       string   `json:"table,omitempty"`
	Flag        string   `json:"flag,omitempty"`
}

// Analysis is the immutable gap-detection output.
type Analysis struct {
	Gaps            []Gap            `json:"gaps"`
	ByCategory      map[Category]int `json:"by_category"`
	MissingCritical []string         `json:"missing_critical"`
	Flags           []string         `json:"flags"`

	AuthorizationGaps int `json:"authorization_gaps"`
	VolumeGaps        int `json:"volume_gaps"`
}

// criticalTables are the foundational tables a reconstruction cannot do
// without; never attempting one is flagged regardless of dictionary size.
var criticalTables = []string{
	"BKPF", "BSEG", "CDHDR", "CDPOS", "DD02L", "DD03L",
	"EKKO", "KNA1", "LFA1", "MARA", "T001", "TADIR", "USR02",
}

// authIndicators mark a failed read as an authorization problem when any of
// them appears in the error message.
var authIndicators = []string{
	"NOT_AUTHORIZED", "NO_AUTHORITY", "AUTHORIZATION",
	"PERMISSION DENIED", "S_TABU_DIS", "ACCESS DENIED",
}

// versionIndicators flag the absent system generation when a generation
// marker table is missing from the data dictionary.
var versionIndicators = map[string]string{
	"ACDOCA": "NO_UNIVERSAL_JOURNAL",
	"MATDOC": "NO_MATERIAL_DOCUMENT_LEDGER",
}

// temporalAdvisory is the fixed advisory attached to every analysis.
const temporalAdvisory = "historical coverage depends on the system's archiving and retention policy; absence of old documents is not proof of absence"

// Analyzer detects gaps from a completed extraction run.
type Analyzer struct {
	tracker     *coverage.Tracker
	results     map[string]extract.Result
	descriptors map[string]extract.Descriptor

	knownTables    []string
	rfcOnlySkipped []string
	interpreted    map[string]struct{}

	analysis *Analysis
}

// NewAnalyzer creates an analyzer over the run's tracker, results map, and
// the descriptors of every registered extractor.
func NewAnalyzer(tracker *coverage.Tracker, results map[string]extract.Result, descriptors map[string]extract.Descriptor) *Analyzer {
	return &Analyzer{
		tracker:     tracker,
		results:     results,
		descriptors: descriptors,
	}
}

// SetKnownTables supplies the data-dictionary table catalogue.
func (a *Analyzer) SetKnownTables(tables []string) {
	a.knownTables = tables
}

// SetRFCOnlySkipped supplies the ids of RFC-only extractors that were
// skipped because no RFC transport was available.
func (a *Analyzer) SetRFCOnlySkipped(ids []string) {
	a.rfcOnlySkipped = ids
}

// SetInterpretedModules supplies the modules covered by at least one
// interpretation rule.
func (a *Analyzer) SetInterpretedModules(modules []string) {
	a.interpreted = make(map[string]struct{}, len(modules))
	for _, module := range modules {
		a.interpreted[module] = struct{}{}
	}
}

// Analyze runs every detection and caches the result.
func (a *Analyzer) Analyze() *Analysis {
	analysis := &Analysis{ByCategory: make(map[Category]int)}

	a.detectExtraction(analysis)
	a.detectAuthorization(analysis)
	a.detectSystemType(analysis)
	a.detectDataVolume(analysis)
	a.detectProcess(analysis)
	a.detectInterface(analysis)
	a.detectInterpretation(analysis)

	analysis.add(Gap{
		Category:    CategoryTemporal,
		Severity:    SeverityLow,
		Description: temporalAdvisory,
	})

	sort.Strings(analysis.Flags)

	a.analysis = analysis

	return analysis
}

// Report returns the cached analysis, failing when Analyze has not run.
func (a *Analyzer) Report() (*Analysis, error) {
	if a.analysis == nil {
		return nil, fmt.Errorf("%w: gap report requested before analysis", ErrPreconditionNotMet)
	}

	return a.analysis, nil
}

func (an *Analysis) add(g Gap) {
	an.Gaps = append(an.Gaps, g)
	an.ByCategory[g.Category]++
}

// detectExtraction compares the dictionary catalogue against the attempted
// tables and highlights never-attempted critical tables.
func (a *Analyzer) detectExtraction(analysis *Analysis) {
	attempted := make(map[string]struct{})
	for _, record := range a.tracker.Records() {
		attempted[record.Table] = struct{}{}
	}

	unattempted := 0

	for _, table := range a.knownTables {
		if _, ok := attempted[table]; !ok {
			unattempted++
		}
	}

	if unattempted > 0 {
		analysis.add(Gap{
			Category:    CategoryExtraction,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("%d of %d dictionary tables were never attempted", unattempted, len(a.knownTables)),
		})
	}

	for _, table := range criticalTables {
		if _, ok := attempted[table]; ok {
			continue
		}

		analysis.MissingCritical = append(analysis.MissingCritical, table)
		analysis.add(Gap{
			Category:    CategoryExtraction,
			Severity:    SeverityHigh,
			Description: "critical table was never attempted",
			Table:       table,
		})
	}
}

// detectAuthorization flags failed reads whose error carries an auth
// indicator.
func (a *Analyzer) detectAuthorization(analysis *Analysis) {
	for _, record := range a.tracker.Gaps() {
		if record.Status != coverage.StatusFailed {
			continue
		}

		message := strings.ToUpper(record.Detail.Error)

		for _, indicator := range authIndicators {
			if strings.Contains(message, indicator) {
				analysis.AuthorizationGaps++
				analysis.add(Gap{
					Category:    CategoryAuthorization,
					Severity:    SeverityHigh,
					Description: "read denied: " + record.Detail.Error,
					ExtractorID: record.ExtractorID,
					Table:       record.Table,
				})

				break
			}
		}
	}
}

// detectSystemType flags missing RFC capability and absent generation
// markers.
func (a *Analyzer) detectSystemType(analysis *Analysis) {
	if len(a.rfcOnlySkipped) > 0 {
		analysis.Flags = append(analysis.Flags, "NO_RFC")
		analysis.add(Gap{
			Category:    CategorySystemType,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("%d RFC-only extractors skipped; function-module evidence unavailable", len(a.rfcOnlySkipped)),
			Flag:        "NO_RFC",
		})
	}

	if len(a.knownTables) == 0 {
		return
	}

	known := make(map[string]struct{}, len(a.knownTables))
	for _, table := range a.knownTables {
		known[table] = struct{}{}
	}

	indicators := make([]string, 0, len(versionIndicators))
	for table := range versionIndicators {
		indicators = append(indicators, table)
	}

	sort.Strings(indicators)

	for _, table := range indicators {
		if _, ok := known[table]; ok {
			continue
		}

		flag := versionIndicators[table]
		analysis.Flags = append(analysis.Flags, flag)
		analysis.add(Gap{
			Category:    CategorySystemType,
			Severity:    SeverityLow,
			Description: "generation marker table absent from dictionary",
			Table:       table,
			Flag:        flag,
		})
	}
}

// detectDataVolume flags partial reads, where row limits truncated the
// evidence.
func (a *Analyzer) detectDataVolume(analysis *Analysis) {
	for _, record := range a.tracker.Gaps() {
		if record.Status != coverage.StatusPartial {
			continue
		}

		analysis.VolumeGaps++
		analysis.add(Gap{
			Category:    CategoryDataVolume,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("read truncated at %d rows", record.Detail.RowCount),
			ExtractorID: record.ExtractorID,
			Table:       record.Table,
		})
	}
}

// detectProcess flags absent foundational evidence for process mining.
func (a *Analyzer) detectProcess(analysis *Analysis) {
	foundational := []string{
		extract.ResultChangeDocuments,
		extract.ResultUsageStatistics,
		extract.ResultWorkflows,
	}

	for _, id := range foundational {
		result, ok := a.results[id]
		if ok && !result.Failed() {
			continue
		}

		analysis.add(Gap{
			Category:    CategoryProcess,
			Severity:    SeverityHigh,
			Description: "foundational process evidence absent",
			ExtractorID: id,
		})
	}
}

// interfacesExtractorID matches the descriptor in the extractors package.
const interfacesExtractorID = "interfaces"

// detectInterface flags unreachable destinations and a missing interface
// extractor.
func (a *Analyzer) detectInterface(analysis *Analysis) {
	result, ok := a.results[interfacesExtractorID]
	if !ok {
		analysis.add(Gap{
			Category:    CategoryInterface,
			Severity:    SeverityMedium,
			Description: "interface landscape was not examined",
			ExtractorID: interfacesExtractorID,
		})

		return
	}

	unreachable, _ := result.Payload["unreachable_destinations"].([]string)
	for _, destination := range unreachable {
		analysis.add(Gap{
			Category:    CategoryInterface,
			Severity:    SeverityMedium,
			Description: "remote destination unreachable: " + destination,
			ExtractorID: interfacesExtractorID,
		})
	}
}

// detectInterpretation flags modules whose results no interpretation rule
// covers.
func (a *Analyzer) detectInterpretation(analysis *Analysis) {
	modules := make(map[string]struct{})

	for id := range a.results {
		descriptor, ok := a.descriptors[id]
		if ok {
			modules[descriptor.Module] = struct{}{}
		}
	}

	names := make([]string, 0, len(modules))
	for module := range modules {
		names = append(names, module)
	}

	sort.Strings(names)

	for _, module := range names {
		if _, ok := a.interpreted[module]; ok {
			continue
		}

		analysis.add(Gap{
			Category:    CategoryInterpretation,
			Severity:    SeverityLow,
			Description: "no interpretation rule matched module " + module,
		})
	}
}
