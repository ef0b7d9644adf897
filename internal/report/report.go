package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ib823/sapforensics/internal/coverage"
	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/gap"
	"github.com/ib823/sapforensics/internal/mining"
	"github.com/ib823/sapforensics/internal/orchestrator"
)

// ErrUnknownModule is returned when a module report names a module no
// registered extractor belongs to.
var ErrUnknownModule = errors.New("unknown module")

// ForensicReport is the final assembly of a pipeline run: the raw results,
// coverage, analyses, gap findings, and the derived process catalog.
type ForensicReport struct {
	Run     *orchestrator.RunResult `json:"run"`
	Catalog *ProcessCatalog         `json:"catalog"`

	descriptors []extract.Descriptor
}

// New assembles a report over a completed run. The descriptors come from the
// registry the run used; they drive the per-module views.
func New(run *orchestrator.RunResult, descriptors []extract.Descriptor) *ForensicReport {
	return &ForensicReport{
		Run:         run,
		Catalog:     BuildCatalog(run),
		descriptors: descriptors,
	}
}

// ToSerializable returns the full report as a nested record.
func (r *ForensicReport) ToSerializable() (map[string]any, error) {
	return mining.ToSerializable(r)
}

// Load restores a report written by ToSerializable. Discovered models are
// not serialised; graph views fall back to edge-derived nodes.
func Load(data []byte, descriptors []extract.Descriptor) (*ForensicReport, error) {
	var loaded ForensicReport

	err := json.Unmarshal(data, &loaded)
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	loaded.descriptors = descriptors

	return &loaded, nil
}

// ModuleReport is the per-SAP-module view of a run.
type ModuleReport struct {
	Module     string                  `json:"module"`
	Extractors []ModuleExtractorReport `json:"extractors"`
	Findings   []orchestrator.Finding  `json:"findings,omitempty"`
	Gaps       []gap.Gap               `json:"gaps,omitempty"`
}

// ModuleExtractorReport is one extractor's contribution to a module view.
type ModuleExtractorReport struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Error    string          `json:"error,omitempty"`
	Rows     map[string]int  `json:"rows,omitempty"`
	Coverage coverage.Report `json:"coverage"`
}

// ToModuleReport returns the view of one SAP module: its extractors with
// their coverage and row counts, the interpretation findings for the module,
// and the gaps attributed to its extractors.
func (r *ForensicReport) ToModuleReport(module string) (*ModuleReport, error) {
	var matched []extract.Descriptor

	for _, desc := range r.descriptors {
		if desc.Module == module {
			matched = append(matched, desc)
		}
	}

	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, module)
	}

	view := &ModuleReport{Module: module}
	ids := make(map[string]struct{}, len(matched))

	for _, desc := range matched {
		ids[desc.ID] = struct{}{}
		result := r.Run.Results[desc.ID]

		view.Extractors = append(view.Extractors, ModuleExtractorReport{
			ID:       desc.ID,
			Name:     desc.Name,
			Category: desc.Category,
			Error:    result.Err,
			Rows:     payloadRowCounts(result),
			Coverage: extractorCoverage(r.Run.Coverage, desc.ID),
		})
	}

	for _, finding := range r.Run.Interpretations {
		if finding.Module == module {
			view.Findings = append(view.Findings, finding)
		}
	}

	if r.Run.GapAnalysis != nil {
		for _, g := range r.Run.GapAnalysis.Gaps {
			if _, ok := ids[g.ExtractorID]; ok {
				view.Gaps = append(view.Gaps, g)
			}
		}
	}

	return view, nil
}

// Modules returns the distinct extractor modules, sorted.
func (r *ForensicReport) Modules() []string {
	seen := make(map[string]struct{})

	for _, desc := range r.descriptors {
		seen[desc.Module] = struct{}{}
	}

	modules := make([]string, 0, len(seen))
	for module := range seen {
		modules = append(modules, module)
	}

	sort.Strings(modules)

	return modules
}

// ProcessGraph is the discovered control flow of one process.
type ProcessGraph struct {
	ProcessID string                  `json:"process_id"`
	Nodes     []string                `json:"nodes"`
	Edges     []mining.DependencyEdge `json:"edges"`
	Starts    []string                `json:"starts,omitempty"`
	Ends      []string                `json:"ends,omitempty"`
}

// DependencyGraph holds the discovered graphs of every mined process.
type DependencyGraph struct {
	Processes []ProcessGraph `json:"processes"`
}

// ToDependencyGraph returns the discovered dependency graphs, one per mined
// process, nodes and edges in deterministic order.
func (r *ForensicReport) ToDependencyGraph() *DependencyGraph {
	graph := &DependencyGraph{}

	ids := make([]string, 0, len(r.Run.Analyses))
	for id := range r.Run.Analyses {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		analysis := r.Run.Analyses[id]
		if analysis == nil || analysis.Discovery == nil {
			continue
		}

		process := ProcessGraph{
			ProcessID: id,
			Edges:     analysis.Discovery.Edges,
		}

		if model := analysis.Discovery.Model; model != nil {
			process.Nodes = model.Activities()
			process.Starts = model.StartActivities()
			process.Ends = model.EndActivities()
		} else {
			// Reports reloaded from JSON carry edges but not the model.
			process.Nodes = edgeNodes(analysis.Discovery.Edges)
		}

		graph.Processes = append(graph.Processes, process)
	}

	return graph
}

// GapReport is the consolidated reconstruction-risk view.
type GapReport struct {
	Coverage   coverage.SystemReport `json:"coverage"`
	Analysis   *gap.Analysis         `json:"analysis"`
	Confidence *gap.Confidence       `json:"confidence"`
}

// ToGapReport returns coverage, the gap analysis, and the confidence score
// in one record. Analysis and Confidence are nil for a run cancelled before
// the gap phase.
func (r *ForensicReport) ToGapReport() *GapReport {
	return &GapReport{
		Coverage:   r.Run.Coverage,
		Analysis:   r.Run.GapAnalysis,
		Confidence: r.Run.Confidence,
	}
}

func edgeNodes(edges []mining.DependencyEdge) []string {
	seen := make(map[string]struct{})

	for _, edge := range edges {
		seen[edge.From] = struct{}{}
		seen[edge.To] = struct{}{}
	}

	nodes := make([]string, 0, len(seen))
	for node := range seen {
		nodes = append(nodes, node)
	}

	sort.Strings(nodes)

	return nodes
}

func payloadRowCounts(result extract.Result) map[string]int {
	counts := make(map[string]int)

	for key, value := range result.Payload {
		if n, ok := rowCount(value); ok {
			counts[key] = n
		}
	}

	if len(counts) == 0 {
		return nil
	}

	return counts
}

// rowCount counts list payloads, both in their native extractor shape and
// the erased shape a JSON reload produces.
func rowCount(value any) (int, bool) {
	switch rows := value.(type) {
	case []extract.Row:
		return len(rows), true
	case []any:
		return len(rows), true
	default:
		return 0, false
	}
}

func extractorCoverage(system coverage.SystemReport, extractorID string) coverage.Report {
	report := coverage.Report{Tables: make(map[string]coverage.Record)}

	for _, record := range system.Tables {
		if record.ExtractorID != extractorID {
			continue
		}

		report.Tables[record.Table] = record
		report.Total++

		switch record.Status {
		case coverage.StatusExtracted:
			report.Extracted++
		case coverage.StatusFailed:
			report.Failed++
		case coverage.StatusSkipped:
			report.Skipped++
		case coverage.StatusPartial:
			report.Partial++
		}
	}

	if report.Total > 0 {
		report.CoveragePct = 100 * (report.Extracted + report.Partial) / report.Total
	}

	return report
}
