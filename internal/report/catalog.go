// Package report collates a pipeline run into the ForensicReport and its
// serialisations: JSON, markdown, executive summary, per-module views,
// process-map HTML, and the gap report.
package report

import (
	"fmt"
	"sort"

	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/gap"
	"github.com/ib823/sapforensics/internal/mining"
	"github.com/ib823/sapforensics/internal/orchestrator"
	"github.com/ib823/sapforensics/internal/refmodel"
)

// maxCatalogVariants bounds the variants listed per catalog entry.
const maxCatalogVariants = 10

// processCategories labels each built-in process with its business area.
var processCategories = map[string]string{
	refmodel.ProcessO2C: "sales",
	refmodel.ProcessP2P: "procurement",
	refmodel.ProcessR2R: "finance",
	refmodel.ProcessA2R: "finance",
	refmodel.ProcessH2R: "human resources",
	refmodel.ProcessP2M: "manufacturing",
	refmodel.ProcessM2S: "maintenance",
}

// CatalogVariant is one observed path through a catalogued process.
type CatalogVariant struct {
	ID          int      `json:"id"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Volume      int      `json:"volume"`
	Users       []string `json:"users"`
}

// EvidenceCounts records how much foundational evidence backed the entry.
type EvidenceCounts struct {
	ChangeDocuments int `json:"change_documents"`
	UsageStatistics int `json:"usage_statistics"`
	BatchJobs       int `json:"batch_jobs"`
	Workflows       int `json:"workflows"`
}

// CatalogEntry is one reconstructed business process.
type CatalogEntry struct {
	ProcessID     string           `json:"process_id"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Variants      []CatalogVariant `json:"variants"`
	Interfaces    []string         `json:"interfaces,omitempty"`
	CustomCode    int              `json:"custom_code"`
	Configuration map[string]int   `json:"configuration,omitempty"`
	Evidence      EvidenceCounts   `json:"evidence"`
	Gaps          []gap.Gap        `json:"gaps,omitempty"`
}

// ProcessCatalog is the per-process view of a run.
type ProcessCatalog struct {
	Entries []CatalogEntry `json:"entries"`
}

// Entry returns the catalog entry for a process id, or nil.
func (c *ProcessCatalog) Entry(processID string) *CatalogEntry {
	for i := range c.Entries {
		if c.Entries[i].ProcessID == processID {
			return &c.Entries[i]
		}
	}

	return nil
}

// BuildCatalog assembles the process catalog from a completed run.
func BuildCatalog(run *orchestrator.RunResult) *ProcessCatalog {
	catalog := &ProcessCatalog{}
	evidence := collectEvidence(run.Results)

	ids := make([]string, 0, len(run.Analyses))
	for id := range run.Analyses {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		analysis := run.Analyses[id]

		entry := CatalogEntry{
			ProcessID:     id,
			Name:          processName(id),
			Category:      processCategories[id],
			Variants:      catalogVariants(analysis),
			Interfaces:    interfaceNames(run.Results),
			CustomCode:    len(run.Results["custom_code"].Rows("custom_objects")),
			Configuration: configurationCounts(run.Results),
			Evidence:      evidence,
			Gaps:          processGaps(run.GapAnalysis),
		}

		catalog.Entries = append(catalog.Entries, entry)
	}

	return catalog
}

func processName(id string) string {
	model := refmodel.Get(id)
	if model == nil {
		mapping := eventlog.DefaultMapping(id)
		if mapping != nil {
			return mapping.Name
		}

		return id
	}

	return model.Name
}

// catalogVariants converts the top ranked mining variants into catalog form.
// Users are the resources whose observed activities intersect the variant's
// steps, the closest attribution the aggregated analysis supports.
func catalogVariants(analysis *mining.ProcessAnalysis) []CatalogVariant {
	if analysis == nil || analysis.Variants == nil {
		return nil
	}

	ranked := analysis.Variants.Variants
	if len(ranked) > maxCatalogVariants {
		ranked = ranked[:maxCatalogVariants]
	}

	variants := make([]CatalogVariant, 0, len(ranked))

	for i, variant := range ranked {
		variants = append(variants, CatalogVariant{
			ID:          i + 1,
			Description: describeVariant(variant),
			Steps:       variant.Sequence,
			Volume:      variant.Count,
			Users:       variantUsers(analysis.Social, variant.Sequence),
		})
	}

	return variants
}

func describeVariant(variant mining.Variant) string {
	if len(variant.Sequence) == 0 {
		return "empty trace"
	}

	description := fmt.Sprintf("%s to %s in %d steps",
		variant.Sequence[0], variant.Sequence[len(variant.Sequence)-1], len(variant.Sequence))

	if variant.Rework {
		description += " with rework"
	}

	return description
}

func variantUsers(social *mining.SocialNetworkResult, steps []string) []string {
	if social == nil {
		return nil
	}

	inVariant := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		inVariant[step] = struct{}{}
	}

	var users []string

	for _, resource := range social.Resources {
		for _, activity := range resource.Activities {
			if _, ok := inVariant[activity]; ok {
				users = append(users, resource.Resource)

				break
			}
		}
	}

	sort.Strings(users)

	return users
}

func interfaceNames(results map[string]extract.Result) []string {
	rows := results["interfaces"].Rows("destinations")

	names := make([]string, 0, len(rows))

	for _, row := range rows {
		name, ok := row["RFCDEST"].(string)
		if ok && name != "" {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

func configurationCounts(results map[string]extract.Result) map[string]int {
	payload := results["configuration"].Payload

	counts := make(map[string]int, len(payload))

	for key, value := range payload {
		if n, ok := rowCount(value); ok {
			counts[key] = n
		}
	}

	if len(counts) == 0 {
		return nil
	}

	return counts
}

func collectEvidence(results map[string]extract.Result) EvidenceCounts {
	return EvidenceCounts{
		ChangeDocuments: len(results[extract.ResultChangeDocuments].Rows("headers")),
		UsageStatistics: len(results[extract.ResultUsageStatistics].Rows("workload_records")),
		BatchJobs:       len(results[extract.ResultBatchJobs].Rows("jobs")),
		Workflows:       len(results[extract.ResultWorkflows].Rows("work_items")),
	}
}

func processGaps(analysis *gap.Analysis) []gap.Gap {
	if analysis == nil {
		return nil
	}

	var gaps []gap.Gap

	for _, g := range analysis.Gaps {
		if g.Category == gap.CategoryProcess {
			gaps = append(gaps, g)
		}
	}

	return gaps
}
