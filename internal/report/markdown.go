package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ib823/sapforensics/internal/gap"
)

// maxSummaryGaps bounds the gaps listed in the executive summary.
const maxSummaryGaps = 5

// maxMarkdownVariants bounds the variants tabled per process section.
const maxMarkdownVariants = 5

const reportTimeLayout = time.RFC3339

// ToMarkdown renders the full report as a markdown document: run header,
// coverage, confidence, one section per catalogued process, and the gaps.
func (r *ForensicReport) ToMarkdown() string {
	var b strings.Builder

	b.WriteString("# Forensic Reconstruction Report\n\n")
	r.writeRunHeader(&b)
	r.writeCoverageSection(&b)
	r.writeConfidenceSection(&b)

	for _, entry := range r.Catalog.Entries {
		r.writeProcessSection(&b, entry)
	}

	r.writeGapSection(&b)

	return b.String()
}

// ToExecutiveSummary renders the short management view: system scale,
// confidence grade, process count, and the most severe gaps.
func (r *ForensicReport) ToExecutiveSummary() string {
	var b strings.Builder

	b.WriteString("# Executive Summary\n\n")

	coverage := r.Run.Coverage
	fmt.Fprintf(&b, "Reconstruction run `%s` (%s mode) read %s of %s expected tables (%d%% coverage) across %d extractors.\n\n",
		r.Run.RunID, r.Run.Mode,
		humanize.Comma(int64(coverage.Extracted+coverage.Partial)),
		humanize.Comma(int64(coverage.Total)),
		coverage.CoveragePct, coverage.ExtractorCount)

	if c := r.Run.Confidence; c != nil {
		fmt.Fprintf(&b, "Overall reconstruction confidence: **%.1f / 100 (grade %s)**.\n\n", c.Overall, c.Grade)
	}

	fmt.Fprintf(&b, "%d business processes reconstructed:\n\n", len(r.Catalog.Entries))

	for _, entry := range r.Catalog.Entries {
		line := fmt.Sprintf("- **%s** (%s): %d variants", entry.Name, entry.Category, len(entry.Variants))

		if analysis := r.Run.Analyses[entry.ProcessID]; analysis != nil {
			line += fmt.Sprintf(", %s cases, %s events",
				humanize.Comma(int64(analysis.CaseCount)), humanize.Comma(int64(analysis.EventCount)))

			if analysis.Conformance != nil {
				line += fmt.Sprintf(", %.0f%% conformant", analysis.Conformance.ConformanceRate)
			}
		}

		b.WriteString(line + "\n")
	}

	if r.Run.GapAnalysis != nil && len(r.Run.GapAnalysis.Gaps) > 0 {
		b.WriteString("\nMost significant evidence gaps:\n\n")

		for _, g := range topGaps(r.Run.GapAnalysis.Gaps, maxSummaryGaps) {
			fmt.Fprintf(&b, "- [%s/%s] %s\n", g.Category, g.Severity, g.Description)
		}
	}

	return b.String()
}

func (r *ForensicReport) writeRunHeader(b *strings.Builder) {
	tbl := newMarkdownTable()
	tbl.AppendHeader(table.Row{"Run", "Mode", "Started", "Finished"})
	tbl.AppendRow(table.Row{
		r.Run.RunID,
		string(r.Run.Mode),
		r.Run.StartedAt.Format(reportTimeLayout),
		r.Run.FinishedAt.Format(reportTimeLayout),
	})

	b.WriteString(tbl.RenderMarkdown() + "\n\n")

	if r.Run.Cancelled {
		b.WriteString("**Run was cancelled; results are partial.**\n\n")
	}
}

func (r *ForensicReport) writeCoverageSection(b *strings.Builder) {
	coverage := r.Run.Coverage

	b.WriteString("## Extraction Coverage\n\n")

	tbl := newMarkdownTable()
	tbl.AppendHeader(table.Row{"Extracted", "Partial", "Failed", "Skipped", "Total", "Coverage"})
	tbl.AppendRow(table.Row{
		humanize.Comma(int64(coverage.Extracted)),
		humanize.Comma(int64(coverage.Partial)),
		humanize.Comma(int64(coverage.Failed)),
		humanize.Comma(int64(coverage.Skipped)),
		humanize.Comma(int64(coverage.Total)),
		fmt.Sprintf("%d%%", coverage.CoveragePct),
	})

	b.WriteString(tbl.RenderMarkdown() + "\n\n")
}

func (r *ForensicReport) writeConfidenceSection(b *strings.Builder) {
	confidence := r.Run.Confidence
	if confidence == nil {
		return
	}

	b.WriteString("## Reconstruction Confidence\n\n")
	fmt.Fprintf(b, "Overall: **%.1f (grade %s)**\n\n", confidence.Overall, confidence.Grade)

	tbl := newMarkdownTable()
	tbl.AppendHeader(table.Row{"Category", "Weight", "Base", "Score"})

	for _, category := range confidence.Categories {
		tbl.AppendRow(table.Row{
			category.Category,
			fmt.Sprintf("%.2f", category.Weight),
			fmt.Sprintf("%.1f", category.Base),
			fmt.Sprintf("%.1f", category.Score),
		})
	}

	b.WriteString(tbl.RenderMarkdown() + "\n\n")
}

func (r *ForensicReport) writeProcessSection(b *strings.Builder, entry CatalogEntry) {
	fmt.Fprintf(b, "## %s\n\n", entry.Name)
	fmt.Fprintf(b, "Category: %s. Custom objects in scope: %s.\n\n",
		entry.Category, humanize.Comma(int64(entry.CustomCode)))

	analysis := r.Run.Analyses[entry.ProcessID]
	if analysis != nil {
		tbl := newMarkdownTable()
		tbl.AppendHeader(table.Row{"Cases", "Events", "Variants", "Fitness", "Conformance"})

		fitness, conformance := "n/a", "n/a"
		if analysis.Conformance != nil {
			fitness = fmt.Sprintf("%.3f", analysis.Conformance.Fitness)
			conformance = fmt.Sprintf("%.1f%%", analysis.Conformance.ConformanceRate)
		}

		tbl.AppendRow(table.Row{
			humanize.Comma(int64(analysis.CaseCount)),
			humanize.Comma(int64(analysis.EventCount)),
			analysis.Variants.VariantCount,
			fitness,
			conformance,
		})

		b.WriteString(tbl.RenderMarkdown() + "\n\n")
	}

	if len(entry.Variants) > 0 {
		b.WriteString("### Variants\n\n")

		tbl := newMarkdownTable()
		tbl.AppendHeader(table.Row{"#", "Path", "Volume", "Users"})

		variants := entry.Variants
		if len(variants) > maxMarkdownVariants {
			variants = variants[:maxMarkdownVariants]
		}

		for _, variant := range variants {
			tbl.AppendRow(table.Row{
				variant.ID,
				strings.Join(variant.Steps, " → "),
				humanize.Comma(int64(variant.Volume)),
				len(variant.Users),
			})
		}

		b.WriteString(tbl.RenderMarkdown() + "\n\n")
	}

	r.writeEvidenceTable(b, entry.Evidence)
}

func (r *ForensicReport) writeEvidenceTable(b *strings.Builder, evidence EvidenceCounts) {
	tbl := newMarkdownTable()
	tbl.AppendHeader(table.Row{"Change Documents", "Usage Records", "Batch Jobs", "Workflows"})
	tbl.AppendRow(table.Row{
		humanize.Comma(int64(evidence.ChangeDocuments)),
		humanize.Comma(int64(evidence.UsageStatistics)),
		humanize.Comma(int64(evidence.BatchJobs)),
		humanize.Comma(int64(evidence.Workflows)),
	})

	b.WriteString(tbl.RenderMarkdown() + "\n\n")
}

func (r *ForensicReport) writeGapSection(b *strings.Builder) {
	analysis := r.Run.GapAnalysis
	if analysis == nil {
		return
	}

	b.WriteString("## Evidence Gaps\n\n")

	if len(analysis.MissingCritical) > 0 {
		fmt.Fprintf(b, "Missing critical tables: %s.\n\n", strings.Join(analysis.MissingCritical, ", "))
	}

	tbl := newMarkdownTable()
	tbl.AppendHeader(table.Row{"Category", "Severity", "Description"})

	for _, g := range analysis.Gaps {
		tbl.AppendRow(table.Row{string(g.Category), g.Severity, g.Description})
	}

	b.WriteString(tbl.RenderMarkdown() + "\n")
}

func newMarkdownTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	return tbl
}

// topGaps returns up to n gaps ordered by severity.
func topGaps(gaps []gap.Gap, n int) []gap.Gap {
	ranked := make([]gap.Gap, len(gaps))
	copy(ranked, gaps)

	sort.SliceStable(ranked, func(i, j int) bool {
		return severityRank(ranked[i].Severity) < severityRank(ranked[j].Severity)
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}

	return ranked
}

func severityRank(severity string) int {
	switch severity {
	case gap.SeverityHigh:
		return 0
	case gap.SeverityMedium:
		return 1
	default:
		return 2
	}
}
