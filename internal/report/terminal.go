package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// gradeColors maps confidence grades to their terminal colour.
var gradeColors = map[string]*color.Color{
	"A": color.New(color.FgGreen, color.Bold),
	"B": color.New(color.FgGreen),
	"C": color.New(color.FgYellow),
	"D": color.New(color.FgYellow, color.Bold),
	"F": color.New(color.FgRed, color.Bold),
}

var severityColors = map[string]*color.Color{
	"high":   color.New(color.FgRed),
	"medium": color.New(color.FgYellow),
	"low":    color.New(color.FgHiBlack),
}

// RenderTerminal writes the interactive-console digest of the report: run
// header, coverage, graded confidence, one row per process, and the gaps.
func (r *ForensicReport) RenderTerminal(w io.Writer) {
	header := color.New(color.Bold)
	header.Fprintf(w, "Forensic Reconstruction — run %s (%s)\n\n", r.Run.RunID, r.Run.Mode)

	if r.Run.Cancelled {
		color.New(color.FgRed).Fprintln(w, "run cancelled; results are partial")
		fmt.Fprintln(w)
	}

	r.renderCoverage(w)
	r.renderConfidence(w)
	r.renderProcesses(w)
	r.renderGaps(w)
}

func (r *ForensicReport) renderCoverage(w io.Writer) {
	coverage := r.Run.Coverage

	fmt.Fprintf(w, "Coverage: %s/%s tables (%d%%) across %d extractors\n\n",
		humanize.Comma(int64(coverage.Extracted+coverage.Partial)),
		humanize.Comma(int64(coverage.Total)),
		coverage.CoveragePct, coverage.ExtractorCount)
}

func (r *ForensicReport) renderConfidence(w io.Writer) {
	confidence := r.Run.Confidence
	if confidence == nil {
		return
	}

	grade := confidence.Grade

	painter, ok := gradeColors[grade]
	if !ok {
		painter = color.New()
	}

	fmt.Fprintf(w, "Confidence: %.1f / 100 — grade %s\n\n", confidence.Overall, painter.Sprint(grade))
}

func (r *ForensicReport) renderProcesses(w io.Writer) {
	if len(r.Catalog.Entries) == 0 {
		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Process", "Category", "Cases", "Events", "Variants", "Conformance"})

	for _, entry := range r.Catalog.Entries {
		cases, events, conformance := "-", "-", "n/a"

		if analysis := r.Run.Analyses[entry.ProcessID]; analysis != nil {
			cases = humanize.Comma(int64(analysis.CaseCount))
			events = humanize.Comma(int64(analysis.EventCount))

			if analysis.Conformance != nil {
				conformance = fmt.Sprintf("%.1f%%", analysis.Conformance.ConformanceRate)
			}
		}

		tbl.AppendRow(table.Row{
			entry.Name, entry.Category, cases, events, len(entry.Variants), conformance,
		})
	}

	tbl.Render()
	fmt.Fprintln(w)
}

func (r *ForensicReport) renderGaps(w io.Writer) {
	analysis := r.Run.GapAnalysis
	if analysis == nil || len(analysis.Gaps) == 0 {
		return
	}

	fmt.Fprintf(w, "Gaps (%d):\n", len(analysis.Gaps))

	for _, g := range analysis.Gaps {
		painter, ok := severityColors[g.Severity]
		if !ok {
			painter = color.New()
		}

		fmt.Fprintf(w, "  %s %s\n", painter.Sprintf("[%s]", strings.ToUpper(g.Severity)), g.Description)
	}
}
