package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ib823/sapforensics/internal/extract/extractors"
	"github.com/ib823/sapforensics/internal/report"
)

// Report views selectable with --view.
const (
	viewSummary    = "summary"
	viewMarkdown   = "markdown"
	viewModule     = "module"
	viewGaps       = "gaps"
	viewGraph      = "graph"
	viewProcessMap = "process-map"
)

// ReportCommand holds configuration for the report command.
type ReportCommand struct {
	input  string
	view   string
	module string
}

// NewReportCommand creates the report command. It renders views of a
// report.json written by a previous run.
func NewReportCommand() *cobra.Command {
	rc := &ReportCommand{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render views of a completed run",
		Long: `Report renders a saved report.json as one of several views:
summary (executive summary), markdown (full document), module (one SAP
module, requires --module), gaps (gap report JSON), graph (dependency graph
JSON), or process-map (HTML to stdout).`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return rc.execute()
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&rc.input, "input", "i", "out/report.json", "path to report.json")
	flags.StringVar(&rc.view, "view", viewSummary, "view: summary, markdown, module, gaps, graph, process-map")
	flags.StringVarP(&rc.module, "module", "m", "", "SAP module for the module view")

	return cmd
}

func (rc *ReportCommand) execute() error {
	data, err := os.ReadFile(rc.input)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	forensic, err := report.Load(data, extractors.NewDefaultRegistry().All())
	if err != nil {
		return err
	}

	switch rc.view {
	case viewSummary:
		fmt.Fprint(os.Stdout, forensic.ToExecutiveSummary())

		return nil
	case viewMarkdown:
		fmt.Fprint(os.Stdout, forensic.ToMarkdown())

		return nil
	case viewModule:
		view, moduleErr := forensic.ToModuleReport(rc.module)
		if moduleErr != nil {
			return moduleErr
		}

		return printJSON(view)
	case viewGaps:
		return printJSON(forensic.ToGapReport())
	case viewGraph:
		return printJSON(forensic.ToDependencyGraph())
	case viewProcessMap:
		return forensic.RenderProcessMap(os.Stdout)
	default:
		return fmt.Errorf("unknown view %q", rc.view)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}

	fmt.Fprintln(os.Stdout, string(data))

	return nil
}
