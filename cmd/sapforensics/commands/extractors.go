package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ib823/sapforensics/internal/extract/extractors"
)

// NewExtractorsCommand creates the extractors command listing every
// registered extractor with its module, category, and expected tables.
func NewExtractorsCommand() *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "extractors",
		Short: "List the registered extractors",
		Run: func(_ *cobra.Command, _ []string) {
			registry := extractors.NewDefaultRegistry()

			tbl := table.NewWriter()
			tbl.SetOutputMirror(os.Stdout)
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"ID", "Name", "Module", "Category", "Tables"})

			for _, desc := range registry.ByModule(module) {
				ex, err := registry.New(desc.ID)
				if err != nil {
					continue
				}

				tbl.AppendRow(table.Row{
					desc.ID, desc.Name, desc.Module, desc.Category, len(ex.ExpectedTables()),
				})
			}

			tbl.Render()
		},
	}

	cmd.Flags().StringVarP(&module, "module", "m", "", "filter by SAP module")

	return cmd
}
