package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ib823/sapforensics/internal/refmodel"
)

// NewModelsCommand creates the models command listing the built-in
// reference process models.
func NewModelsCommand() *cobra.Command {
	var showPath bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the built-in reference process models",
		Run: func(_ *cobra.Command, _ []string) {
			tbl := table.NewWriter()
			tbl.SetOutputMirror(os.Stdout)
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"ID", "Name", "Activities", "Edges", "Starts", "Ends"})

			for _, id := range refmodel.List() {
				model := refmodel.Get(id)
				tbl.AppendRow(table.Row{
					id,
					model.Name,
					len(model.Activities()),
					model.EdgeCount(),
					strings.Join(model.StartActivities(), ", "),
					strings.Join(model.EndActivities(), ", "),
				})
			}

			tbl.Render()

			if showPath {
				fmt.Fprintln(os.Stdout)

				for _, id := range refmodel.List() {
					path := refmodel.Get(id).CriticalPath()
					fmt.Fprintf(os.Stdout, "%s: %s\n", id, strings.Join(path, " → "))
				}
			}
		},
	}

	cmd.Flags().BoolVar(&showPath, "critical-path", false, "also print each model's critical path")

	return cmd
}
