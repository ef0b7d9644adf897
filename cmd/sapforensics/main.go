// Package main provides the entry point for the sapforensics CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ib823/sapforensics/cmd/sapforensics/commands"
	"github.com/ib823/sapforensics/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sapforensics",
		Short: "SAP Forensics - evidence-based ERP process reconstruction",
		Long: `sapforensics reconstructs the business processes of an SAP system from
its own evidence: configuration tables, change documents, usage statistics,
batch schedules, and workflow logs.

Commands:
  run         Run the full extraction and analysis pipeline
  report      Render views of a completed run
  models      List the built-in reference process models
  extractors  List the registered extractors`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewModelsCommand())
	rootCmd.AddCommand(commands.NewExtractorsCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "sapforensics %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
