package main

import (
	"io"
	"os"

	"github.com/matsen/r2t2/internal/config"
	"github.com/matsen/r2t2/internal/export"
	"github.com/spf13/cobra"
)

var (
	reportFormat string
	reportOutput string
)

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "", "Report format: json, markdown, csv, text, bibtex (default from config)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the bibliography",
	Long: `Render the bibliography in one of the supported formats.

Examples:
  r2t2 report
  r2t2 report --format markdown -o REFERENCES.md
  r2t2 report --format bibtex > refs.bib`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	format := reportFormat
	if format == "" {
		format = cfg.Format
	}
	if err := config.ValidateFormat(format); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	biblio := mustLoadBiblio()

	var w io.Writer = os.Stdout
	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			exitWithError(ExitError, "creating report file: %v", err)
		}
		defer f.Close()
		w = f
	}

	if err := export.Write(w, format, biblio.Entries()); err != nil {
		exitWithError(ExitError, "writing report: %v", err)
	}
	return nil
}
