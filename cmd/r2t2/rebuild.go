package main

import (
	"github.com/matsen/r2t2/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query index from the bibliography",
	Long: `Rebuild the SQLite query index from the JSONL bibliography.

Run this after editing the bibliography by hand or pulling it from git.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResponse is the response for the rebuild command.
type RebuildResponse struct {
	Status string `json:"status"`
	Index  string `json:"index"`
	storage.RebuildResult
	Indexed int `json:"indexed"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	db := mustOpenDatabase()
	defer db.Close()

	result, err := db.RebuildFromJSONL(cfg.BiblioPath)
	if err != nil {
		exitWithError(ExitDataError, "rebuilding index: %v", err)
	}

	indexed, err := db.Count()
	if err != nil {
		exitWithError(ExitError, "counting indexed entries: %v", err)
	}
	if indexed != result.Entries {
		exitWithError(ExitDataError, "index holds %d entries after rebuild, want %d", indexed, result.Entries)
	}

	if humanOutput {
		outputHuman("Rebuilt query index with %d entries and %d references\n", result.Entries, result.References)
		outputHuman("Index %s now holds %d function sites\n", cfg.IndexPath(), indexed)
		return nil
	}
	return outputJSON(RebuildResponse{
		Status:        "rebuilt",
		Index:         cfg.IndexPath(),
		RebuildResult: result,
		Indexed:       indexed,
	})
}
