package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matsen/r2t2/internal/discover"
	"github.com/matsen/r2t2/internal/docstring"
	"github.com/matsen/r2t2/internal/reference"
	"github.com/matsen/r2t2/internal/storage"
	"github.com/spf13/cobra"
)

var (
	scanJobs   int
	scanDryRun bool
	scanIndex  bool
)

func init() {
	scanCmd.Flags().IntVarP(&scanJobs, "jobs", "j", 0, "Files to scan in parallel (default from config)")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Scan without writing the bibliography")
	scanCmd.Flags().BoolVar(&scanIndex, "index", false, "Rebuild the SQLite index after writing")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Collect docstring references from Python sources",
	Long: `Scan Python files for DOIs cited in function docstrings and merge them
into the bibliography.

Directories are searched recursively for *.py files. Explicit files are
scanned as given; a file that cannot be read fails the whole scan. Entries
already in the bibliography are kept as they are.

Examples:
  r2t2 scan src/
  r2t2 scan --jobs 8 src/ tests/
  r2t2 scan --dry-run --human pkg/module.py`,
	RunE: runScan,
}

// ScanResult is the response for the scan command.
type ScanResult struct {
	Status string `json:"status"`
	Files  int    `json:"files"`
	Added  int    `json:"added"`
	Total  int    `json:"total"`
	Biblio string `json:"biblio,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	jobs := scanJobs
	if jobs <= 0 {
		jobs = cfg.Jobs
	}

	biblio := mustLoadBiblio()
	result, err := scanInto(cmd.Context(), args, biblio, jobs)
	if err != nil {
		var fileErr *docstring.FileError
		if errors.As(err, &fileErr) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "scanning: %v", err)
	}

	if scanDryRun {
		result.Status = "dry-run"
	} else {
		if err := storage.Save(cfg.BiblioPath, biblio); err != nil {
			exitWithError(ExitError, "saving biblio: %v", err)
		}
		result.Biblio = cfg.BiblioPath

		if scanIndex {
			db := mustOpenDatabase()
			defer db.Close()
			if _, err := db.Rebuild(biblio.Entries()); err != nil {
				exitWithError(ExitError, "rebuilding index: %v", err)
			}
		}
	}

	if humanOutput {
		outputHuman("Scanned %d files: %d new entries, %d total\n", result.Files, result.Added, result.Total)
		if result.Biblio != "" {
			outputHuman("Bibliography written to %s\n", result.Biblio)
		}
		return nil
	}
	return outputJSON(result)
}

// scanInto discovers the source files under paths and merges their docstring
// references into biblio.
func scanInto(ctx context.Context, paths []string, biblio *reference.Biblio, jobs int) (ScanResult, error) {
	files, err := discover.Files(paths, discover.Options{
		ExcludeDirs:  cfg.Exclude.Dirs,
		ExcludeGlobs: cfg.Exclude.FilesGlob,
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("discovering files: %w", err)
	}
	slog.Debug("discovered source files", "count", len(files))

	before := biblio.Len()
	if jobs > 1 {
		err = docstring.ParseAndAddDocstringReferencesFromFilesConcurrently(ctx, files, biblio, jobs)
	} else {
		err = docstring.ParseAndAddDocstringReferencesFromFiles(files, biblio)
	}
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{
		Status: "scanned",
		Files:  len(files),
		Added:  biblio.Len() - before,
		Total:  biblio.Len(),
	}
	slog.Info("scan complete", "files", result.Files, "added", result.Added, "total", result.Total)
	return result, nil
}
