package main

import (
	"fmt"

	"github.com/matsen/r2t2/internal/doi"
	"github.com/matsen/r2t2/internal/export"
	"github.com/matsen/r2t2/internal/reference"
	"github.com/spf13/cobra"
)

var (
	queryDOI    string
	querySource string
	queryKey    string
)

func init() {
	queryCmd.Flags().StringVar(&queryDOI, "doi", "", "Functions citing this DOI (bare or https://doi.org/ form)")
	queryCmd.Flags().StringVar(&querySource, "source", "", "Functions found in this source file")
	queryCmd.Flags().StringVar(&queryKey, "key", "", "The entry for a function site (path:line)")
	queryCmd.MarkFlagsMutuallyExclusive("doi", "source", "key")
	queryCmd.MarkFlagsOneRequired("doi", "source", "key")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the bibliography index",
	Long: `Query the SQLite index built by 'r2t2 rebuild' (or 'r2t2 scan --index').

Examples:
  r2t2 query --doi 10.1234/zenodo.1234567
  r2t2 query --source pkg/model.py --human
  r2t2 query --key pkg/model.py:12`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	db := mustOpenDatabase()
	defer db.Close()

	var entries []reference.Entry
	var err error

	switch {
	case queryDOI != "":
		bare := doi.Strip(queryDOI)
		if !doi.IsValid(bare) {
			exitWithError(ExitError, "invalid DOI: %s", queryDOI)
		}
		entries, err = db.FindByURL(doi.Canonicalize(bare))
	case querySource != "":
		entries, err = db.FindBySource(querySource)
	default:
		var ref *reference.FunctionReference
		ref, err = db.GetByKey(queryKey)
		if ref != nil {
			entries = []reference.Entry{{Key: queryKey, Reference: *ref}}
		}
	}
	if err != nil {
		exitWithError(ExitError, "querying index: %v", err)
	}

	if humanOutput {
		if len(entries) == 0 {
			fmt.Println("No matching entries.")
			return nil
		}
		fmt.Print(export.ToText(entries))
		return nil
	}
	return export.WriteJSON(cmd.OutOrStdout(), entries)
}
