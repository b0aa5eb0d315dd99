// Package main provides the r2t2 CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/matsen/r2t2/internal/config"
	"github.com/matsen/r2t2/internal/reference"
	"github.com/matsen/r2t2/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	quiet       bool
	cfgFile     string
	biblioFlag  string

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "r2t2",
	Short: "Track the references cited in function docstrings",
	Long: `r2t2 finds DOIs cited in Python function docstrings and collects them
into a bibliography keyed by function location ("path:line").

The bibliography is stored as JSONL and can be indexed into SQLite for
queries. Existing entries are never overwritten: the first scan to record a
function site wins. All commands output JSON by default.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/r2t2/config.yml)")
	rootCmd.PersistentFlags().StringVar(&biblioFlag, "biblio", "", "Bibliography JSONL file (overrides config)")
	rootCmd.Version = Version
}

// setup loads .env and configuration and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	slog.SetDefault(newLogger())

	if err := config.LoadEnv(); err != nil {
		return err
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if biblioFlag != "" {
		loaded.BiblioPath = config.ExpandPath(biblioFlag)
	}
	cfg = loaded

	slog.Debug("configuration loaded", "biblio", cfg.BiblioPath, "jobs", cfg.Jobs)
	return nil
}

// newLogger returns a tint logger writing to stderr so stdout stays parseable.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

// mustLoadBiblio loads the configured bibliography, exits on error.
func mustLoadBiblio() *reference.Biblio {
	biblio, err := storage.Load(cfg.BiblioPath)
	if err != nil {
		exitWithError(ExitDataError, "loading biblio: %v", err)
	}
	return biblio
}

// mustOpenDatabase opens the SQLite index, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase() *storage.DB {
	db, err := storage.OpenDB(cfg.IndexPath())
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}
