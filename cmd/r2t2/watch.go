package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matsen/r2t2/internal/storage"
	"github.com/matsen/r2t2/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchDebounceMs int
	watchInitial    bool
)

func init() {
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce", 500, "Milliseconds to wait for changes to settle")
	watchCmd.Flags().BoolVar(&watchInitial, "initial-scan", true, "Scan the directories once before watching")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Rescan sources into the bibliography as they change",
	Long: `Watch directories and merge docstring references from Python files as
they are written. New function sites are added and the bibliography is saved;
existing entries are never replaced. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	biblio := mustLoadBiblio()

	if watchInitial {
		if _, err := scanInto(ctx, args, biblio, cfg.Jobs); err != nil {
			exitWithError(ExitDataError, "initial scan: %v", err)
		}
		if err := storage.Save(cfg.BiblioPath, biblio); err != nil {
			exitWithError(ExitError, "saving biblio: %v", err)
		}
	}

	w, err := watch.New(args, biblio, cfg.BiblioPath,
		watch.WithDebounceDelay(time.Duration(watchDebounceMs)*time.Millisecond),
		watch.WithExcludeDirs(cfg.Exclude.Dirs),
		watch.WithExcludeGlobs(cfg.Exclude.FilesGlob),
		watch.WithOnScanDone(func(files []string, added int, d time.Duration) {
			slog.Info("rescanned", "files", len(files), "added", added, "total", biblio.Len(), "took", d.Round(time.Millisecond))
		}),
		watch.WithOnError(func(err error) {
			slog.Warn("watch error", "err", err)
		}),
	)
	if err != nil {
		exitWithError(ExitError, "starting watcher: %v", err)
	}

	w.Start()
	slog.Info("watching for changes", "dirs", args, "biblio", cfg.BiblioPath)

	<-ctx.Done()
	if err := w.Stop(); err != nil {
		return err
	}
	slog.Info("stopped watching")
	return nil
}
