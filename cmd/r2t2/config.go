package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/matsen/r2t2/internal/config"
	"github.com/spf13/cobra"
)

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after applying the config file, .env and
R2T2_* environment variables.

Config file: $XDG_CONFIG_HOME/r2t2/config.yml (or --config)

Keys:
  biblio_path         Bibliography JSONL file
  format              Default report format (json, markdown, csv, text, bibtex)
  jobs                Files scanned in parallel
  exclude.dirs        Directory names skipped during discovery
  exclude.files_glob  File patterns skipped during discovery`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	ConfigFile string   `json:"config_file"`
	BiblioPath string   `json:"biblio_path"`
	IndexPath  string   `json:"index_path"`
	Format     string   `json:"format"`
	Jobs       int      `json:"jobs"`
	Exclude    []string `json:"exclude_dirs"`
	FilesGlob  []string `json:"exclude_files_glob"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.Path()
	}

	if humanOutput {
		fmt.Printf("config file:  %s\n", path)
		fmt.Printf("biblio_path:  %s\n", cfg.BiblioPath)
		fmt.Printf("index_path:   %s\n", cfg.IndexPath())
		fmt.Printf("format:       %s\n", cfg.Format)
		fmt.Printf("jobs:         %d\n", cfg.Jobs)
		fmt.Printf("exclude dirs: %s\n", strings.Join(cfg.Exclude.Dirs, ", "))
		fmt.Printf("exclude glob: %s\n", strings.Join(cfg.Exclude.FilesGlob, ", "))
		return nil
	}

	return outputJSON(ConfigResponse{
		ConfigFile: path,
		BiblioPath: cfg.BiblioPath,
		IndexPath:  cfg.IndexPath(),
		Format:     cfg.Format,
		Jobs:       cfg.Jobs,
		Exclude:    cfg.Exclude.Dirs,
		FilesGlob:  cfg.Exclude.FilesGlob,
	})
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Long: `Write the effective configuration (defaults, config file, .env and
R2T2_* overrides) to the config file so it can be edited by hand.

An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// ConfigInitResponse is the response for the config init command.
type ConfigInitResponse struct {
	Status     string `json:"status"`
	ConfigFile string `json:"config_file"`
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.Path()
	}
	if path == "" {
		exitWithError(ExitConfigError, "cannot determine config file location")
	}

	if err := writeConfig(path, cfg, configInitForce); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if humanOutput {
		outputHuman("Wrote configuration to %s\n", path)
		return nil
	}
	return outputJSON(ConfigInitResponse{Status: "written", ConfigFile: path})
}

// writeConfig saves c to path, refusing to replace an existing file unless force is set.
func writeConfig(path string, c *config.Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking config file: %w", err)
		}
	}
	return c.Save(path)
}
