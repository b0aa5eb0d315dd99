package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matsen/r2t2/internal/config"
)

func TestWriteConfig(t *testing.T) {
	for _, name := range []string{config.EnvBiblio, config.EnvFormat, config.EnvJobs} {
		t.Setenv(name, "")
	}
	path := filepath.Join(t.TempDir(), "r2t2", "config.yml")

	c := config.Default()
	c.Format = "markdown"
	if err := writeConfig(path, c, false); err != nil {
		t.Fatalf("writeConfig() error = %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if loaded.Format != "markdown" {
		t.Errorf("Format = %q, want markdown", loaded.Format)
	}

	c.Format = "csv"
	if err := writeConfig(path, c, false); err == nil {
		t.Error("writeConfig() over existing file without force: expected error")
	}
	loaded, _ = config.Load(path)
	if loaded.Format != "markdown" {
		t.Errorf("Format after refused write = %q, want markdown", loaded.Format)
	}

	if err := writeConfig(path, c, true); err != nil {
		t.Fatalf("writeConfig(force) error = %v", err)
	}
	loaded, _ = config.Load(path)
	if loaded.Format != "csv" {
		t.Errorf("Format after forced write = %q, want csv", loaded.Format)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file missing: %v", err)
	}
}
