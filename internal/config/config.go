// Package config handles r2t2 configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/r2t2/config.yml.
type Config struct {
	BiblioPath string        `yaml:"biblio_path,omitempty"` // JSONL bibliography file
	Format     string        `yaml:"format,omitempty"`      // Default report format
	Jobs       int           `yaml:"jobs,omitempty"`        // Files scanned in parallel; 1 is sequential
	Exclude    ExcludeConfig `yaml:"exclude"`
}

// ExcludeConfig defines paths skipped during file discovery.
type ExcludeConfig struct {
	Dirs      []string `yaml:"dirs"`
	FilesGlob []string `yaml:"files_glob"`
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "r2t2"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DefaultBiblioPath is used when no biblio_path is configured.
	DefaultBiblioPath = "r2t2-biblio.jsonl"
)

// Environment variables that override file values.
const (
	EnvBiblio = "R2T2_BIBLIO"
	EnvFormat = "R2T2_FORMAT"
	EnvJobs   = "R2T2_JOBS"
)

// ValidFormats lists the supported report formats.
var ValidFormats = []string{"json", "markdown", "csv", "text", "bibtex"}

// ErrInvalidFormat is returned for an unsupported report format.
var ErrInvalidFormat = errors.New("invalid format")

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		BiblioPath: DefaultBiblioPath,
		Format:     "json",
		Jobs:       1,
		Exclude: ExcludeConfig{
			Dirs:      []string{"venv", ".venv", "__pycache__", "node_modules", "build", "dist", ".tox"},
			FilesGlob: []string{},
		},
	}
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/r2t2/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load reads configuration from path, or from Path() when path is empty.
// A missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// No config file; defaults apply.
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with R2T2_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBiblio); v != "" {
		c.BiblioPath = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		c.Format = v
	}
	if v := os.Getenv(EnvJobs); v != "" {
		jobs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvJobs, err)
		}
		c.Jobs = jobs
	}
	return nil
}

// fillDefaults restores defaults for fields a config file left empty.
func (c *Config) fillDefaults() {
	d := Default()
	if c.BiblioPath == "" {
		c.BiblioPath = d.BiblioPath
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Jobs <= 0 {
		c.Jobs = d.Jobs
	}
	c.BiblioPath = ExpandPath(c.BiblioPath)
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := ValidateFormat(c.Format); err != nil {
		return err
	}
	for _, pattern := range c.Exclude.FilesGlob {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid exclude glob %q: %w", pattern, err)
		}
	}
	return nil
}

// IndexPath returns the SQLite index path kept next to the bibliography.
func (c *Config) IndexPath() string {
	ext := filepath.Ext(c.BiblioPath)
	return strings.TrimSuffix(c.BiblioPath, ext) + ".db"
}

// Save writes configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ValidateFormat checks that the report format is supported.
func ValidateFormat(format string) error {
	if slices.Contains(ValidFormats, format) {
		return nil
	}
	return fmt.Errorf("%w: %s (valid: %v)", ErrInvalidFormat, format, ValidFormats)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
