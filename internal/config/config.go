// Package config resolves checker settings from defaults, an optional YAML
// file, the environment and command-line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-test configuration file.
const FileName = "diagcheck.yaml"

// Environment variables consulted by ApplyEnv and LearnFromEnv.
const (
	// LearnEnvVar selects learn mode when set to exactly "true".
	LearnEnvVar = "CODEQL_INTEGRATION_TEST_LEARN"

	// ToolEnvVar overrides the analysis tool binary.
	ToolEnvVar = "DIAGCHECK_TOOL"
)

// Defaults.
const (
	DefaultTool        = "codeql"
	DefaultDatabase    = "db"
	DefaultPlaceholder = "<test-root-directory>"
)

// Config holds everything a check needs besides the test directory.
type Config struct {
	// Tool is the analysis tool binary (name on PATH or a path).
	Tool string `yaml:"tool"`

	// Database is the database directory passed to the tool.
	// Relative paths in a config file are resolved against the file's directory.
	Database string `yaml:"database"`

	// Placeholder replaces the absolute test directory in tool output.
	Placeholder string `yaml:"placeholder"`

	// ExcludeSourcePrefixes drops entries whose source.id has one of these prefixes.
	ExcludeSourcePrefixes []string `yaml:"exclude_source_prefixes"`

	// VolatileFields are removed from every entry before comparison.
	VolatileFields []string `yaml:"volatile_fields"`

	// Timeout bounds the tool invocation. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`

	// History is an optional SQLite database recording every check.
	// Relative paths in a config file are resolved against the file's directory.
	History string `yaml:"history,omitempty"`

	// Source is the config file the values came from, empty for defaults.
	Source string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tool:                  DefaultTool,
		Database:              DefaultDatabase,
		Placeholder:           DefaultPlaceholder,
		ExcludeSourcePrefixes: []string{"cli/"},
		VolatileFields:        []string{"timestamp"},
	}
}

// Load reads a YAML config file on top of the defaults.
// Unknown keys are rejected so typos surface immediately. Keys absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	if file.Tool != "" {
		cfg.Tool = file.Tool
	}
	if file.Database != "" {
		cfg.Database = resolve(base, file.Database)
	}
	if file.Placeholder != "" {
		cfg.Placeholder = file.Placeholder
	}
	if file.ExcludeSourcePrefixes != nil {
		cfg.ExcludeSourcePrefixes = file.ExcludeSourcePrefixes
	}
	if file.VolatileFields != nil {
		cfg.VolatileFields = file.VolatileFields
	}
	if file.Timeout != 0 {
		cfg.Timeout = file.Timeout
	}
	if file.History != "" {
		cfg.History = resolve(base, file.History)
	}
	cfg.Source = path

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads explicitPath if given, otherwise <testDir>/diagcheck.yaml if
// it exists, otherwise the defaults.
func Resolve(testDir, explicitPath string) (Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	candidate := filepath.Join(testDir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		return Load(candidate)
	} else if !os.IsNotExist(err) {
		return Default(), fmt.Errorf("failed to stat config file: %w", err)
	}
	return Default(), nil
}

// ApplyEnv applies environment overrides.
func ApplyEnv(cfg *Config) {
	if tool := os.Getenv(ToolEnvVar); tool != "" {
		cfg.Tool = tool
	}
}

// LearnFromEnv reports whether learn mode was requested through the environment.
func LearnFromEnv() bool {
	return os.Getenv(LearnEnvVar) == "true"
}

// DatabasePath returns the database directory to export. Without a config
// file the default "db" is relative to the working directory, not the test
// directory; paths from a config file were already resolved against the
// file's directory.
func (c Config) DatabasePath() string {
	return c.Database
}

// Validate checks the settings a check cannot run without.
func (c Config) Validate() error {
	if c.Tool == "" {
		return fmt.Errorf("tool is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Placeholder == "" {
		return fmt.Errorf("placeholder must be non-empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	for _, p := range c.ExcludeSourcePrefixes {
		if p == "" {
			return fmt.Errorf("exclude_source_prefixes must not contain an empty prefix")
		}
	}
	return nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
