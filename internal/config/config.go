// Package config defines the sapforensics configuration: extraction mode
// and transport, pipeline knobs, mining selection, checkpointing, logging,
// and output locations.
package config

import (
	"errors"
	"time"

	"github.com/ib823/sapforensics/internal/extract"
)

// Config is the top-level configuration struct for sapforensics.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Mining     MiningConfig     `mapstructure:"mining"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Output     OutputConfig     `mapstructure:"output"`
}

// ExtractionConfig selects the evidence source.
type ExtractionConfig struct {
	// Mode is "live" or "offline".
	Mode string `mapstructure:"mode"`
	// FixtureDir holds the YAML fixtures read in offline mode.
	FixtureDir string `mapstructure:"fixture_dir"`
	// Module restricts phase 3 to one SAP module; empty runs everything.
	Module string `mapstructure:"module"`
	// MaxRows caps single-shot table reads; 0 keeps extractor defaults.
	MaxRows int `mapstructure:"max_rows"`
}

// PipelineConfig holds orchestrator resource knobs.
type PipelineConfig struct {
	// Concurrency bounds in-flight phase-3 extractors.
	Concurrency int `mapstructure:"concurrency"`
}

// MiningConfig selects and parameterises the process-mining phase.
type MiningConfig struct {
	// Processes are the built-in process ids to mine; empty mines all.
	Processes []string `mapstructure:"processes"`
	// MappingFiles are custom process-mapping configs (JSON) mined in
	// addition to the built-ins; a custom mapping overrides the built-in
	// with the same process id.
	MappingFiles []string `mapstructure:"mapping_files"`
	// Timezone is the IANA zone of source-system timestamps.
	Timezone string `mapstructure:"timezone"`
	// DependencyThreshold overrides the heuristic-miner main-flow cut.
	DependencyThreshold float64 `mapstructure:"dependency_threshold"`
}

// CheckpointConfig holds resume-store settings.
type CheckpointConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Resume  bool   `mapstructure:"resume"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
}

// OutputConfig holds report destinations.
type OutputConfig struct {
	// Dir receives the JSON report and optional renderings.
	Dir string `mapstructure:"dir"`
	// Markdown additionally writes the markdown report.
	Markdown bool `mapstructure:"markdown"`
	// ProcessMap additionally writes the HTML process maps.
	ProcessMap bool `mapstructure:"process_map"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidMode indicates the extraction mode is unknown.
	ErrInvalidMode = errors.New("extraction.mode must be live or offline")
	// ErrMissingFixtureDir indicates offline mode without fixtures.
	ErrMissingFixtureDir = errors.New("extraction.fixture_dir is required in offline mode")
	// ErrInvalidConcurrency indicates a non-positive worker bound.
	ErrInvalidConcurrency = errors.New("pipeline.concurrency must be positive")
	// ErrInvalidMaxRows indicates a negative row cap.
	ErrInvalidMaxRows = errors.New("extraction.max_rows must be non-negative")
	// ErrInvalidThreshold indicates the dependency threshold is out of range.
	ErrInvalidThreshold = errors.New("mining.dependency_threshold must be between 0 and 1")
	// ErrInvalidTimezone indicates an unknown IANA zone name.
	ErrInvalidTimezone = errors.New("mining.timezone is not a valid IANA zone")
	// ErrMissingCheckpointDir indicates checkpointing without a directory.
	ErrMissingCheckpointDir = errors.New("checkpoint.dir is required when checkpointing is enabled")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	mode := extract.Mode(c.Extraction.Mode)
	if mode != extract.ModeLive && mode != extract.ModeOffline {
		return ErrInvalidMode
	}

	if mode == extract.ModeOffline && c.Extraction.FixtureDir == "" {
		return ErrMissingFixtureDir
	}

	if c.Extraction.MaxRows < 0 {
		return ErrInvalidMaxRows
	}

	if c.Pipeline.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	if c.Mining.DependencyThreshold < 0 || c.Mining.DependencyThreshold > 1 {
		return ErrInvalidThreshold
	}

	if c.Mining.Timezone != "" {
		_, err := time.LoadLocation(c.Mining.Timezone)
		if err != nil {
			return ErrInvalidTimezone
		}
	}

	if c.Checkpoint.Enabled && c.Checkpoint.Dir == "" {
		return ErrMissingCheckpointDir
	}

	return nil
}

// Location resolves the configured timezone, defaulting to UTC.
// Validate has already established the name parses.
func (c *Config) Location() *time.Location {
	if c.Mining.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(c.Mining.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// Mode returns the extraction mode as its typed form.
func (c *Config) Mode() extract.Mode {
	return extract.Mode(c.Extraction.Mode)
}
