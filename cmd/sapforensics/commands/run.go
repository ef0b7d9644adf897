// Package commands implements CLI command handlers for sapforensics.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ib823/sapforensics/internal/config"
	"github.com/ib823/sapforensics/internal/eventlog"
	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/extract/extractors"
	"github.com/ib823/sapforensics/internal/mining"
	"github.com/ib823/sapforensics/internal/observability"
	"github.com/ib823/sapforensics/internal/orchestrator"
	"github.com/ib823/sapforensics/internal/report"
)

// ErrLiveTransportUnavailable is returned when live mode is requested but no
// transport is linked into the binary.
var ErrLiveTransportUnavailable = errors.New("live mode requires an RFC or OData transport; this build supports offline fixtures only")

// Output file names written under the output directory.
const (
	reportFileName     = "report.json"
	markdownFileName   = "report.md"
	processMapFileName = "process_map.html"
	summaryFileName    = "summary.md"
)

const outputFileMode = 0o644

// RunCommand holds configuration for the run command.
type RunCommand struct {
	configPath  string
	mode        string
	fixtureDir  string
	module      string
	concurrency int
	processes   []string
	mappings    []string
	outputDir   string
	markdown    bool
	processMap  bool
	checkpoint  string
	resume      bool
	logLevel    string
	logFormat   string
	quiet       bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full extraction and analysis pipeline",
		Long: `Run executes every pipeline phase: system identification, dictionary
load, module extraction, process mining, interpretation, gap analysis, and
report assembly. Interrupting the run (Ctrl-C) stops dispatch and writes the
partial result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.execute(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&rc.configPath, "config", "c", "", "config file path")
	flags.StringVar(&rc.mode, "mode", "", "extraction mode: live or offline")
	flags.StringVar(&rc.fixtureDir, "fixtures", "", "fixture directory for offline mode")
	flags.StringVarP(&rc.module, "module", "m", "", "restrict extraction to one SAP module")
	flags.IntVar(&rc.concurrency, "concurrency", 0, "parallel extractor bound")
	flags.StringSliceVarP(&rc.processes, "processes", "p", nil, "business processes to mine (default: all)")
	flags.StringSliceVar(&rc.mappings, "mapping", nil, "custom process-mapping config files (JSON)")
	flags.StringVarP(&rc.outputDir, "out", "o", "", "output directory")
	flags.BoolVar(&rc.markdown, "markdown", false, "also write the markdown report")
	flags.BoolVar(&rc.processMap, "process-map", false, "also write the HTML process maps")
	flags.StringVar(&rc.checkpoint, "checkpoint-dir", "", "enable checkpointing into this directory")
	flags.BoolVar(&rc.resume, "resume", false, "serve completed extractors from the checkpoint")
	flags.StringVar(&rc.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&rc.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVarP(&rc.quiet, "quiet", "q", false, "suppress the terminal digest")

	return cmd
}

func (rc *RunCommand) execute(parent context.Context) error {
	cfg, err := rc.loadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(os.Stderr,
		observability.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, cfg.Extraction.Mode)

	ec, err := buildContext(cfg, logger)
	if err != nil {
		return err
	}

	registry := extractors.NewDefaultRegistry()

	orch, err := rc.buildOrchestrator(cfg, registry, ec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, runErr := orch.Run(ctx)
	if runErr != nil && !errors.Is(runErr, orchestrator.ErrCancelled) {
		return runErr
	}

	forensic := report.New(run, registry.All())

	err = rc.writeOutputs(cfg, forensic)
	if err != nil {
		return err
	}

	if !rc.quiet {
		forensic.RenderTerminal(os.Stdout)
	}

	return runErr
}

// loadConfig loads the file/env configuration and applies flag overrides.
// Flags win over both; the merged result is re-validated.
func (rc *RunCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.mode != "" {
		cfg.Extraction.Mode = rc.mode
	}

	if rc.fixtureDir != "" {
		cfg.Extraction.FixtureDir = rc.fixtureDir
	}

	if rc.module != "" {
		cfg.Extraction.Module = rc.module
	}

	if rc.concurrency > 0 {
		cfg.Pipeline.Concurrency = rc.concurrency
	}

	if rc.processes != nil {
		cfg.Mining.Processes = rc.processes
	}

	if rc.mappings != nil {
		cfg.Mining.MappingFiles = rc.mappings
	}

	if rc.outputDir != "" {
		cfg.Output.Dir = rc.outputDir
	}

	if rc.markdown {
		cfg.Output.Markdown = true
	}

	if rc.processMap {
		cfg.Output.ProcessMap = true
	}

	if rc.checkpoint != "" {
		cfg.Checkpoint.Enabled = true
		cfg.Checkpoint.Dir = rc.checkpoint
	}

	if rc.resume {
		cfg.Checkpoint.Resume = true
	}

	if rc.logLevel != "" {
		cfg.Logging.Level = rc.logLevel
	}

	if rc.logFormat != "" {
		cfg.Logging.Format = rc.logFormat
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// buildContext assembles the extraction context for the configured mode.
// Offline mode loads the YAML fixtures; live mode needs a transport this
// build does not link.
func buildContext(cfg *config.Config, logger *slog.Logger) (*extract.Context, error) {
	if cfg.Mode() == extract.ModeLive {
		return nil, ErrLiveTransportUnavailable
	}

	fixtures, err := extract.LoadFixtureDir(cfg.Extraction.FixtureDir)
	if err != nil {
		return nil, err
	}

	return extract.NewContext(extract.ModeOffline, nil, fixtures, logger), nil
}

func (rc *RunCommand) buildOrchestrator(cfg *config.Config, registry *extract.Registry, ec *extract.Context) (*orchestrator.Orchestrator, error) {
	opts := []orchestrator.Option{
		orchestrator.WithConcurrency(cfg.Pipeline.Concurrency),
		orchestrator.WithModule(cfg.Extraction.Module),
		orchestrator.WithMiningOptions(
			mining.WithLocation(cfg.Location()),
			mining.WithDependencyThreshold(cfg.Mining.DependencyThreshold),
		),
	}

	if len(cfg.Mining.Processes) > 0 {
		opts = append(opts, orchestrator.WithProcesses(cfg.Mining.Processes))
	}

	if len(cfg.Mining.MappingFiles) > 0 {
		mappings, err := loadMappings(cfg.Mining.MappingFiles)
		if err != nil {
			return nil, err
		}

		opts = append(opts, orchestrator.WithMappings(mappings...))
	}

	if cfg.Checkpoint.Enabled {
		store, err := orchestrator.NewFileStore(cfg.Checkpoint.Dir)
		if err != nil {
			return nil, err
		}

		if !cfg.Checkpoint.Resume {
			err = store.Reset()
			if err != nil {
				return nil, err
			}
		}

		opts = append(opts, orchestrator.WithCheckpoint(store))
	}

	return orchestrator.New(registry, ec, opts...), nil
}

// loadMappings reads and validates custom process-mapping config files.
func loadMappings(paths []string) ([]*eventlog.ProcessMapping, error) {
	mappings := make([]*eventlog.ProcessMapping, 0, len(paths))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read mapping %s: %w", path, err)
		}

		mapping, err := eventlog.ParseMapping(data)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", path, err)
		}

		mappings = append(mappings, mapping)
	}

	return mappings, nil
}

func (rc *RunCommand) writeOutputs(cfg *config.Config, forensic *report.ForensicReport) error {
	err := os.MkdirAll(cfg.Output.Dir, 0o755)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	record, err := forensic.ToSerializable()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	err = os.WriteFile(filepath.Join(cfg.Output.Dir, reportFileName), data, outputFileMode)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	err = os.WriteFile(filepath.Join(cfg.Output.Dir, summaryFileName),
		[]byte(forensic.ToExecutiveSummary()), outputFileMode)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if cfg.Output.Markdown {
		err = os.WriteFile(filepath.Join(cfg.Output.Dir, markdownFileName),
			[]byte(forensic.ToMarkdown()), outputFileMode)
		if err != nil {
			return fmt.Errorf("write markdown: %w", err)
		}
	}

	if cfg.Output.ProcessMap {
		file, createErr := os.Create(filepath.Join(cfg.Output.Dir, processMapFileName))
		if createErr != nil {
			return fmt.Errorf("create process map: %w", createErr)
		}

		renderErr := forensic.RenderProcessMap(file)

		closeErr := file.Close()
		if renderErr != nil {
			return renderErr
		}

		if closeErr != nil {
			return fmt.Errorf("close process map: %w", closeErr)
		}
	}

	return nil
}
