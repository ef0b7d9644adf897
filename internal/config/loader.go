package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/mining"
	"github.com/ib823/sapforensics/internal/orchestrator"
)

// configName is the config file name without extension.
const configName = ".sapforensics"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for sapforensics settings.
const envPrefix = "SAPFORENSICS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Defaults applied before file and environment overrides.
const (
	DefaultMode       = string(extract.ModeOffline)
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultOutputDir  = "out"
	DefaultFixtureDir = "fixtures"
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("extraction.mode", DefaultMode)
	viperCfg.SetDefault("extraction.fixture_dir", DefaultFixtureDir)
	viperCfg.SetDefault("extraction.module", "")
	viperCfg.SetDefault("extraction.max_rows", 0)

	viperCfg.SetDefault("pipeline.concurrency", orchestrator.DefaultConcurrency)

	viperCfg.SetDefault("mining.processes", []string{})
	viperCfg.SetDefault("mining.mapping_files", []string{})
	viperCfg.SetDefault("mining.timezone", "")
	viperCfg.SetDefault("mining.dependency_threshold", mining.DefaultDependencyThreshold)

	viperCfg.SetDefault("checkpoint.enabled", false)
	viperCfg.SetDefault("checkpoint.dir", "")
	viperCfg.SetDefault("checkpoint.resume", false)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("output.dir", DefaultOutputDir)
	viperCfg.SetDefault("output.markdown", false)
	viperCfg.SetDefault("output.process_map", false)
}
