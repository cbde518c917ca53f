package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = "spikefang"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for spikefang settings.
const envPrefix = "SPIKEFANG"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

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

// Decode parses raw YAML into a Config with defaults applied. Unlike
// LoadConfig it does not consult files or the environment and leaves
// validation to the caller.
func Decode(data []byte) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)

	readErr := viperCfg.ReadConfig(bytes.NewReader(data))
	if readErr != nil {
		return nil, fmt.Errorf("read config: %w", readErr)
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("detection.max_anoms", DefaultDetectionMaxAnoms)
	viperCfg.SetDefault("detection.alpha", DefaultDetectionAlpha)
	viperCfg.SetDefault("detection.direction", DefaultDetectionDirection)
	viperCfg.SetDefault("detection.period", DefaultDetectionPeriod)
	viperCfg.SetDefault("detection.longterm_period", DefaultDetectionLongtermPeriod)
	viperCfg.SetDefault("detection.only_last", DefaultDetectionOnlyLast)
	viperCfg.SetDefault("detection.threshold", DefaultDetectionThreshold)
	viperCfg.SetDefault("detection.expected", DefaultDetectionExpected)

	viperCfg.SetDefault("breakout.enabled", DefaultBreakoutEnabled)
	viperCfg.SetDefault("breakout.method", DefaultBreakoutMethod)
	viperCfg.SetDefault("breakout.min_size", DefaultBreakoutMinSize)
	viperCfg.SetDefault("breakout.beta", DefaultBreakoutBeta)
	viperCfg.SetDefault("breakout.degree", DefaultBreakoutDegree)

	viperCfg.SetDefault("input.max_bytes", DefaultInputMaxBytes)
	viperCfg.SetDefault("input.duckdb", DefaultInputDuckDB)
	viperCfg.SetDefault("input.query", DefaultInputQuery)

	viperCfg.SetDefault("reports.dir", DefaultReportsDir)
	viperCfg.SetDefault("reports.compress", DefaultReportsCompress)
	viperCfg.SetDefault("reports.format", DefaultReportsFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultTelemetryOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_headers", DefaultTelemetryOTLPHeaders)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultTelemetryOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
	viperCfg.SetDefault("telemetry.debug_trace", DefaultTelemetryDebugTrace)
	viperCfg.SetDefault("telemetry.trace_verbose", DefaultTelemetryTraceVerbose)
	viperCfg.SetDefault("telemetry.log_level", DefaultTelemetryLogLevel)
	viperCfg.SetDefault("telemetry.log_json", DefaultTelemetryLogJSON)
	viperCfg.SetDefault("telemetry.diag_addr", DefaultTelemetryDiagAddr)
}
