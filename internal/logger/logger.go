package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-lint/internal/config"
)

// LevelEnv overrides the configured log level when set.
const LevelEnv = "SCANIO_LINT_LOG_LEVEL"

// Output is where every logger writes. Stdout carries reports, so logs go to stderr.
var Output io.Writer = os.Stderr

// NewLogger creates a new hclog.Logger instance based on the YAML configuration and the provided name.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            name,
		DisableTime:     config.BoolValue(cfg.Logger.DisableTime, true),
		JSONFormat:      config.BoolValue(cfg.Logger.JSONFormat, false),
		IncludeLocation: config.BoolValue(cfg.Logger.IncludeLocation, false),
		Output:          Output,
		Level:           determineLogLevel(cfg, os.LookupEnv),
	})
}

// determineLogLevel prefers the environment, then the config, then INFO.
func determineLogLevel(cfg *config.Config, lookup func(string) (string, bool)) hclog.Level {
	if v, ok := lookup(LevelEnv); ok && v != "" {
		return parseLogLevel(v)
	}
	return parseLogLevel(cfg.Logger.Level)
}

func parseLogLevel(levelStr string) hclog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "", "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		hclog.New(&hclog.LoggerOptions{
			Level:       hclog.Warn,
			DisableTime: true,
			Output:      Output,
		}).Warn("unrecognized log level, defaulting to INFO", "provided_level", levelStr)
		return hclog.Info
	}
}
