package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"
	"k8s.io/utils/pointer"
)

// Default values applied when the YAML config leaves a directive empty.
const (
	DefaultLinterName     = "SwiftLint"
	DefaultLinterBinary   = "swiftlint"
	DefaultLinterLanguage = "Swift"
	DefaultRuleConfigFile = ".swiftlint.yml"
	DefaultInvocation     = "script-input"
	DefaultReportMode     = "summary"
	DefaultLinterTimeout  = 10 * time.Minute
	DefaultGitTimeout     = 2 * time.Minute
)

// Config is the global scanio-lint configuration.
type Config struct {
	Logger     Logger     `yaml:"logger"`
	Linter     Linter     `yaml:"linter"`
	Report     Report     `yaml:"report"`
	HTTPClient HTTPClient `yaml:"http_client"`
	GitClient  GitClient  `yaml:"git_client"`
	GitHub     GitHub     `yaml:"github"`
	GitLab     GitLab     `yaml:"gitlab"`
}

type Logger struct {
	Level           string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error TRACE DEBUG INFO WARN ERROR"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// Linter describes the external tool and how it is invoked.
type Linter struct {
	Name           string        `yaml:"name"`
	Binary         string        `yaml:"binary"`
	Language       string        `yaml:"language"`
	Extensions     []string      `yaml:"extensions" validate:"dive,startswith=."`
	ConfigFile     string        `yaml:"config_file"`
	Directory      string        `yaml:"directory"`
	Invocation     string        `yaml:"invocation" validate:"omitempty,oneof=script-input per-file all"`
	AdditionalArgs []string      `yaml:"additional_args"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Report holds the filtering and reporting policy.
type Report struct {
	Mode          string   `yaml:"mode" validate:"omitempty,oneof=summary inline"`
	MaxViolations *int     `yaml:"max_violations" validate:"omitempty,gte=0"`
	Strict        bool     `yaml:"strict"`
	FailOnError   bool     `yaml:"fail_on_error"`
	FilterDiff    bool     `yaml:"filter_diff"`
	NoComment     bool     `yaml:"no_comment"`
	Sinks         []string `yaml:"sinks" validate:"dive,oneof=console github gitlab sarif webhook"`
	SarifOutput   string   `yaml:"sarif_output"`
	WebhookURL    string   `yaml:"webhook_url" validate:"omitempty,url"`
}

type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GitClient configures access to the repository the change set is computed from.
type GitClient struct {
	Timeout time.Duration `yaml:"timeout"`
	Token   string        `yaml:"token"`
}

type GitHub struct {
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Token   string `yaml:"token"`
}

type GitLab struct {
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Token   string `yaml:"token"`
}

// LoadConfig reads the YAML configuration from configPath. An empty path yields the
// defaults. Environment overrides are applied after the file is decoded.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		if err := LoadYAML(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
		}
	}

	applyEnv(cfg, os.LookupEnv)
	applyDefaults(cfg)
	return cfg, nil
}

// ValidateConfigPath checks that path points at a file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

func applyDefaults(cfg *Config) {
	cfg.Linter.Name = SetThen(cfg.Linter.Name, DefaultLinterName)
	cfg.Linter.Binary = SetThen(cfg.Linter.Binary, DefaultLinterBinary)
	cfg.Linter.Invocation = SetThen(cfg.Linter.Invocation, DefaultInvocation)
	cfg.Linter.Timeout = SetThen(cfg.Linter.Timeout, DefaultLinterTimeout)
	if len(cfg.Linter.Extensions) == 0 {
		cfg.Linter.Language = SetThen(cfg.Linter.Language, DefaultLinterLanguage)
	}

	cfg.Report.Mode = SetThen(cfg.Report.Mode, DefaultReportMode)
	if len(cfg.Report.Sinks) == 0 {
		cfg.Report.Sinks = []string{"console"}
	}

	cfg.GitClient.Timeout = SetThen(cfg.GitClient.Timeout, DefaultGitTimeout)
}

// applyEnv overrides config values from SCANIO_LINT_* and well-known CI variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("SCANIO_LINT_BINARY"); ok && v != "" {
		cfg.Linter.Binary = v
	}
	if v, ok := lookup("SCANIO_LINT_MAX_VIOLATIONS"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Report.MaxViolations = pointer.Int(n)
		}
	}
	if v, ok := lookup("SCANIO_LINT_STRICT"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Report.Strict = b
		}
	}

	cfg.GitHub.Token = firstEnv(lookup, cfg.GitHub.Token, "SCANIO_LINT_GITHUB_TOKEN", "GITHUB_TOKEN")
	cfg.GitHub.BaseURL = firstEnv(lookup, cfg.GitHub.BaseURL, "GITHUB_API_URL")
	cfg.GitLab.Token = firstEnv(lookup, cfg.GitLab.Token, "SCANIO_LINT_GITLAB_TOKEN", "GITLAB_TOKEN")
	cfg.GitLab.BaseURL = firstEnv(lookup, cfg.GitLab.BaseURL, "CI_API_V4_URL")
	cfg.GitClient.Token = firstEnv(lookup, cfg.GitClient.Token, "SCANIO_LINT_GIT_TOKEN")
}

// firstEnv returns current when it is already set, otherwise the first non-empty variable.
func firstEnv(lookup func(string) (string, bool), current string, names ...string) string {
	if current != "" {
		return current
	}
	for _, name := range names {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
