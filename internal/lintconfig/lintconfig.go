// Package lintconfig reads the path lists of the linter's own rule configuration file.
package lintconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
	yaml "gopkg.in/yaml.v2"

	"github.com/scan-io-git/scanio-lint/pkg/shared/files"
)

var (
	ErrConfigNotFound   = errors.New("rule config not found")
	ErrConfigUnreadable = errors.New("rule config unreadable")
)

var envToken = regexp.MustCompile(`\$\{([^{}]+)\}`)

// LookupFunc resolves environment variables. os.LookupEnv satisfies it.
type LookupFunc func(string) (string, bool)

// RuleConfig is the subset of the rule configuration that drives file selection.
// Every other key in the file is ignored.
type RuleConfig struct {
	Excluded []string `mapstructure:"excluded"`
	Included []string `mapstructure:"included"`
}

// ExpandEnv replaces ${VAR} tokens with their values. Tokens naming unset variables
// are left as written.
func ExpandEnv(content string, lookup LookupFunc) string {
	return envToken.ReplaceAllStringFunc(content, func(token string) string {
		name := envToken.FindStringSubmatch(token)[1]
		if v, ok := lookup(name); ok {
			return v
		}
		return token
	})
}

// Parse expands environment tokens in data and decodes the excluded/included lists.
// A scalar where a list is expected is accepted as a list of one.
func Parse(data []byte, lookup LookupFunc) (RuleConfig, error) {
	var cfg RuleConfig

	raw := map[string]interface{}{}
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data), lookup)), &raw); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}
	return cfg, nil
}

// Load reads and parses the rule config at path.
func Load(path string, lookup LookupFunc) (RuleConfig, error) {
	if path == "" {
		return RuleConfig{}, ErrConfigNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RuleConfig{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return RuleConfig{}, fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}
	return Parse(data, lookup)
}

// LoadOrEmpty loads the rule config and falls back to an empty one when the file is
// missing or cannot be parsed.
func LoadOrEmpty(path string, lookup LookupFunc, logger hclog.Logger) RuleConfig {
	cfg, err := Load(path, lookup)
	switch {
	case err == nil:
		return cfg
	case errors.Is(err, ErrConfigNotFound):
		if path != "" {
			logger.Debug("rule config not found, using no exclusions", "path", path)
		}
	default:
		logger.Warn("rule config could not be read, using no exclusions", "path", path, "error", err)
	}
	return RuleConfig{}
}

// ResolvePaths joins each configured path with the directory of configPath and keeps
// only the ones that exist.
func ResolvePaths(paths []string, configPath string) []string {
	base := filepath.Dir(configPath)

	var resolved []string
	for _, p := range paths {
		abs, err := files.AbsPath(p, base)
		if err != nil {
			continue
		}
		if files.Exists(abs) {
			resolved = append(resolved, abs)
		}
	}
	return resolved
}
