// Package engine wires file selection, linting, diff scoping and reporting into one run.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"k8s.io/utils/pointer"

	"github.com/scan-io-git/scanio-lint/internal/changeset"
	"github.com/scan-io-git/scanio-lint/internal/config"
	"github.com/scan-io-git/scanio-lint/internal/difflines"
	"github.com/scan-io-git/scanio-lint/internal/issues"
	"github.com/scan-io-git/scanio-lint/internal/lintconfig"
	"github.com/scan-io-git/scanio-lint/internal/linter"
	"github.com/scan-io-git/scanio-lint/internal/report"
	"github.com/scan-io-git/scanio-lint/internal/selector"
	"github.com/scan-io-git/scanio-lint/pkg/shared/files"
)

// Options is the per-run configuration. It is not modified by Run.
type Options struct {
	ConfigPath    string
	Directory     string
	BinaryPath    string
	ToolName      string
	MaxViolations *int
	Strict        bool
	LintAllFiles  bool
	FilterDiff    bool
	Verbose       bool

	InlineMode     bool
	FailOnError    bool
	NoComment      bool
	AdditionalArgs []string
	Invocation     linter.Strategy
	Extensions     []string
	Language       string
	// Timeout bounds the linter invocations; zero means no limit.
	Timeout time.Duration
}

// Request is one lint run. Files are explicit patterns; when empty the change set
// supplies the candidates.
type Request struct {
	Options   Options
	Files     []string
	Predicate issues.Predicate
}

// RunResult is the outcome of one run.
type RunResult struct {
	issues.Result
	Failed bool
	// Linted lists the files handed to the linter.
	Linted []string
}

// Engine holds the collaborators shared across runs.
type Engine struct {
	Runner   linter.Runner
	Provider changeset.Provider
	Sink     report.Sink
	Logger   hclog.Logger
	// Lookup resolves ${VAR} tokens in the rule config; nil means the process environment.
	Lookup lintconfig.LookupFunc
}

// New returns an engine running the real binary.
func New(provider changeset.Provider, sink report.Sink, logger hclog.Logger) *Engine {
	return &Engine{
		Runner:   &linter.ExecRunner{Logger: logger},
		Provider: provider,
		Sink:     sink,
		Logger:   logger,
	}
}

// OptionsFromConfig maps the app config onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ConfigPath:     cfg.Linter.ConfigFile,
		Directory:      cfg.Linter.Directory,
		BinaryPath:     cfg.Linter.Binary,
		ToolName:       cfg.Linter.Name,
		MaxViolations:  cfg.Report.MaxViolations,
		Strict:         cfg.Report.Strict,
		LintAllFiles:   cfg.Linter.Invocation == string(linter.StrategyAll),
		FilterDiff:     cfg.Report.FilterDiff,
		InlineMode:     cfg.Report.Mode == string(report.ModeInline),
		FailOnError:    cfg.Report.FailOnError,
		NoComment:      cfg.Report.NoComment,
		AdditionalArgs: cfg.Linter.AdditionalArgs,
		Invocation:     linter.Strategy(cfg.Linter.Invocation),
		Extensions:     cfg.Linter.Extensions,
		Language:       cfg.Linter.Language,
		Timeout:        cfg.Linter.Timeout,
	}
}

// Run performs one lint run and reports it to the sink.
func (e *Engine) Run(ctx context.Context, req Request) (RunResult, error) {
	opts := req.Options
	logger := e.logger()

	binary, err := linter.Locate(config.SetThen(opts.BinaryPath, config.DefaultLinterBinary))
	if err != nil {
		return RunResult{}, err
	}

	dir, err := workDir(opts.Directory)
	if err != nil {
		return RunResult{}, err
	}

	configPath, err := resolveConfigPath(opts.ConfigPath, dir)
	if err != nil {
		return RunResult{}, err
	}

	var rules lintconfig.RuleConfig
	if configPath != "" {
		rules = lintconfig.LoadOrEmpty(configPath, e.lookup(), logger)
		rules.Excluded = lintconfig.ResolvePaths(rules.Excluded, configPath)
		rules.Included = lintconfig.ResolvePaths(rules.Included, configPath)
	}

	selected, err := selector.Select(ctx, selector.Options{
		Patterns:   req.Files,
		Directory:  dir,
		Extensions: opts.Extensions,
		Language:   opts.Language,
		Excluded:   rules.Excluded,
		Included:   rules.Included,
	}, e.Provider, logger)
	if err != nil {
		return RunResult{}, err
	}
	if opts.Verbose {
		logger.Info("files selected for linting", "count", len(selected), "files", selected)
	} else {
		logger.Debug("files selected for linting", "count", len(selected))
	}

	lint := &linter.Linter{
		Binary:   binary,
		Dir:      dir,
		Strategy: strategy(opts),
		Options: linter.Options{
			Config:       configPath,
			Reporter:     linter.DefaultReporter,
			Quiet:        pointer.Bool(true),
			ForceExclude: pointer.Bool(true),
		},
		ExtraArgs: opts.AdditionalArgs,
		Runner:    e.Runner,
		Logger:    logger,
	}
	lintCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		lintCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	batches, err := lint.Lint(lintCtx, selected)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to run %s: %w", toolName(opts), err)
	}

	pipeline := issues.Pipeline{
		Predicate: req.Predicate,
		Max:       opts.MaxViolations,
		NoComment: opts.NoComment,
		Directory: dir,
	}
	if opts.FilterDiff {
		if e.Provider == nil {
			return RunResult{}, fmt.Errorf("diff filtering requires a change set")
		}
		lines, err := difflines.BuildLineSet(ctx, e.Provider, logger)
		if err != nil {
			return RunResult{}, err
		}
		pipeline.Lines = lines
	}

	res := pipeline.Apply(batches)
	out := RunResult{
		Result: res,
		Failed: report.Failed(res, opts.Strict, opts.FailOnError),
		Linted: selected,
	}
	logger.Info("lint finished",
		"warnings", len(res.Warnings), "errors", len(res.Errors), "overflow", res.Overflow, "failed", out.Failed)

	if e.Sink != nil {
		policy := report.Policy{
			Mode:        report.ModeSummary,
			Strict:      opts.Strict,
			FailOnError: opts.FailOnError,
			NoComment:   opts.NoComment,
			ToolName:    toolName(opts),
			WorkDir:     dir,
		}
		if opts.InlineMode {
			policy.Mode = report.ModeInline
		}
		if err := report.Publish(ctx, e.Sink, res, policy); err != nil {
			return out, err
		}
	}

	return out, nil
}

func (e *Engine) logger() hclog.Logger {
	if e.Logger == nil {
		return hclog.NewNullLogger()
	}
	return e.Logger
}

func (e *Engine) lookup() lintconfig.LookupFunc {
	if e.Lookup == nil {
		return os.LookupEnv
	}
	return e.Lookup
}

func strategy(opts Options) linter.Strategy {
	if opts.LintAllFiles {
		return linter.StrategyAll
	}
	if opts.Invocation == "" {
		return linter.StrategyScriptInput
	}
	return opts.Invocation
}

func toolName(opts Options) string {
	return config.SetThen(opts.ToolName, config.DefaultLinterName)
}

func workDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := files.AbsPath(dir, "")
	if err != nil {
		return "", err
	}
	return abs, nil
}

// resolveConfigPath returns the explicit path, or the default rule config in dir when
// it exists. An empty result means the linter runs without --config.
func resolveConfigPath(explicit, dir string) (string, error) {
	if explicit != "" {
		return files.AbsPath(explicit, dir)
	}
	candidate := filepath.Join(dir, config.DefaultRuleConfigFile)
	if files.Exists(candidate) {
		return candidate, nil
	}
	return "", nil
}
