package lint

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-lint/internal/config"
	"github.com/scan-io-git/scanio-lint/internal/engine"
	"github.com/scan-io-git/scanio-lint/pkg/shared/errors"
)

// RunOptionsLint holds the lint command flags.
type RunOptionsLint struct {
	ConfigPath    string
	Directory     string
	BinaryPath    string
	MaxViolations int
	Strict        bool
	LintAllFiles  bool
	FilterDiff    bool
	Inline        bool
	FailOnError   bool
	NoComment     bool
	Invocation    string
	Extensions    []string
	// Verbose mirrors the root --verbose flag.
	Verbose bool

	BaseRef   string
	HeadRef   string
	PatchFile string

	Sinks        []string
	SarifOutput  string
	WebhookURL   string
	Platform     string
	Repository   string
	ChangeNumber int
}

// Global variables for configuration and command arguments
var (
	AppConfig   *config.Config
	logger      hclog.Logger
	lintOptions RunOptionsLint

	exampleLintUsage = `  # Lint the Swift files changed against origin/main and print a summary
  scanio-lint lint --base origin/main

  # Only report violations on added lines and post them to the pull request
  scanio-lint lint --base origin/main --filter-diff --inline --sink github

  # Lint explicit files and pass extra arguments to the linter
  scanio-lint lint Sources/App/*.swift -- --strict

  # Use a diff produced by CI and write a SARIF report
  scanio-lint lint --patch-file changes.diff --sink sarif --sarif-output reports/lint.sarif`

	LintCmd = &cobra.Command{
		Use:                   "lint [FILES...] [flags] [-- LINTER_ARGS...]",
		Short:                 "Lint the files of a pending change and report the findings",
		Example:               exampleLintUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runLint,
	}
)

// Init wires config and logger into the command package.
func Init(cfg *config.Config, l hclog.Logger) {
	AppConfig = cfg
	logger = l
}

func runLint(cmd *cobra.Command, args []string) error {
	files, extra := splitArgs(args, cmd.ArgsLenAtDash())

	if err := validateLintArgs(&lintOptions, cmd.Flags().Changed); err != nil {
		logger.Error("invalid command arguments", "error", err)
		return errors.NewCommandError(fmt.Errorf("invalid arguments: %w", err), errors.ExitFailure)
	}

	lintOptions.Verbose, _ = cmd.Flags().GetBool("verbose")
	opts := buildEngineOptions(AppConfig, &lintOptions, cmd.Flags().Changed)
	opts.AdditionalArgs = append(opts.AdditionalArgs, extra...)

	dir, err := workingDirectory(opts.Directory)
	if err != nil {
		return errors.NewCommandError(err, errors.ExitFailure)
	}
	opts.Directory = dir

	target := resolveTarget(&lintOptions, dir, os.Getenv)

	provider, err := buildProvider(&lintOptions, target, dir)
	if err != nil {
		logger.Error("failed to prepare change set", "error", err)
		return errors.NewCommandError(fmt.Errorf("failed to prepare change set: %w", err), errors.ExitFailure)
	}

	sink, err := buildSinks(AppConfig, &lintOptions, target, opts.ToolName)
	if err != nil {
		logger.Error("failed to prepare report sinks", "error", err)
		return errors.NewCommandError(fmt.Errorf("failed to prepare report sinks: %w", err), errors.ExitFailure)
	}

	e := engine.New(provider, sink, logger)
	result, err := e.Run(cmd.Context(), engine.Request{Options: opts, Files: files})
	if err != nil {
		logger.Error("lint run failed", "error", err)
		return errors.NewCommandError(err, errors.ExitFailure)
	}

	if result.Failed {
		return errors.NewCommandError(
			fmt.Errorf("%s found %d errors and %d warnings", opts.ToolName, len(result.Errors), len(result.Warnings)),
			errors.ExitFailed)
	}
	return nil
}

func init() {
	LintCmd.Flags().StringVar(&lintOptions.ConfigPath, "config", "", "Path to the linter rule config (default: .swiftlint.yml in the directory when present)")
	LintCmd.Flags().StringVarP(&lintOptions.Directory, "directory", "d", "", "Directory to lint from; files outside it are ignored (default: current directory)")
	LintCmd.Flags().StringVar(&lintOptions.BinaryPath, "binary", "", "Linter binary name or path")
	LintCmd.Flags().IntVar(&lintOptions.MaxViolations, "max-violations", 0, "Maximum number of violations to report; the rest are counted as overflow")
	LintCmd.Flags().BoolVar(&lintOptions.Strict, "strict", false, "Fail on warnings as well as errors")
	LintCmd.Flags().BoolVar(&lintOptions.LintAllFiles, "lint-all-files", false, "Lint the whole directory instead of the changed files")
	LintCmd.Flags().BoolVar(&lintOptions.FilterDiff, "filter-diff", false, "Only keep violations on lines added by the change")
	LintCmd.Flags().BoolVar(&lintOptions.Inline, "inline", false, "Report one annotation per violation instead of a summary")
	LintCmd.Flags().BoolVar(&lintOptions.FailOnError, "fail-on-error", false, "Fail when an error-severity violation is found")
	LintCmd.Flags().BoolVar(&lintOptions.NoComment, "no-comment", false, "Compute the verdict without reporting anything")
	LintCmd.Flags().StringVar(&lintOptions.Invocation, "invocation", "", "How files are passed to the linter: script-input, per-file or all")
	LintCmd.Flags().StringSliceVar(&lintOptions.Extensions, "extensions", nil, "File extensions to lint (repeat flag or use comma-separated values)")
	LintCmd.Flags().StringVar(&lintOptions.BaseRef, "base", "", "Base revision of the change set")
	LintCmd.Flags().StringVar(&lintOptions.HeadRef, "head", "", "Head revision of the change set (default: HEAD)")
	LintCmd.Flags().StringVar(&lintOptions.PatchFile, "patch-file", "", "Unified diff describing the change set")
	LintCmd.Flags().StringSliceVar(&lintOptions.Sinks, "sink", nil, "Where to report: console, github, gitlab, sarif, webhook (repeat flag or use comma-separated values)")
	LintCmd.Flags().StringVar(&lintOptions.SarifOutput, "sarif-output", "", "Path of the SARIF report written by the sarif sink")
	LintCmd.Flags().StringVar(&lintOptions.WebhookURL, "webhook-url", "", "Endpoint the webhook sink posts to")
	LintCmd.Flags().StringVar(&lintOptions.Platform, "platform", "", "Code hosting platform (github, gitlab, bitbucket); detected from CI when empty")
	LintCmd.Flags().StringVar(&lintOptions.Repository, "repository", "", "Repository as namespace/name; detected from CI or the origin remote when empty")
	LintCmd.Flags().IntVar(&lintOptions.ChangeNumber, "change-number", 0, "Pull or merge request number; detected from CI when empty")
	LintCmd.Flags().BoolP("help", "h", false, "Show help for lint command.")
}
