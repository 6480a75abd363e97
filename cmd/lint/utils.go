package lint

import (
	"fmt"
	"os"
	"strings"

	"k8s.io/utils/pointer"

	"github.com/scan-io-git/scanio-lint/internal/changeset"
	"github.com/scan-io-git/scanio-lint/internal/ci"
	"github.com/scan-io-git/scanio-lint/internal/config"
	"github.com/scan-io-git/scanio-lint/internal/engine"
	"github.com/scan-io-git/scanio-lint/internal/linter"
	"github.com/scan-io-git/scanio-lint/internal/report"
	"github.com/scan-io-git/scanio-lint/internal/sarif"
	"github.com/scan-io-git/scanio-lint/internal/vcs"
	"github.com/scan-io-git/scanio-lint/internal/webhook"
	"github.com/scan-io-git/scanio-lint/pkg/shared/files"
	"github.com/scan-io-git/scanio-lint/pkg/shared/httpclient"
)

const swiftLintInfoURI = "https://github.com/realm/SwiftLint"

// target is the change request the run reports to, as far as it could be resolved.
type target struct {
	ci.Resolution
	err error
}

// splitArgs separates file patterns from the arguments after "--".
func splitArgs(args []string, dash int) ([]string, []string) {
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

// buildEngineOptions starts from the app config and applies the flags that were set.
func buildEngineOptions(cfg *config.Config, o *RunOptionsLint, changed func(string) bool) engine.Options {
	opts := engine.OptionsFromConfig(cfg)
	opts.Verbose = o.Verbose

	if changed("config") {
		opts.ConfigPath = o.ConfigPath
	}
	if changed("directory") {
		opts.Directory = o.Directory
	}
	if changed("binary") {
		opts.BinaryPath = o.BinaryPath
	}
	if changed("max-violations") {
		opts.MaxViolations = pointer.Int(o.MaxViolations)
	}
	if changed("strict") {
		opts.Strict = o.Strict
	}
	if changed("invocation") {
		opts.Invocation = linter.Strategy(o.Invocation)
		opts.LintAllFiles = o.Invocation == string(linter.StrategyAll)
	}
	if changed("lint-all-files") {
		opts.LintAllFiles = o.LintAllFiles
	}
	if changed("filter-diff") {
		opts.FilterDiff = o.FilterDiff
	}
	if changed("inline") {
		opts.InlineMode = o.Inline
	}
	if changed("fail-on-error") {
		opts.FailOnError = o.FailOnError
	}
	if changed("no-comment") {
		opts.NoComment = o.NoComment
	}
	if changed("extensions") {
		opts.Extensions = o.Extensions
	}
	return opts
}

func workingDirectory(dir string) (string, error) {
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
	if !files.Exists(abs) {
		return "", fmt.Errorf("directory %q does not exist", dir)
	}
	return abs, nil
}

// resolveTarget merges the flags with CI metadata. Failure is kept on the target so
// only the sinks that need a change request reject it.
func resolveTarget(o *RunOptionsLint, dir string, lookup ci.LookupFunc) target {
	res, err := ci.Resolve(logger, ci.Options{
		Platform:     o.Platform,
		Repository:   o.Repository,
		ChangeNumber: o.ChangeNumber,
		BaseRef:      o.BaseRef,
		HeadRef:      o.HeadRef,
		RemoteURL:    changeset.OriginURL(dir),
	}, lookup)
	if err != nil {
		logger.Debug("change request not resolved", "error", err)
	}
	return target{Resolution: res, err: err}
}

// buildProvider picks the change-set source: a patch file, a git diff between two
// revisions, or none.
func buildProvider(o *RunOptionsLint, t target, dir string) (changeset.Provider, error) {
	if o.PatchFile != "" {
		p, err := changeset.NewPatchFileProvider(o.PatchFile, dir)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	if t.BaseRef == "" {
		logger.Debug("no base revision, running without a change set")
		return nil, nil
	}

	username := ""
	switch t.Kind {
	case ci.CIGitHub:
		username = "x-access-token"
	case ci.CIGitLab:
		username = "oauth2"
	}
	p, err := changeset.NewGitProvider(dir, t.BaseRef, t.HeadRef, changeset.GitOptions{
		Username: username,
		Token:    AppConfig.GitClient.Token,
		Timeout:  AppConfig.GitClient.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// buildSinks creates the configured sinks. Flags replace the configured list.
func buildSinks(cfg *config.Config, o *RunOptionsLint, t target, toolName string) (report.Sink, error) {
	names := cfg.Report.Sinks
	if len(o.Sinks) > 0 {
		names = o.Sinks
	}

	var sinks report.MultiSink
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "console":
			sinks = append(sinks, &report.ConsoleSink{Out: os.Stdout})

		case "github":
			if t.err != nil {
				return nil, fmt.Errorf("github sink: %w", t.err)
			}
			s, err := vcs.NewGitHubSink(cfg.GitHub.Token, firstNonEmpty(cfg.GitHub.BaseURL, t.APIURL), vcs.PullRequest{
				Owner:  t.Namespace,
				Repo:   t.Repository,
				Number: t.ChangeNumber,
			}, logger.Named("github"))
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)

		case "gitlab":
			if t.err != nil {
				return nil, fmt.Errorf("gitlab sink: %w", t.err)
			}
			s, err := vcs.NewGitLabSink(cfg.GitLab.Token, firstNonEmpty(cfg.GitLab.BaseURL, t.APIURL), vcs.MergeRequest{
				Project: t.FullName,
				IID:     t.ChangeNumber,
			}, logger.Named("gitlab"))
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)

		case "sarif":
			output := firstNonEmpty(o.SarifOutput, cfg.Report.SarifOutput)
			sinks = append(sinks, sarif.NewSink(output, toolName, swiftLintInfoURI, logger.Named("sarif")))

		case "webhook":
			url := firstNonEmpty(o.WebhookURL, cfg.Report.WebhookURL)
			client := httpclient.New(logger.Named("webhook"), cfg)
			sinks = append(sinks, webhook.NewSink(client, url, toolName, logger.Named("webhook")))

		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	return sinks, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
