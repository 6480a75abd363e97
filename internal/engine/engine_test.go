package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/pointer"

	"github.com/scan-io-git/scanio-lint/internal/changeset"
	"github.com/scan-io-git/scanio-lint/internal/config"
	"github.com/scan-io-git/scanio-lint/internal/issues"
	"github.com/scan-io-git/scanio-lint/internal/linter"
	"github.com/scan-io-git/scanio-lint/internal/report"
)

type invocation struct {
	args  []string
	count string
}

type fakeRunner struct {
	out   string
	calls []invocation
}

func (f *fakeRunner) Run(_ context.Context, _ string, args []string, _ string) ([]byte, error) {
	f.calls = append(f.calls, invocation{args: args, count: os.Getenv("SCRIPT_INPUT_FILE_COUNT")})
	return []byte(f.out), nil
}

type fixture struct {
	dir    string
	binary string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	binary := filepath.Join(dir, "bin", "swiftlint")
	require.NoError(t, os.MkdirAll(filepath.Dir(binary), 0o755))
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755))
	return fixture{dir: dir, binary: binary}
}

func (f fixture) path(rel string) string {
	return filepath.Join(f.dir, filepath.FromSlash(rel))
}

func (f fixture) issue(rel string, line int, severity, rule string) string {
	return fmt.Sprintf(`{"file": %q, "line": %d, "severity": %q, "rule_id": %q, "reason": "%s violation"}`,
		f.path(rel), line, severity, rule, rule)
}

func output(items ...string) string {
	return "[" + strings.Join(items, ",") + "]"
}

func newEngine(runner linter.Runner, provider changeset.Provider, sink report.Sink) *Engine {
	return &Engine{
		Runner:   runner,
		Provider: provider,
		Sink:     sink,
		Logger:   hclog.NewNullLogger(),
		Lookup:   func(string) (string, bool) { return "", false },
	}
}

func TestNewUsesExecRunner(t *testing.T) {
	provider := &changeset.StaticProvider{}
	sink := &report.Recorder{}
	logger := hclog.NewNullLogger()

	e := New(provider, sink, logger)

	runner, ok := e.Runner.(*linter.ExecRunner)
	require.True(t, ok, "expected *linter.ExecRunner, got %T", e.Runner)
	assert.Equal(t, logger, runner.Logger)
	assert.Equal(t, provider, e.Provider)
	assert.Equal(t, sink, e.Sink)
}

func TestRunSummary(t *testing.T) {
	f := newFixture(t)
	runner := &fakeRunner{out: output(
		f.issue("App/A.swift", 3, "Warning", "line_length"),
		f.issue("App/A.swift", 5, "Error", "force_cast"),
	)}
	provider := &changeset.StaticProvider{
		Modified: []string{f.path("App/A.swift"), f.path("README.md")},
		Added:    []string{f.path("App/B.swift")},
	}
	sink := &report.Recorder{}

	res, err := newEngine(runner, provider, sink).Run(context.Background(), Request{
		Options: Options{Directory: f.dir, BinaryPath: f.binary, FailOnError: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{f.path("App/A.swift"), f.path("App/B.swift")}, res.Linted)
	assert.Len(t, res.Warnings, 1)
	assert.Len(t, res.Errors, 1)
	assert.True(t, res.Failed)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "2", runner.calls[0].count)
	assert.Contains(t, runner.calls[0].args, "--use-script-input-files")
	assert.NotContains(t, runner.calls[0].args, "--config")

	require.Len(t, sink.Markdowns, 1)
	assert.True(t, strings.HasPrefix(sink.Markdowns[0], "### SwiftLint found issues\n"))
	assert.Equal(t, []string{"Failed due to SwiftLint errors"}, sink.Messages(report.LevelFail))
	assert.Equal(t, 1, sink.Flushed)
}

func TestRunRuleConfigExclusion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.path("Pods"), 0o755))
	require.NoError(t, os.WriteFile(f.path("Pods/Lib.swift"), []byte("let x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(f.path(".swiftlint.yml"), []byte("excluded:\n  - Pods\n"), 0o644))

	runner := &fakeRunner{out: "[]"}
	provider := &changeset.StaticProvider{
		Modified: []string{f.path("Pods/Lib.swift"), f.path("App/A.swift")},
	}

	res, err := newEngine(runner, provider, &report.Recorder{}).Run(context.Background(), Request{
		Options: Options{Directory: f.dir, BinaryPath: f.binary},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{f.path("App/A.swift")}, res.Linted)
	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0].args, f.path(".swiftlint.yml"))
	assert.Equal(t, "1", runner.calls[0].count)
	assert.False(t, res.Failed)
}

func TestRunFilterDiff(t *testing.T) {
	f := newFixture(t)
	a := f.path("App/A.swift")
	runner := &fakeRunner{out: output(
		f.issue("App/A.swift", 2, "Warning", "trailing_whitespace"),
		f.issue("App/A.swift", 5, "Error", "force_cast"),
	)}
	provider := &changeset.StaticProvider{
		Modified: []string{a},
		Patches:  map[string]string{a: "@@ -1,2 +1,3 @@\n one\n+two\n three\n"},
	}

	res, err := newEngine(runner, provider, &report.Recorder{}).Run(context.Background(), Request{
		Options: Options{Directory: f.dir, BinaryPath: f.binary, FilterDiff: true, Strict: true},
	})
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 2, res.Warnings[0].Line)
	assert.Empty(t, res.Errors)
	assert.True(t, res.Failed)
}

func TestRunInlineWithCap(t *testing.T) {
	f := newFixture(t)
	runner := &fakeRunner{out: output(
		f.issue("App/A.swift", 1, "Warning", "r1"),
		f.issue("App/A.swift", 2, "Warning", "r2"),
		f.issue("App/A.swift", 3, "Warning", "r3"),
	)}
	provider := &changeset.StaticProvider{Modified: []string{f.path("App/A.swift")}}
	sink := &report.Recorder{}

	res, err := newEngine(runner, provider, sink).Run(context.Background(), Request{
		Options: Options{Directory: f.dir, BinaryPath: f.binary, InlineMode: true, MaxViolations: pointer.Int(2)},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Overflow)
	assert.Len(t, res.Warnings, 2)
	assert.Empty(t, sink.Markdowns)

	warns := sink.Messages(report.LevelWarn)
	require.Len(t, warns, 3)
	assert.Equal(t, "r1 violation\n`r1` `A.swift:1`", warns[0])
	assert.Equal(t, "SwiftLint also found 1 more violation with this PR.", warns[2])
	assert.Equal(t, "App/A.swift", sink.Annotations[0].File)
}

func TestRunNoCommentKeepsEverything(t *testing.T) {
	f := newFixture(t)
	runner := &fakeRunner{out: output(
		f.issue("App/A.swift", 1, "Error", "r1"),
		f.issue("App/A.swift", 2, "Error", "r2"),
	)}
	provider := &changeset.StaticProvider{Modified: []string{f.path("App/A.swift")}}
	sink := &report.Recorder{}

	res, err := newEngine(runner, provider, sink).Run(context.Background(), Request{
		Options:   Options{Directory: f.dir, BinaryPath: f.binary, NoComment: true, FailOnError: true, MaxViolations: pointer.Int(0)},
		Predicate: func(issues.Issue) bool { return false },
	})
	require.NoError(t, err)

	assert.Len(t, res.Errors, 2)
	assert.Zero(t, res.Overflow)
	assert.True(t, res.Failed)
	assert.Empty(t, sink.Markdowns)
	assert.Empty(t, sink.Annotations)
}

func TestRunNoFilesSkipsLinter(t *testing.T) {
	f := newFixture(t)
	runner := &fakeRunner{out: "[]"}
	provider := &changeset.StaticProvider{Modified: []string{f.path("docs/guide.md")}}
	sink := &report.Recorder{}

	res, err := newEngine(runner, provider, sink).Run(context.Background(), Request{
		Options: Options{Directory: f.dir, BinaryPath: f.binary},
	})
	require.NoError(t, err)

	assert.Empty(t, runner.calls)
	assert.Empty(t, res.Linted)
	assert.False(t, res.Failed)
	assert.Empty(t, sink.Markdowns)
}

func TestRunLintAllFiles(t *testing.T) {
	f := newFixture(t)
	runner := &fakeRunner{out: output(f.issue("Legacy/Old.swift", 9, "Warning", "todo"))}

	res, err := newEngine(runner, &changeset.StaticProvider{}, &report.Recorder{}).Run(context.Background(), Request{
		Options: Options{Directory: f.dir, BinaryPath: f.binary, LintAllFiles: true},
	})
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Empty(t, runner.calls[0].count)
	assert.NotContains(t, runner.calls[0].args, "--use-script-input-files")
	assert.Len(t, res.Warnings, 1)
}

func TestRunToolNotInstalled(t *testing.T) {
	f := newFixture(t)
	runner := &fakeRunner{}

	_, err := newEngine(runner, &changeset.StaticProvider{}, nil).Run(context.Background(), Request{
		Options: Options{Directory: f.dir, BinaryPath: f.path("bin/missing")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, linter.ErrToolNotInstalled))
	assert.Empty(t, runner.calls)
}

func TestRunMalformedOutput(t *testing.T) {
	f := newFixture(t)
	runner := &fakeRunner{out: "warning: not json"}
	provider := &changeset.StaticProvider{Modified: []string{f.path("App/A.swift")}}

	_, err := newEngine(runner, provider, nil).Run(context.Background(), Request{
		Options: Options{Directory: f.dir, BinaryPath: f.binary},
	})
	assert.True(t, errors.Is(err, issues.ErrMalformedOutput))
}

func TestRunResultsAreFresh(t *testing.T) {
	f := newFixture(t)
	runner := &fakeRunner{out: output(f.issue("App/A.swift", 1, "Warning", "r1"))}
	provider := &changeset.StaticProvider{Modified: []string{f.path("App/A.swift")}}
	e := newEngine(runner, provider, nil)
	req := Request{Options: Options{Directory: f.dir, BinaryPath: f.binary}}

	first, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, first.Warnings, 1)
	assert.Len(t, second.Warnings, 1)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Linter: config.Linter{Name: "SwiftLint", Binary: "swiftlint", Invocation: "all", AdditionalArgs: []string{"--strict"}},
		Report: config.Report{Mode: "inline", MaxViolations: pointer.Int(5), FailOnError: true},
	}

	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.LintAllFiles)
	assert.True(t, opts.InlineMode)
	assert.True(t, opts.FailOnError)
	assert.Equal(t, 5, *opts.MaxViolations)
	assert.Equal(t, []string{"--strict"}, opts.AdditionalArgs)
}
