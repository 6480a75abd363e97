package linter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/pointer"

	"github.com/scan-io-git/scanio-lint/internal/issues"
)

const report = `[{"rule_id": "force_cast", "reason": "Force casts should be avoided.", "file": "/r/A.swift", "severity": "Error", "line": 13}]`

type call struct {
	args []string
	dir  string
	env  map[string]string
}

type fakeRunner struct {
	out   string
	err   error
	calls []call
}

func (f *fakeRunner) Run(_ context.Context, _ string, args []string, dir string) ([]byte, error) {
	env := map[string]string{}
	if v, ok := os.LookupEnv(scriptInputCountEnv); ok {
		env[scriptInputCountEnv] = v
		for _, k := range []string{"SCRIPT_INPUT_FILE_0", "SCRIPT_INPUT_FILE_1"} {
			if v, ok := os.LookupEnv(k); ok {
				env[k] = v
			}
		}
	}
	f.calls = append(f.calls, call{args: args, dir: dir, env: env})
	return []byte(f.out), f.err
}

func newLinter(strategy Strategy, r Runner) *Linter {
	return &Linter{
		Binary:    "/usr/local/bin/swiftlint",
		Dir:       "/r",
		Strategy:  strategy,
		Options:   Options{Config: "/r/.swiftlint.yml", Reporter: DefaultReporter, Quiet: pointer.Bool(true)},
		ExtraArgs: []string{"--strict"},
		Runner:    r,
		Logger:    hclog.NewNullLogger(),
	}
}

func TestLintScriptInput(t *testing.T) {
	r := &fakeRunner{out: report}
	l := newLinter(StrategyScriptInput, r)

	batches, err := l.Lint(context.Background(), []string{"/r/A.swift", "/r/some dir/B.swift"})
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	require.Len(t, batches, 1)
	assert.Equal(t, 13, batches[0][0].Line)

	c := r.calls[0]
	assert.Equal(t, []string{
		"lint", "--config", "/r/.swiftlint.yml", "--reporter", "json", "--quiet",
		"--use-script-input-files", "--strict",
	}, c.args)
	assert.Equal(t, "/r", c.dir)
	assert.Equal(t, map[string]string{
		"SCRIPT_INPUT_FILE_COUNT": "2",
		"SCRIPT_INPUT_FILE_0":     "/r/A.swift",
		"SCRIPT_INPUT_FILE_1":     "/r/some dir/B.swift",
	}, c.env)

	_, leaked := os.LookupEnv(scriptInputCountEnv)
	assert.False(t, leaked, "side channel must be cleared after the call")
}

func TestLintScriptInputClearsEnvOnError(t *testing.T) {
	r := &fakeRunner{err: errors.New("exec format error")}
	l := newLinter(StrategyScriptInput, r)

	_, err := l.Lint(context.Background(), []string{"/r/A.swift"})
	require.Error(t, err)

	_, leaked := os.LookupEnv("SCRIPT_INPUT_FILE_0")
	assert.False(t, leaked)
}

func TestLintScriptInputNoFiles(t *testing.T) {
	r := &fakeRunner{out: report}
	batches, err := newLinter(StrategyScriptInput, r).Lint(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Empty(t, r.calls)
}

func TestLintPerFile(t *testing.T) {
	r := &fakeRunner{out: report}
	l := newLinter(StrategyPerFile, r)

	batches, err := l.Lint(context.Background(), []string{"/r/A.swift", "/r/B.swift"})
	require.NoError(t, err)
	require.Len(t, r.calls, 2)
	assert.Len(t, batches, 2)

	assert.Equal(t, []string{
		"lint", "--config", "/r/.swiftlint.yml", "--reporter", "json", "--quiet",
		"--path", "/r/B.swift", "--strict",
	}, r.calls[1].args)
	assert.Empty(t, r.calls[1].env)
}

func TestLintAll(t *testing.T) {
	r := &fakeRunner{out: ""}
	l := newLinter(StrategyAll, r)

	batches, err := l.Lint(context.Background(), []string{"/r/A.swift"})
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	assert.Equal(t, [][]issues.Issue{nil}, batches)
	assert.NotContains(t, r.calls[0].args, "--use-script-input-files")
	assert.NotContains(t, r.calls[0].args, "--path")
}

func TestLintMalformedOutput(t *testing.T) {
	r := &fakeRunner{out: "Linting Swift files at paths"}
	_, err := newLinter(StrategyScriptInput, r).Lint(context.Background(), []string{"/r/A.swift"})
	assert.True(t, errors.Is(err, issues.ErrMalformedOutput), "got %v", err)
}

func TestLintUnknownStrategy(t *testing.T) {
	_, err := newLinter("batch", &fakeRunner{}).Lint(context.Background(), []string{"/r/A.swift"})
	assert.Error(t, err)
}

func TestOptionsArgs(t *testing.T) {
	testCases := []struct {
		name    string
		opts    Options
		want    []string
		wantErr bool
	}{
		{name: "empty", opts: Options{}, want: []string{"lint"}},
		{
			name: "negated flags",
			opts: Options{Quiet: pointer.Bool(false), ForceExclude: pointer.Bool(false)},
			want: []string{"lint", "--no-quiet", "--no-force-exclude"},
		},
		{
			name: "config with spaces stays one element",
			opts: Options{Config: "/r/my config/.swiftlint.yml", ForceExclude: pointer.Bool(true)},
			want: []string{"lint", "--config", "/r/my config/.swiftlint.yml", "--force-exclude"},
		},
		{name: "blank config", opts: Options{Config: "  "}, wantErr: true},
		{name: "nul in path", opts: Options{Path: "a\x00b"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.opts.Args()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "swiftlint")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	got, err := Locate(bin)
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	_, err = Locate(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, ErrToolNotInstalled))

	_, err = Locate(dir)
	assert.True(t, errors.Is(err, ErrToolNotInstalled))

	_, err = Locate("scanio-lint-definitely-not-on-path")
	assert.True(t, errors.Is(err, ErrToolNotInstalled))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-swiftlint")
	body := "#!/bin/sh\n" +
		"echo \"warning on stderr\" >&2\n" +
		"echo \"[{\\\"file\\\": \\\"$(pwd)/A.swift\\\", \\\"line\\\": $SCRIPT_INPUT_FILE_COUNT, \\\"severity\\\": \\\"Warning\\\"}]\"\n" +
		"exit 2\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	l := &Linter{
		Binary:   script,
		Dir:      dir,
		Strategy: StrategyScriptInput,
		Runner:   &ExecRunner{Logger: hclog.NewNullLogger()},
		Logger:   hclog.NewNullLogger(),
	}

	batches, err := l.Lint(context.Background(), []string{filepath.Join(dir, "A.swift"), filepath.Join(dir, "B.swift")})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, 2, batches[0][0].Line)
	assert.Equal(t, issues.Warning, batches[0][0].Severity)
}

func TestExecRunnerStartFailure(t *testing.T) {
	r := &ExecRunner{Logger: hclog.NewNullLogger()}
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), nil, "")
	assert.Error(t, err)
}
