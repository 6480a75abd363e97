// Package linter invokes the external linter and collects its reports.
package linter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"k8s.io/utils/pointer"

	"github.com/scan-io-git/scanio-lint/internal/envscope"
	"github.com/scan-io-git/scanio-lint/internal/issues"
)

// ErrToolNotInstalled is returned when the linter binary cannot be found.
var ErrToolNotInstalled = errors.New("linter is not installed")

// Strategy selects how a file set is handed to the linter.
type Strategy string

const (
	// StrategyAll runs once and lets the linter discover files from its own config.
	StrategyAll Strategy = "all"
	// StrategyScriptInput runs once with the files listed in SCRIPT_INPUT_FILE_* variables.
	StrategyScriptInput Strategy = "script-input"
	// StrategyPerFile runs once per file with --path.
	StrategyPerFile Strategy = "per-file"
)

const (
	scriptInputCountEnv   = "SCRIPT_INPUT_FILE_COUNT"
	scriptInputFilePrefix = "SCRIPT_INPUT_FILE_"
)

// Locate resolves binary to an absolute executable path. Values containing a path
// separator are checked on disk, bare names are searched in PATH.
func Locate(binary string) (string, error) {
	if binary == "" {
		return "", fmt.Errorf("%w: no binary configured", ErrToolNotInstalled)
	}

	if filepath.Base(binary) != binary {
		abs, err := filepath.Abs(binary)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrToolNotInstalled, binary)
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrToolNotInstalled, binary)
		}
		return abs, nil
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotInstalled, binary)
	}
	return path, nil
}

// Linter runs one external linter binary from a fixed directory.
type Linter struct {
	Binary    string
	Dir       string
	Strategy  Strategy
	Options   Options
	ExtraArgs []string
	Runner    Runner
	Logger    hclog.Logger
}

// Lint runs the linter over files according to the strategy and returns one parsed
// batch per invocation. Files are ignored by StrategyAll.
func (l *Linter) Lint(ctx context.Context, files []string) ([][]issues.Issue, error) {
	switch l.Strategy {
	case StrategyAll:
		batch, err := l.invoke(ctx, l.Options, nil)
		if err != nil {
			return nil, err
		}
		return [][]issues.Issue{batch}, nil

	case StrategyPerFile:
		var batches [][]issues.Issue
		for _, f := range files {
			opts := l.Options
			opts.Path = f
			batch, err := l.invoke(ctx, opts, nil)
			if err != nil {
				return nil, fmt.Errorf("lint %s: %w", f, err)
			}
			batches = append(batches, batch)
		}
		return batches, nil

	case StrategyScriptInput, "":
		if len(files) == 0 {
			return nil, nil
		}
		opts := l.Options
		opts.UseScriptInputFiles = pointer.Bool(true)
		batch, err := l.invoke(ctx, opts, ScriptInputEnv(files))
		if err != nil {
			return nil, err
		}
		return [][]issues.Issue{batch}, nil

	default:
		return nil, fmt.Errorf("unknown invocation strategy %q", l.Strategy)
	}
}

// ScriptInputEnv returns the variables that pass files to the linter by index.
func ScriptInputEnv(files []string) map[string]string {
	env := make(map[string]string, len(files)+1)
	env[scriptInputCountEnv] = strconv.Itoa(len(files))
	for i, f := range files {
		env[scriptInputFilePrefix+strconv.Itoa(i)] = f
	}
	return env
}

func (l *Linter) invoke(ctx context.Context, opts Options, env map[string]string) ([]issues.Issue, error) {
	args, err := opts.Args()
	if err != nil {
		return nil, fmt.Errorf("invalid linter options: %w", err)
	}
	args = append(args, l.ExtraArgs...)

	var out []byte
	run := func() error {
		var runErr error
		out, runErr = l.Runner.Run(ctx, l.Binary, args, l.Dir)
		return runErr
	}
	if len(env) > 0 {
		err = envscope.With(env, run)
	} else {
		err = run()
	}
	if err != nil {
		return nil, err
	}

	return issues.ParseReport(out)
}
