package linter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
)

// Runner executes the linter binary and returns its standard output. The child
// inherits the process environment at the time of the call.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, dir string) ([]byte, error)
}

// ExecRunner runs the linter as a subprocess.
type ExecRunner struct {
	Logger hclog.Logger
}

// Run starts binary from dir. A non-zero exit status is not an error here: the
// linter exits non-zero whenever it finds violations, and its report is still on
// stdout.
func (r *ExecRunner) Run(ctx context.Context, binary string, args []string, dir string) ([]byte, error) {
	var stdout bytes.Buffer

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = r.Logger.StandardWriter(&hclog.StandardLoggerOptions{ForceLevel: hclog.Debug})

	r.Logger.Debug("running linter", "binary", binary, "args", args, "dir", dir)
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("linter run interrupted: %w", ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		r.Logger.Debug("linter exited with non-zero status", "code", exitErr.ExitCode())
		return stdout.Bytes(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", binary, err)
	}
	return stdout.Bytes(), nil
}
