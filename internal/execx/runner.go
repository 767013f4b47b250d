// Package execx is the Process Gateway: a uniform, testable abstraction for
// running external commands, including user-switched execution that
// preserves the session bus environment rootless systemctl/podman need.
package execx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
)

// CommandSpec is the fully-resolved description of one process invocation,
// as built by Exec/Shell before it reaches a Runner.
type CommandSpec struct {
	Name  string
	Args  []string
	Env   []string // additional "KEY=VALUE" entries, appended to the inherited environment
	Dir   string
	Stdin io.Reader
}

// Result is the outcome of running one command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes a CommandSpec. RealRunner is the production
// implementation; fakerunner.Runner stands in for it in tests.
type Runner interface {
	Run(ctx context.Context, spec CommandSpec) (Result, error)
}

// RealRunner implements Runner using os/exec.
type RealRunner struct{}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes spec and captures stdout/stderr separately, along with the
// exit code. A non-zero exit is reported via ExitCode, not as a Go error --
// callers that want failure elevated to an error use ExecSuccess.
func (r *RealRunner) Run(ctx context.Context, spec CommandSpec) (Result, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Stdin != nil {
		cmd.Stdin = spec.Stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		// Command never started (e.g. binary not found) or context cancelled.
		return result, err
	}
}
