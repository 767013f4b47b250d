// Package fakerunner provides a fake implementation of execx.Runner for
// testing the Mutation Engine, the Process Gateway and HostInventory
// without touching the host.
package fakerunner

import (
	"context"
	"fmt"
	"strings"

	"github.com/aryonoco/divban/internal/execx"
)

// Runner is a fake implementation of execx.Runner for testing.
type Runner struct {
	results map[string]execx.Result
	errors  map[string]error
	calls   []execx.CommandSpec
}

// New creates a new fake runner.
func New() *Runner {
	return &Runner{
		results: make(map[string]execx.Result),
		errors:  make(map[string]error),
	}
}

// SetResult sets the result returned for a specific command (name + args).
func (r *Runner) SetResult(name string, args []string, result execx.Result) {
	r.results[key(name, args)] = result
}

// SetError sets the transport-level error returned for a specific command --
// use this for "command not found"/context-cancelled style failures;
// non-zero exit codes are expressed through SetResult's ExitCode instead.
func (r *Runner) SetError(name string, args []string, err error) {
	r.errors[key(name, args)] = err
}

// Run implements execx.Runner.
func (r *Runner) Run(_ context.Context, spec execx.CommandSpec) (execx.Result, error) {
	r.calls = append(r.calls, spec)

	k := key(spec.Name, spec.Args)
	if err, ok := r.errors[k]; ok {
		return execx.Result{}, err
	}
	if res, ok := r.results[k]; ok {
		return res, nil
	}
	return execx.Result{}, nil
}

// Calls returns every command spec observed so far, in call order.
func (r *Runner) Calls() []execx.CommandSpec {
	return r.calls
}

// Reset clears all stored results, errors, and calls.
func (r *Runner) Reset() {
	r.results = make(map[string]execx.Result)
	r.errors = make(map[string]error)
	r.calls = nil
}

func key(name string, args []string) string {
	return fmt.Sprintf("%s %s", name, strings.Join(args, " "))
}
