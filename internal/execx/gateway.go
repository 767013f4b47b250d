package execx

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aryonoco/divban/internal/direrr"
)

// Options configures one Exec/Shell call. Env is a set of additional
// "KEY=VALUE" entries; Cwd overrides the working directory; User, when set,
// wraps argv in sudo to run as that user.
type Options struct {
	Env   []string
	Cwd   string
	Stdin string
	User  string
}

// Gateway is the Process Gateway: the single place argv construction, user
// switching, and sudo wrapping happen, built on top of a Runner.
type Gateway struct {
	runner Runner
}

// New constructs a Gateway over runner.
func New(runner Runner) *Gateway {
	return &Gateway{runner: runner}
}

// Exec runs argv directly, or through sudo as opts.User when set. An empty
// argv is rejected with InvalidArgs.
func (g *Gateway) Exec(ctx context.Context, argv []string, opts Options) (Result, error) {
	if len(argv) == 0 {
		return Result{}, direrr.NewInvalidArgs("argv", "empty argv")
	}

	name, args := argv[0], argv[1:]
	if opts.User != "" {
		name, args = sudoWrap(opts.User, argv)
	}

	spec := CommandSpec{Name: name, Args: args, Env: opts.Env, Dir: opts.Cwd}
	if opts.Stdin != "" {
		spec.Stdin = strings.NewReader(opts.Stdin)
	}
	return g.runner.Run(ctx, spec)
}

// ExecAsUser is Exec with the environment additions rootless systemctl/
// podman need to reach uid's own session bus: XDG_RUNTIME_DIR and
// DBUS_SESSION_BUS_ADDRESS, plus cwd=/tmp unless opts.Cwd is already set.
func (g *Gateway) ExecAsUser(ctx context.Context, user string, uid int, argv []string, opts Options) (Result, error) {
	opts = withUserEnv(opts, uid)
	opts.User = user
	return g.Exec(ctx, argv, opts)
}

// Shell runs cmdline through /bin/sh -c, for commands that need piping or
// redirection. Callers are responsible for escaping any value that
// originates in user input before interpolating it into cmdline.
func (g *Gateway) Shell(ctx context.Context, cmdline string, opts Options) (Result, error) {
	argv := []string{"/bin/sh", "-c", cmdline}
	if opts.User != "" {
		name, args := sudoWrap(opts.User, argv)
		spec := CommandSpec{Name: name, Args: args, Env: opts.Env, Dir: opts.Cwd}
		if opts.Stdin != "" {
			spec.Stdin = strings.NewReader(opts.Stdin)
		}
		return g.runner.Run(ctx, spec)
	}
	spec := CommandSpec{Name: argv[0], Args: argv[1:], Env: opts.Env, Dir: opts.Cwd}
	if opts.Stdin != "" {
		spec.Stdin = strings.NewReader(opts.Stdin)
	}
	return g.runner.Run(ctx, spec)
}

// ShellAsUser is Shell with the same user-session environment additions as
// ExecAsUser.
func (g *Gateway) ShellAsUser(ctx context.Context, user string, uid int, cmdline string, opts Options) (Result, error) {
	opts = withUserEnv(opts, uid)
	opts.User = user
	return g.Shell(ctx, cmdline, opts)
}

// ExecSuccess wraps Exec and elevates a non-zero exit code to an Exec
// taxonomy error carrying the joined argv and trimmed stderr.
func (g *Gateway) ExecSuccess(ctx context.Context, argv []string, opts Options) (Result, error) {
	res, err := g.Exec(ctx, argv, opts)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, direrr.NewExec(strings.Join(argv, " "), fmt.Errorf("exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return res, nil
}

func withUserEnv(opts Options, uid int) Options {
	if opts.Cwd == "" {
		opts.Cwd = "/tmp"
	}
	opts.Env = append(append([]string(nil), opts.Env...),
		"XDG_RUNTIME_DIR=/run/user/"+strconv.Itoa(uid),
		"DBUS_SESSION_BUS_ADDRESS=unix:path=/run/user/"+strconv.Itoa(uid)+"/bus",
	)
	return opts
}

// sudoWrap prepends the sudo invocation that preserves the session-bus
// environment variables across the user switch.
func sudoWrap(user string, argv []string) (string, []string) {
	args := []string{"--preserve-env=XDG_RUNTIME_DIR,DBUS_SESSION_BUS_ADDRESS", "-u", user, "--"}
	args = append(args, argv...)
	return "sudo", args
}
