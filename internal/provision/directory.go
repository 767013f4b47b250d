package provision

import (
	"context"
	"strconv"

	"github.com/aryonoco/divban/internal/execx"
	"github.com/aryonoco/divban/internal/retry"
)

// ServiceDirectories returns the canonical per-service directory list, in
// the fixed creation order spec §4.6.5 requires: data root first, then its
// config/logs children, then the user's quadlet-facing config tree.
func (s Settings) ServiceDirectories(user ServiceUser, service string) []string {
	root := s.DataRoot + "/" + service
	return []string{
		root,
		root + "/config",
		root + "/logs",
		user.Home + "/.config",
		user.Home + "/.config/containers",
		user.Home + "/.config/containers/systemd",
	}
}

// EnsureDirectory creates path (if absent) owned by uid:gid with mode, via
// install -d, and records the mutation for rollback. Transient exec
// failures are retried by the caller's schedule; EnsureDirectory itself is
// a single attempt.
func (e *Engine) EnsureDirectory(ctx context.Context, tx *Transaction, path string, uid int, mode string) error {
	if tx.DryRun {
		return nil
	}
	_, err := e.Gateway.ExecSuccess(ctx, []string{
		"install", "-d", "-m", mode,
		"-o", strconv.Itoa(uid), "-g", strconv.Itoa(uid),
		path,
	}, execx.Options{})
	if err != nil {
		return err
	}
	tx.record(AppliedMutation{Kind: MutationCreatedDirectory, Subject: path})
	return nil
}

// EnsureServiceDirectories creates every directory ServiceDirectories
// names, in order, retrying each under retry.System and stopping at the
// first directory that still fails.
func (e *Engine) EnsureServiceDirectories(ctx context.Context, tx *Transaction, user ServiceUser, service string) error {
	for _, dir := range e.Settings.ServiceDirectories(user, service) {
		err := retry.Do(ctx, retry.System, nil, func(ctx context.Context) error {
			return e.EnsureDirectory(ctx, tx, dir, user.UID, "0750")
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// removeDirectory undoes EnsureDirectory during rollback. Best-effort: a
// directory that was never created, or already removed, is not an error.
func (e *Engine) removeDirectory(ctx context.Context, path string) error {
	_, err := e.Gateway.ExecSuccess(ctx, []string{"rm", "-rf", path}, execx.Options{})
	return err
}
