package provision

import (
	"context"
	"strconv"
	"time"

	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/execx"
)

// Remove tears down a service's rootless identity, per spec §4.6.6's fixed
// nine-step order. Steps 1-2 (stop containers; remove containers, volumes,
// and networks) are not performed here -- Remove begins at step 3, the
// host-identity teardown proper.
// Force must be set; Remove refuses to run against a Transaction that
// isn't, since every step here is destructive and none is rolled back.
func (e *Engine) Remove(ctx context.Context, tx *Transaction, user ServiceUser, purgeData bool) error {
	if !tx.Force {
		return direrr.NewInvalidArgs("force", "Remove requires Force to be set")
	}
	if tx.DryRun {
		return nil
	}

	// 3. Disable linger so the user scope is not restarted after teardown.
	if err := e.disableLinger(ctx, user.Name); err != nil {
		e.Logger.Warn("disable linger failed during removal", "user", user.Name, "error", err)
	}

	// 4. Stop the user's systemd scope and let it settle.
	if _, err := e.Gateway.ExecAsUser(ctx, user.Name, user.UID, []string{"systemctl", "--user", "stop", "--all"}, execx.Options{}); err != nil {
		e.Logger.Warn("stop user scope failed during removal", "user", user.Name, "error", err)
	}
	time.Sleep(500 * time.Millisecond)

	// 5. Remove the container storage under the user's home.
	if err := e.removeDirectory(ctx, user.Home+"/.local/share/containers"); err != nil {
		e.Logger.Warn("remove container storage failed", "user", user.Name, "error", err)
	}

	// 6. Kill any residual processes owned by the user, escalating.
	uidStr := strconv.Itoa(user.UID)
	_, _ = e.Gateway.Exec(ctx, []string{"pkill", "-U", uidStr}, execx.Options{})
	time.Sleep(500 * time.Millisecond)
	_, _ = e.Gateway.Exec(ctx, []string{"pkill", "-9", "-U", uidStr}, execx.Options{})
	time.Sleep(200 * time.Millisecond)

	// 7. Delete the user account itself.
	if err := e.deleteUser(ctx, user.Name); err != nil {
		return err
	}

	// 8. Optionally purge the service's data directory.
	if purgeData {
		if err := e.removeDirectory(ctx, e.Settings.DataRoot+"/"+serviceFromUsername(e.Settings, user.Name)); err != nil {
			e.Logger.Warn("purge data directory failed", "user", user.Name, "error", err)
		}
	}

	// 9. Remove the user's subuid/subgid entries.
	return e.removeSubRangeEntries(user.Name)
}

// deleteUser removes the account and its home directory.
func (e *Engine) deleteUser(ctx context.Context, username string) error {
	_, err := e.Gateway.ExecSuccess(ctx, []string{"userdel", "--remove", username}, execx.Options{})
	return err
}

func serviceFromUsername(s Settings, username string) string {
	if len(username) > len(s.UsernamePrefix) {
		return username[len(s.UsernamePrefix):]
	}
	return username
}
