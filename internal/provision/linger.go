package provision

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/execx"
	"github.com/aryonoco/divban/internal/retry"
)

// EnableLinger implements spec §4.6.4: if the linger marker already exists
// the user scope is assumed usable and this is a no-op. Otherwise it
// invokes loginctl enable-linger, re-checks the marker, starts the user
// scope, and polls for the session bus socket to appear (100ms interval,
// 30s cap) before declaring the user session usable.
func (e *Engine) EnableLinger(ctx context.Context, tx *Transaction, username string, uid int) error {
	if e.Inventory.LingerEnabled(username) {
		return nil
	}
	if tx.DryRun {
		return nil
	}

	if _, err := e.Gateway.ExecSuccess(ctx, []string{"loginctl", "enable-linger", username}, execx.Options{}); err != nil {
		return err
	}
	if !e.Inventory.LingerEnabled(username) {
		return direrr.NewLingerFailed(username, nil)
	}
	tx.record(AppliedMutation{Kind: MutationEnabledLinger, Subject: username})

	if _, err := e.Gateway.ExecAsUser(ctx, username, uid, []string{"systemctl", "--user", "start", "dbus.socket"}, execx.Options{}); err != nil {
		return err
	}

	busPath := "/run/user/" + strconv.Itoa(uid) + "/bus"
	ready, err := retry.Poll(ctx, 100*time.Millisecond, 30*time.Second, func(ctx context.Context) (bool, error) {
		_, statErr := os.Stat(busPath)
		return statErr == nil, nil
	})
	if err != nil {
		return direrr.NewLingerFailed(username, err)
	}
	if !ready {
		return direrr.NewLingerFailed(username, nil)
	}
	return nil
}

// disableLinger undoes EnableLinger during rollback.
func (e *Engine) disableLinger(ctx context.Context, username string) error {
	_, err := e.Gateway.ExecSuccess(ctx, []string{"loginctl", "disable-linger", username}, execx.Options{})
	return err
}
