package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/execx"
	"github.com/aryonoco/divban/internal/retry"
)

// ProvisionServiceUser implements spec §4.6.3: if the user already exists,
// its UID/home/shell are verified and the existing record is returned
// (mismatch is a hard failure, not a repair). Otherwise a new user is
// created, its UID allocated with collision retry, and a subordinate
// range appended -- atomically and idempotently.
func (e *Engine) ProvisionServiceUser(ctx context.Context, tx *Transaction, service string) (*ServiceUser, error) {
	username := e.Settings.Username(service)
	home := "/home/" + username
	shell := e.Inventory.NologinShell()

	exists, err := e.Inventory.UserExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return e.verifyExistingUser(ctx, username, home, shell)
	}

	var uid int
	err = retry.Do(ctx, retry.Schedule{Spacing: retry.Quick.Spacing, Exponential: true, Jittered: true, Retries: 3}, nil, func(ctx context.Context) error {
		var allocErr error
		uid, allocErr = e.AllocateUID(ctx)
		return allocErr
	})
	if err != nil {
		return nil, err
	}
	if tx.DryRun {
		return &ServiceUser{Name: username, UID: uid, Home: home, Shell: shell}, nil
	}
	tx.record(AppliedMutation{Kind: MutationAllocatedUID, Subject: username})

	comment := fmt.Sprintf("divban service account (%s)", service)
	if _, err := e.Gateway.ExecSuccess(ctx, []string{
		"useradd", "--create-home", "--shell", shell, "--comment", comment, username,
	}, execx.Options{}); err != nil {
		return nil, err
	}
	// Point of no return: every subsequent failure rolls back by deleting
	// the user, per spec §4.6.3 step 2c.
	tx.record(AppliedMutation{Kind: MutationCreatedUser, Subject: username})

	subRange, err := e.AllocateSubRange(e.Settings.SubRangeSize)
	if err != nil {
		return nil, err
	}
	if err := e.AppendSubRange(username, subRange.Start, e.Settings.SubRangeSize); err != nil {
		return nil, err
	}
	tx.record(AppliedMutation{Kind: MutationAppendedSubRange, Subject: username, Extra: rangeDesc(subRange.Start, subRange.End)})

	return &ServiceUser{Name: username, UID: uid, Home: home, Shell: shell}, nil
}

func (e *Engine) verifyExistingUser(ctx context.Context, username, wantHome, wantShell string) (*ServiceUser, error) {
	uid, err := e.Inventory.UIDOf(ctx, username)
	if err != nil {
		return nil, err
	}
	res, err := e.Gateway.ExecSuccess(ctx, []string{"getent", "passwd", username}, execx.Options{})
	if err != nil {
		return nil, err
	}
	home, shell := parsePasswdLine(res.Stdout)
	if home != wantHome {
		return nil, direrr.NewInvalidConfig("user."+username+".home", "existing home "+home+" does not match expected "+wantHome)
	}
	if !isNologinShell(shell) {
		return nil, direrr.NewInvalidConfig("user."+username+".shell", "existing shell "+shell+" is not a nologin/false shell")
	}
	return &ServiceUser{Name: username, UID: uid, Home: home, Shell: shell}, nil
}

func parsePasswdLine(line string) (home, shell string) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ":")
	if len(fields) >= 6 {
		home = fields[5]
	}
	if len(fields) >= 7 {
		shell = fields[6]
	}
	return
}

func isNologinShell(shell string) bool {
	switch shell {
	case "/usr/sbin/nologin", "/sbin/nologin", "/usr/bin/nologin", "/bin/nologin", "/bin/false":
		return true
	default:
		return false
	}
}
