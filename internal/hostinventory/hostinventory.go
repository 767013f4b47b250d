// Package hostinventory is the Host Inventory: a read-only surface over
// host identity/security state, pure with respect to the host at the
// moment of invocation. Every query here either reads a well-known file or
// shells out to a read-only system command through the Process Gateway.
package hostinventory

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/execx"
)

// SubRange is one allocated subordinate UID/GID range, as recorded in
// /etc/subuid or /etc/subgid.
type SubRange struct {
	User  string
	Start int
	End   int
}

// Inventory queries host identity/security state through gateway, reading
// the passwd/subuid files at passwdPath/subuidPath (overridable in tests).
type Inventory struct {
	gateway    *execx.Gateway
	passwdPath string
	subuidPath string
	lingerDir  string
}

// New constructs an Inventory with the real host paths.
func New(gateway *execx.Gateway) *Inventory {
	return &Inventory{
		gateway:    gateway,
		passwdPath: "/etc/passwd",
		subuidPath: "/etc/subuid",
		lingerDir:  "/var/lib/systemd/linger",
	}
}

// WithPaths returns a copy of the Inventory reading from the given paths
// instead of the real host locations, for tests.
func (i *Inventory) WithPaths(passwdPath, subuidPath, lingerDir string) *Inventory {
	c := *i
	c.passwdPath = passwdPath
	c.subuidPath = subuidPath
	c.lingerDir = lingerDir
	return &c
}

// UsedUIDs returns the union of UIDs parsed from the passwd file and from
// `getent passwd`. A getent failure is not an error -- systems without an
// NSS switch still yield the file-based set.
func (i *Inventory) UsedUIDs(ctx context.Context) (map[int]bool, error) {
	uids := make(map[int]bool)

	f, err := os.Open(i.passwdPath)
	if err != nil {
		return nil, direrr.NewExec("read "+i.passwdPath, err)
	}
	defer f.Close()

	if err := scanPasswdUIDs(f, uids); err != nil {
		return nil, err
	}

	res, err := i.gateway.Exec(ctx, []string{"getent", "passwd"}, execx.Options{})
	if err == nil && res.ExitCode == 0 {
		_ = scanPasswdUIDs(strings.NewReader(res.Stdout), uids)
	}

	return uids, nil
}

func scanPasswdUIDs(r io.Reader, uids map[int]bool) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 3 {
			continue
		}
		uid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		uids[uid] = true
	}
	return scanner.Err()
}

// SubRanges parses /etc/subuid into the list of allocated ranges.
func (i *Inventory) SubRanges() ([]SubRange, error) {
	f, err := os.Open(i.subuidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, direrr.NewExec("read "+i.subuidPath, err)
	}
	defer f.Close()

	var ranges []SubRange
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) != 3 {
			continue
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		ranges = append(ranges, SubRange{User: fields[0], Start: start, End: start + size - 1})
	}
	if err := scanner.Err(); err != nil {
		return nil, direrr.NewExec("read "+i.subuidPath, err)
	}
	return ranges, nil
}

// UIDOf resolves username's UID via `id -u`. Fails NotFound if the user
// does not exist.
func (i *Inventory) UIDOf(ctx context.Context, username string) (int, error) {
	res, err := i.gateway.Exec(ctx, []string{"id", "-u", username}, execx.Options{})
	if err != nil {
		return 0, direrr.NewExec("id -u "+username, err)
	}
	if res.ExitCode != 0 {
		return 0, direrr.NewNotFound("user", username)
	}
	uid, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, direrr.NewExec("id -u "+username, err)
	}
	return uid, nil
}

// UserExists reports whether username resolves via `id`.
func (i *Inventory) UserExists(ctx context.Context, username string) (bool, error) {
	res, err := i.gateway.Exec(ctx, []string{"id", username}, execx.Options{})
	if err != nil {
		return false, direrr.NewExec("id "+username, err)
	}
	return res.ExitCode == 0, nil
}

// SELinuxMode is the closed sum of getenforce's possible reports.
type SELinuxMode int

// SELinux modes.
const (
	SELinuxDisabled SELinuxMode = iota
	SELinuxEnforcing
	SELinuxPermissive
)

// SELinuxMode reports disabled if getenforce is absent or fails, otherwise
// the mode from its stdout (case-insensitive).
func (i *Inventory) SELinuxMode(ctx context.Context) SELinuxMode {
	res, err := i.gateway.Exec(ctx, []string{"getenforce"}, execx.Options{})
	if err != nil || res.ExitCode != 0 {
		return SELinuxDisabled
	}
	switch strings.ToLower(strings.TrimSpace(res.Stdout)) {
	case "enforcing":
		return SELinuxEnforcing
	case "permissive":
		return SELinuxPermissive
	default:
		return SELinuxDisabled
	}
}

// canonicalNologinShells is the search order for NologinShell.
var canonicalNologinShells = []string{
	"/usr/sbin/nologin",
	"/sbin/nologin",
	"/usr/bin/nologin",
	"/bin/nologin",
}

// NologinShell returns the first existing path from the canonical nologin
// list, falling back to /bin/false.
func (i *Inventory) NologinShell() string {
	for _, path := range canonicalNologinShells {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "/bin/false"
}

// LingerEnabled reports whether the linger marker file exists for username.
func (i *Inventory) LingerEnabled(username string) bool {
	_, err := os.Stat(i.lingerDir + "/" + username)
	return err == nil
}
