package provision

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/hostinventory"
)

// maxSubID is the highest ID a subordinate range may reach, per spec
// §4.6.2.
const maxSubID = 4294967294

// AllocateSubRange acquires the subuid-allocation lock, reads existing
// ranges sorted by start, and linearly scans for the first gap of size
// size starting no earlier than SubRangeStart.
func (e *Engine) AllocateSubRange(size int) (hostinventory.SubRange, error) {
	var result hostinventory.SubRange
	err := e.Locks.With(LockSubuidAllocation, func() error {
		ranges, err := e.Inventory.SubRanges()
		if err != nil {
			return err
		}
		sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

		candidate := e.Settings.SubRangeStart
		for _, r := range ranges {
			if candidate+size-1 < r.Start {
				break
			}
			if candidate < r.End+1 {
				candidate = r.End + 1
			}
		}
		if candidate+size-1 > maxSubID {
			return direrr.NewSubRangeExhausted(rangeDesc(candidate, candidate+size-1))
		}
		result = hostinventory.SubRange{Start: candidate, End: candidate + size - 1}
		return nil
	})
	return result, err
}

// AppendSubRange appends "<user>:<start>:<size>\n" to both subuid and
// subgid atomically (read-full, append, write-temp, rename-over), under
// the subid-config lock. Idempotent: if an entry for user already exists
// it succeeds without mutating either file.
func (e *Engine) AppendSubRange(user string, start, size int) error {
	line := user + ":" + strconv.Itoa(start) + ":" + strconv.Itoa(size)
	return e.Locks.With(LockSubidConfig, func() error {
		for _, path := range []string{e.Settings.SubuidPath, e.Settings.SubgidPath} {
			if err := appendLineIdempotent(path, user, line); err != nil {
				return err
			}
		}
		return nil
	})
}

func appendLineIdempotent(path, user, line string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return direrr.NewExec("read "+path, err)
	}

	if hasUserEntry(string(content), user) {
		return nil
	}

	out := string(content)
	if len(out) > 0 && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	out += line + "\n"

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(out), 0o644); err != nil {
		return direrr.NewExec("write "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return direrr.NewExec("rename "+tmp+" -> "+path, err)
	}
	return nil
}

func hasUserEntry(content, user string) bool {
	scanner := bufio.NewScanner(strings.NewReader(content))
	prefix := user + ":"
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), prefix) {
			return true
		}
	}
	return false
}

// removeSubRangeEntries drops user's line from both subuid and subgid,
// under the subid-config lock. Missing entries are not an error.
func (e *Engine) removeSubRangeEntries(user string) error {
	return e.Locks.With(LockSubidConfig, func() error {
		for _, path := range []string{e.Settings.SubuidPath, e.Settings.SubgidPath} {
			if err := removeLineForUser(path, user); err != nil {
				return err
			}
		}
		return nil
	})
}

func removeLineForUser(path, user string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return direrr.NewExec("read "+path, err)
	}

	prefix := user + ":"
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	var kept []string
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}

	out := strings.Join(kept, "\n")
	if len(out) > 0 {
		out += "\n"
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(out), 0o644); err != nil {
		return direrr.NewExec("write "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return direrr.NewExec("rename "+tmp+" -> "+path, err)
	}
	return nil
}
