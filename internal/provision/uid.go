package provision

import (
	"context"
	"strconv"

	"github.com/aryonoco/divban/internal/direrr"
)

// AllocateUID acquires the uid-allocation lock, reads a fresh host
// inventory, and returns the first integer in [UIDRangeStart, UIDRangeEnd]
// not already in use. Fails UIDExhausted if none is free.
func (e *Engine) AllocateUID(ctx context.Context) (int, error) {
	var uid int
	err := e.Locks.With(LockUIDAllocation, func() error {
		used, err := e.Inventory.UsedUIDs(ctx)
		if err != nil {
			return err
		}
		for candidate := e.Settings.UIDRangeStart; candidate <= e.Settings.UIDRangeEnd; candidate++ {
			if !used[candidate] {
				uid = candidate
				return nil
			}
		}
		return direrr.NewUIDExhausted(rangeDesc(e.Settings.UIDRangeStart, e.Settings.UIDRangeEnd))
	})
	if err != nil {
		return 0, err
	}
	return uid, nil
}

func rangeDesc(start, end int) string {
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}
