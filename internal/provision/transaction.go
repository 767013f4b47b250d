package provision

import "context"

// Transaction is one provisioning attempt's in-memory rollback log, scoped
// to a single call -- distinct from the persistent cross-run journal
// (internal/journal), which records completed transactions for later
// inspection. DryRun skips every host-mutating step and records nothing;
// the skipped steps are not listed anywhere. Force is required before
// Remove's destructive steps.
type Transaction struct {
	DryRun bool
	Force  bool
	log    []AppliedMutation
}

// NewTransaction constructs an empty Transaction.
func NewTransaction(dryRun, force bool) *Transaction {
	return &Transaction{DryRun: dryRun, Force: force}
}

func (t *Transaction) record(m AppliedMutation) {
	t.log = append(t.log, m)
}

// Log returns the mutations applied so far, oldest first.
func (t *Transaction) Log() []AppliedMutation {
	return t.log
}

// Rollback replays the transaction's log in reverse, undoing each step
// through e. Rollback errors are logged but never mask the original
// failure that triggered the rollback -- callers pass that original error
// through untouched; Rollback's own return value is purely informational.
func (e *Engine) Rollback(ctx context.Context, tx *Transaction) []error {
	var errs []error
	log := tx.Log()
	for i := len(log) - 1; i >= 0; i-- {
		m := log[i]
		if err := e.invert(ctx, m); err != nil {
			e.Logger.Warn("rollback step failed", "kind", m.Kind, "subject", m.Subject, "error", err)
			errs = append(errs, err)
		}
	}
	return errs
}

func (e *Engine) invert(ctx context.Context, m AppliedMutation) error {
	switch m.Kind {
	case MutationCreatedUser:
		return e.deleteUser(ctx, m.Subject)
	case MutationCreatedDirectory:
		return e.removeDirectory(ctx, m.Subject)
	case MutationEnabledLinger:
		return e.disableLinger(ctx, m.Subject)
	case MutationAppendedSubRange:
		return e.removeSubRangeEntries(m.Subject)
	case MutationAllocatedUID:
		// No standalone inverse: an allocated-but-unused UID is free again
		// the next time UsedUIDs() is read fresh, since nothing else
		// references it once the user that would have claimed it is gone.
		return nil
	default:
		return nil
	}
}
