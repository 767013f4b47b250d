package quadlet

import "github.com/aryonoco/divban/internal/entry"

// toRecordEntries adapts the compiler's own RecordPair slices to the entry
// algebra's RecordEntry shape, keeping the two packages' public types
// independent while sharing the same ordered-pair plumbing underneath.
func toRecordEntries(pairs []RecordPair) []entry.RecordEntry {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]entry.RecordEntry, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, entry.RecordEntry{Key: p.Key, Value: p.Value})
	}
	return out
}
