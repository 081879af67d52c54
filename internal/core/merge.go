package core

// MergeResult is the outcome of merging an incoming batch into a collection.
type MergeResult struct {
	Merged  []Talk
	Added   int
	Skipped int
}

// Merge appends the incoming talks whose title does not already exist in
// existing, preserving incoming order. Titles are compared exactly.
//
// Only the pre-merge collection is consulted, so two incoming talks that
// share a title are both kept. Neither input slice is modified.
func Merge(existing, incoming []Talk) MergeResult {
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[t.Title] = struct{}{}
	}

	merged := make([]Talk, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	result := MergeResult{}
	for _, t := range incoming {
		if _, dup := seen[t.Title]; dup {
			result.Skipped++
			continue
		}
		merged = append(merged, t)
		result.Added++
	}

	result.Merged = merged
	return result
}

// NewTalks returns the talks Merge appended.
func (r MergeResult) NewTalks() []Talk {
	if r.Added == 0 {
		return nil
	}
	return r.Merged[len(r.Merged)-r.Added:]
}
