package rules

// MergeResult reports what a merge did.
type MergeResult struct {
	Rules       []*Rule
	Added       int
	Overwritten int
}

// Merge combines an incoming rule batch into an existing list by rule
// identity. Incoming rules whose identity already exists replace the existing
// entry at its position; the rest are appended in order. Neither input slice
// is modified, and durable storage is untouched: the caller decides whether
// to persist and swap in the merged set, which allows previewing an
// untrusted remote batch before committing it.
func Merge(existing, incoming []*Rule) MergeResult {
	merged := make([]*Rule, len(existing))
	copy(merged, existing)

	index := make(map[Identity]int, len(existing))
	for i, rule := range existing {
		index[rule.Identity()] = i
	}

	result := MergeResult{}
	for _, rule := range incoming {
		if pos, ok := index[rule.Identity()]; ok {
			merged[pos] = rule
			result.Overwritten++
			continue
		}
		index[rule.Identity()] = len(merged)
		merged = append(merged, rule)
		result.Added++
	}

	result.Rules = merged
	return result
}
