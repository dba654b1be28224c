package sanitizer

func NormalizeStringSlice(items []string, normalizer func(string) string) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" {
			continue
		}

		if seen[normalized] {
			continue
		}

		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

// UniqueIDs drops blanks and duplicates while keeping first-seen order.
func UniqueIDs(ids []string) []string {
	return NormalizeStringSlice(ids, TrimAndNormalize)
}

// MatchKeys folds every name and alias into a set of comparison keys.
func MatchKeys(names ...string) map[string]struct{} {
	keys := make(map[string]struct{}, len(names))
	for _, n := range NormalizeStringSlice(names, MatchKey) {
		keys[n] = struct{}{}
	}
	return keys
}
