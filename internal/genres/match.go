package genres

import "strings"

// MaxSubstringMatches caps the result of the substring pass.
const MaxSubstringMatches = 5

// Match maps aiGenres onto available, returning entries of available in their original casing.
//
// Exact matches (case-insensitive) are returned when there are any. Only if none exist, genres that
// contain or are contained in an available genre are collected, deduplicated and truncated to
// [MaxSubstringMatches].
func Match(aiGenres, available []string) []string {
	matches := []string{}
	if len(aiGenres) == 0 || len(available) == 0 {
		return matches
	}

	wanted := make([]string, 0, len(aiGenres))
	for _, g := range aiGenres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			wanted = append(wanted, g)
		}
	}

	lowered := make([]string, len(available))
	for i, a := range available {
		lowered[i] = strings.ToLower(strings.TrimSpace(a))
	}

	seen := make(map[string]bool)
	for _, g := range wanted {
		for i, a := range lowered {
			if a == g && !seen[a] {
				seen[a] = true
				matches = append(matches, available[i])
			}
		}
	}
	if len(matches) > 0 {
		return matches
	}

	for _, g := range wanted {
		for i, a := range lowered {
			if a == "" || seen[a] {
				continue
			}
			if strings.Contains(a, g) || strings.Contains(g, a) {
				seen[a] = true
				matches = append(matches, available[i])
				if len(matches) == MaxSubstringMatches {
					return matches
				}
			}
		}
	}
	return matches
}
