package command

import (
	"strings"
	"unicode"
)

// matchLabel finds the query as a case-insensitive subsequence of the
// label using a greedy left-to-right scan. Returns the matched rune
// indices, or nil when the query does not match.
func matchLabel(query, label string) []int {
	queryRunes := []rune(strings.ToLower(query))
	labelRunes := []rune(strings.ToLower(label))
	if len(queryRunes) == 0 || len(labelRunes) == 0 {
		return nil
	}

	matches := make([]int, 0, len(queryRunes))
	queryIdx := 0
	for i := 0; i < len(labelRunes) && queryIdx < len(queryRunes); i++ {
		if labelRunes[i] == queryRunes[queryIdx] {
			matches = append(matches, i)
			queryIdx++
		}
	}
	if queryIdx != len(queryRunes) {
		return nil
	}
	return matches
}

// scoreMatch rates a subsequence match. Higher is better. Consecutive
// runs, word-boundary hits, and prefix matches rate above scattered
// matches in long labels.
func scoreMatch(query, label string, matches []int) int {
	if len(matches) == 0 {
		return 0
	}
	queryRunes := []rune(strings.ToLower(query))
	labelRunes := []rune(label)
	lowerRunes := []rune(strings.ToLower(label))

	score := 100

	for i := 1; i < len(matches); i++ {
		if matches[i] == matches[i-1]+1 {
			score += 20
		}
	}

	for _, idx := range matches {
		if isWordBoundary(labelRunes, idx) {
			score += 15
		}
	}

	if matches[0] == 0 {
		score += 25
	}

	if len(matches) > 1 {
		gap := matches[len(matches)-1] - matches[0] - len(matches) + 1
		if gap > 0 {
			score -= gap * 2
		}
	}
	score -= matches[0]

	if len(lowerRunes) < 20 {
		score += 20 - len(lowerRunes)
	}

	if len(lowerRunes) >= len(queryRunes) {
		isPrefix := true
		for i, qr := range queryRunes {
			if lowerRunes[i] != qr {
				isPrefix = false
				break
			}
		}
		if isPrefix {
			score += 50
		}
	}

	if score < 1 {
		score = 1
	}
	return score
}

// isWordBoundary reports whether the rune at idx starts a word: the label
// start, after space or punctuation, or a camelCase transition.
func isWordBoundary(runes []rune, idx int) bool {
	if idx == 0 {
		return true
	}
	if idx >= len(runes) {
		return false
	}
	prev, curr := runes[idx-1], runes[idx]
	if unicode.IsSpace(prev) || unicode.IsPunct(prev) {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(curr)
}
