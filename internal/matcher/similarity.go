package matcher

import (
	"strings"
	"unicode/utf8"
)

// Similarity scores two normalized utterances in [0,1] as a weighted sum of
// the Jaccard overlap of their content tokens and the normalized edit
// similarity of the content strings. Question-frame words are ignored on
// both sides, so "tell me about a cloud" and "what is a cloud" compare equal.
func (c Config) Similarity(a, b []string) float64 {
	return c.score(a, b, -1)
}

// score computes Similarity. When the result provably cannot reach floor it
// returns early with an upper bound below floor and skips the edit distance.
func (c Config) score(a, b []string, floor float64) float64 {
	overlap := jaccard(a, b)

	sa, sb := strings.Join(a, " "), strings.Join(b, " ")
	la, lb := utf8.RuneCountInString(sa), utf8.RuneCountInString(sb)
	longest := max(la, lb)
	if longest == 0 {
		return c.OverlapWeight*overlap + c.EditWeight
	}

	bound := c.OverlapWeight*overlap + c.EditWeight*float64(min(la, lb))/float64(longest)
	if bound < floor {
		return bound
	}

	edit := 1 - float64(levenshtein(sa, sb))/float64(longest)
	return c.OverlapWeight*overlap + c.EditWeight*edit
}

// jaccard returns |a ∩ b| / |a ∪ b| over token sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]uint8, len(a)+len(b))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	inter := 0
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}

// levenshtein computes the rune edit distance between two strings using two
// rolling rows.
func levenshtein(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
