package store

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameFolder strips diacritics so "Münchner Malz" and "Munchner Malz" score
// as the same name.
var nameFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName folds a catalog or imported name into its comparison form:
// diacritics removed, lowercased, punctuation collapsed to single spaces.
func normalizeName(s string) string {
	folded, _, err := transform.String(nameFolder, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// similarity scores how likely two ingredient names refer to the same thing,
// in [0, 1], with human-readable reasons for the decision surface. Edit
// similarity catches typos; token overlap catches reorderings and partial
// names like "Goldings" vs "East Kent Goldings".
func similarity(imported, candidate string) (float64, []string) {
	a, b := normalizeName(imported), normalizeName(candidate)
	if a == "" || b == "" {
		return 0, nil
	}
	if a == b {
		return 1, []string{"exact name match"}
	}

	lev := levenshteinRatio(a, b)
	shared, total := tokenOverlap(a, b)
	jaccard := 0.0
	if total > 0 {
		jaccard = float64(shared) / float64(total)
	}

	score := 0.6*lev + 0.4*jaccard

	var reasons []string
	if lev >= 0.5 {
		reasons = append(reasons, fmt.Sprintf("edit similarity %.2f", lev))
	}
	if shared > 0 {
		reasons = append(reasons, fmt.Sprintf("shares %d of %d name tokens", shared, total))
	}
	return score, reasons
}

// levenshteinRatio converts edit distance into a similarity in [0, 1].
func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// tokenOverlap returns the shared and total distinct tokens of two
// normalized names (the Jaccard numerator and denominator).
func tokenOverlap(a, b string) (shared, total int) {
	seen := make(map[string]bool)
	for _, t := range strings.Fields(a) {
		seen[t] = true
	}
	union := make(map[string]bool)
	for t := range seen {
		union[t] = true
	}
	for _, t := range strings.Fields(b) {
		if seen[t] {
			shared++
			seen[t] = false
		}
		union[t] = true
	}
	return shared, len(union)
}
