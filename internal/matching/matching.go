// package matching scores how closely two media titles agree.
//
// Titles are normalised (NFKC, case folded, punctuation stripped) and split into
// tokens. The tokens are sorted so word order does not affect the score, then the
// joined strings are compared by edit distance and scaled onto 0-100.
package matching

import (
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum [Ratio] at which a candidate is accepted.
const DefaultThreshold = 85

// Normalize returns s in NFKC form, case folded, with punctuation and symbols
// replaced by spaces and runs of whitespace collapsed.
func Normalize(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokens returns the sorted tokens of the normalised title.
func Tokens(s string) []string {
	tokens := strings.Fields(Normalize(s))
	slices.Sort(tokens)
	return tokens
}

// Ratio returns a similarity score between 0 and 100. Identical titles after
// normalisation score 100; if either side is empty the score is 0.
func Ratio(a, b string) int {
	x := strings.Join(Tokens(a), " ")
	y := strings.Join(Tokens(b), " ")
	if x == "" || y == "" {
		return 0
	}
	if x == y {
		return 100
	}

	longest := max(len([]rune(x)), len([]rune(y)))
	dist := levenshtein.ComputeDistance(x, y)
	if dist >= longest {
		return 0
	}
	return (200*(longest-dist) + longest) / (2 * longest)
}

// Matches reports whether Ratio(a, b) reaches threshold.
func Matches(a, b string, threshold int) bool {
	return Ratio(a, b) >= threshold
}
