package matcher

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	bracketRe    = regexp.MustCompile(`\s*[\[\(\{][^\]\)\}]*[\]\)\}]`)
	featRe       = regexp.MustCompile(`(?i)\s+(?:feat|ft)\.?\s.*$`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// CleanTitle lowercases s and keeps only letters and digits of any script, CJK ideographs included.
func CleanTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TitleSimilarity is the longest common subsequence of the cleaned titles over the longer length.
func TitleSimilarity(a, b string) float64 {
	ra, rb := []rune(CleanTitle(a)), []rune(CleanTitle(b))
	longest := max(len(ra), len(rb))
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return float64(lcs(ra, rb)) / float64(longest)
}

// lcs computes the subsequence length with a single rolling row.
func lcs(a, b []rune) int {
	row := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		diag := 0
		for j := 1; j <= len(b); j++ {
			up := row[j]
			if a[i-1] == b[j-1] {
				row[j] = diag + 1
			} else if row[j-1] > row[j] {
				row[j] = row[j-1]
			}
			diag = up
		}
	}
	return row[len(b)]
}

// SearchQuery builds remote search text, dropping bracketed segments and featured-artist credits.
func SearchQuery(title, artist string, withArtist bool) string {
	q := bracketRe.ReplaceAllString(title, "")
	q = featRe.ReplaceAllString(q, "")
	if strings.TrimSpace(q) == "" {
		q = title
	}
	if withArtist && artist != "" {
		q += " " + artist
	}
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(q, " "))
}
