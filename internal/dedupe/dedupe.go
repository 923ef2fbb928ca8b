// Package dedupe collapses near-duplicate posts by normalized-text edit
// distance, so the same take reshared with a different tracking URL only
// shows up once on the chart.
package dedupe

import (
	"regexp"
	"strings"

	"github.com/bakkerme/chartbuzz/internal/twitter"
)

// DefaultThreshold is empirical: high enough that retweets with altered URLs
// collapse, low enough that distinct posts about the same token survive.
const DefaultThreshold = 0.9

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Filter drops posts whose normalized text is more similar than Threshold to
// any post already accepted. The comparison is strict: a score equal to the
// threshold keeps both posts.
type Filter struct {
	Threshold float64
}

// New returns a Filter with the given threshold, falling back to
// DefaultThreshold when it is not in (0, 1].
func New(threshold float64) *Filter {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Filter{Threshold: threshold}
}

// Dedupe returns the surviving posts in their original order. The first of a
// near-duplicate group wins.
func (f *Filter) Dedupe(posts []twitter.Post) []twitter.Post {
	unique := make([]twitter.Post, 0, len(posts))
	seen := make([]string, 0, len(posts))

	for _, post := range posts {
		normalized := Normalize(post.Text)

		duplicate := false
		for _, text := range seen {
			if Similarity(normalized, text) > f.Threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		seen = append(seen, normalized)
		unique = append(unique, post)
	}

	return unique
}

// Normalize lower-cases text, strips http/https URLs and trims surrounding
// whitespace. Empty input normalizes to the empty string.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Similarity scores two strings as 1 - editDistance/maxLen over case-folded
// runes. Two empty strings score 1.0.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return float64(longest-editDistance(ra, rb)) / float64(longest)
}

// editDistance is classic Levenshtein distance with a two-row table.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
