package textutil

import (
	"strings"

	"ecourts-backend/lib/htmlutil"

	"github.com/antzucaro/matchr"
)

// NormalizeLabel lowercases, collapses whitespace and trims a label so it
// can be compared against a vocabulary.
func NormalizeLabel(label string) string {
	return strings.ToLower(htmlutil.CleanText(label))
}

// MatchLabel reports whether the normalized label contains any of the
// matchers, matchers are expected to be normalized already.
func MatchLabel(label string, matchers []string) bool {
	label = NormalizeLabel(label)
	for _, m := range matchers {
		if strings.Contains(label, m) {
			return true
		}
	}
	return false
}

// Candidate is anything with a display name that can be fuzzy matched.
type Candidate struct {
	Key  string
	Name string
}

// Closest returns the candidate whose name is most similar to `name` by
// Jaro-Winkler similarity, or false if nothing scores at least `threshold`.
// An exact (case-insensitive) key or name match always wins.
func Closest(name string, candidates []Candidate, threshold float64) (Candidate, bool) {
	target := NormalizeLabel(name)
	if target == "" {
		return Candidate{}, false
	}

	var best Candidate
	bestScore := -1.0
	for _, c := range candidates {
		if strings.EqualFold(c.Key, target) || NormalizeLabel(c.Name) == target {
			return c, true
		}
		score := matchr.JaroWinkler(target, NormalizeLabel(c.Name), false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	if bestScore < threshold {
		return Candidate{}, false
	}
	return best, true
}
