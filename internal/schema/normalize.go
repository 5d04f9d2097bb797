package schema

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity ratio for an approximate match.
const DefaultCutoff = 0.6

// MatchKind says how a candidate name was resolved.
type MatchKind int

const (
	MatchNone    MatchKind = iota // returned unchanged
	MatchSynonym                  // exact synonym lookup
	MatchFuzzy                    // approximate match above the cutoff
)

func (k MatchKind) String() string {
	switch k {
	case MatchSynonym:
		return "synonym"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Match is the outcome of resolving one candidate.
type Match struct {
	Name  string
	Kind  MatchKind
	Ratio float64
}

// Normalizer maps free-form names onto catalog columns. It never fails: a
// name nothing matches comes back unchanged.
type Normalizer struct {
	cat    *Catalog
	cutoff float64
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCutoff overrides DefaultCutoff.
func WithCutoff(c float64) Option {
	return func(n *Normalizer) { n.cutoff = c }
}

// NewNormalizer returns a Normalizer over cat.
func NewNormalizer(cat *Catalog, opts ...Option) *Normalizer {
	n := &Normalizer{cat: cat, cutoff: DefaultCutoff}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Catalog returns the catalog n resolves against.
func (n *Normalizer) Catalog() *Catalog { return n.cat }

// Normalize returns the canonical column for candidate, or candidate itself.
func (n *Normalizer) Normalize(candidate string) string {
	return n.Match(candidate).Name
}

// Match resolves candidate: synonym lookup on the lowercased text first, then
// the best sequence-similarity ratio against each lowercased column. Ties
// go to the column declared first.
func (n *Normalizer) Match(candidate string) Match {
	lower := strings.ToLower(candidate)
	if name, ok := n.cat.Synonym(lower); ok {
		return Match{Name: name, Kind: MatchSynonym, Ratio: 1}
	}

	word := strings.Split(lower, "")
	best, bestRatio := -1, 0.0
	for i, col := range n.cat.lower {
		r := ratio(strings.Split(col, ""), word)
		if r >= n.cutoff && r > bestRatio {
			best, bestRatio = i, r
		}
	}
	if best < 0 {
		return Match{Name: candidate, Kind: MatchNone}
	}
	return Match{Name: n.cat.columns[best], Kind: MatchFuzzy, Ratio: bestRatio}
}

// ratio is 2*M/T over matching blocks, with the column as the first sequence
// and the candidate as the second.
func ratio(col, word []string) float64 {
	if len(col) == 0 && len(word) == 0 {
		return 1
	}
	return difflib.NewMatcher(col, word).Ratio()
}
