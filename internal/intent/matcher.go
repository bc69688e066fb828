package intent

import (
	"math/rand/v2"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity ratio required to accept a fuzzy
// match when no exact or containment match exists.
const DefaultCutoff = 0.60

// Result is the outcome of one matching attempt. Matched false means no
// catalog entry applied and the caller should fall through to the generative
// collaborator.
type Result struct {
	Matched      bool
	Tag          string
	Response     string
	Score        float64
	PatternIndex int
}

// Matcher scores user text against a catalog. Strategies are tried in order,
// first success wins: exact equality, substring containment, then sequence
// similarity against the cutoff. Within each strategy ties are broken by
// catalog order, which makes catalog ordering a deliberate priority between
// intents sharing a pattern.
//
// Match never fails; the zero Result reports a non-match.
type Matcher struct {
	catalog *Catalog
	cutoff  float64
	pick    func(n int) int // response picker, uniform by default
}

// NewMatcher creates a Matcher over the given catalog. A cutoff <= 0 selects
// DefaultCutoff.
func NewMatcher(c *Catalog, cutoff float64) *Matcher {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	return &Matcher{catalog: c, cutoff: cutoff, pick: rand.IntN}
}

// Match finds the best catalog entry for the given raw user text.
func (m *Matcher) Match(text string) Result {
	norm := Normalize(text)
	if norm == "" {
		return Result{}
	}
	entries := m.catalog.Entries()

	for _, e := range entries {
		if m.skip(e) {
			continue
		}
		if e.Pattern == norm {
			return m.accept(e, 1.0)
		}
	}

	for _, e := range entries {
		if m.skip(e) {
			continue
		}
		if strings.Contains(norm, e.Pattern) || strings.Contains(e.Pattern, norm) {
			return m.accept(e, Ratio(norm, e.Pattern))
		}
	}

	var (
		best      Entry
		bestScore float64
		found     bool
	)
	for _, e := range entries {
		if m.skip(e) {
			continue
		}
		// Strict > keeps the first entry seen with the maximum score.
		if r := Ratio(norm, e.Pattern); r > bestScore {
			best, bestScore, found = e, r, true
		}
	}
	if found && bestScore >= m.cutoff {
		return m.accept(best, bestScore)
	}

	return Result{}
}

// skip reports whether an entry can never be surfaced: it belongs to the
// designated fallback intent, or its intent has no responses to give.
func (m *Matcher) skip(e Entry) bool {
	if m.catalog.fallbackTag != "" && e.Tag == m.catalog.fallbackTag {
		return true
	}
	return len(m.catalog.owner(e).Responses) == 0
}

func (m *Matcher) accept(e Entry, score float64) Result {
	return Result{
		Matched:      true,
		Tag:          e.Tag,
		Response:     m.selectResponse(m.catalog.owner(e), e.PatternIndex),
		Score:        score,
		PatternIndex: e.PatternIndex,
	}
}

// selectResponse prefers the response aligned with the matched pattern's
// index, then a sole response, then a uniform random choice.
func (m *Matcher) selectResponse(in Intent, patternIndex int) string {
	rs := in.Responses
	switch {
	case patternIndex < len(rs):
		return rs[patternIndex]
	case len(rs) == 1:
		return rs[0]
	default:
		return rs[m.pick(len(rs))]
	}
}

// Ratio is the symmetric sequence similarity of two strings in [0, 1]:
// matching character runs over total length, the classic sequence-matcher
// ratio rather than an edit distance.
func Ratio(a, b string) float64 {
	sm := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return sm.Ratio()
}
