// Package match resolves chat display names against roster names.
//
// The policy is deliberately permissive: a display name matches a roster name
// when any candidate token set built from the display name equals the
// corresponding set built from the roster name. Candidate sets are
// {first,last} (the first two tokens), {first,middle} when a third token
// exists, and the full token set. This tolerates name-order and middle-name
// differences between what a person registered with and what their chat
// profile shows ("Doe Jane" still matches "Jane Amara Doe"), at the cost of
// possible false positives for common first names. There is no fuzzy
// edit-distance scoring; the first roster row that satisfies the policy wins.
package match

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lower performs Unicode-aware lowercasing for name normalization.
var lower = cases.Lower(language.Und)

// Normalize trims a display name, lowercases it, and splits it into ordered
// whitespace-separated tokens. An empty or blank input yields no tokens.
func Normalize(name string) []string {
	return strings.Fields(lower.String(strings.TrimSpace(name)))
}

// tokenSet is a small set of name tokens. Roster rows and display names
// rarely exceed three tokens, so a map keyed by token is plenty.
type tokenSet map[string]struct{}

func newTokenSet(tokens ...string) tokenSet {
	s := make(tokenSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

func (s tokenSet) equal(o tokenSet) bool {
	if len(s) != len(o) {
		return false
	}
	for t := range s {
		if _, ok := o[t]; !ok {
			return false
		}
	}
	return true
}

// candidateSets builds the comparison sets for a token list: the first two
// tokens, first+third when a middle token exists, and the full set.
// Duplicate sets are harmless; equality checks are cheap.
func candidateSets(tokens []string) []tokenSet {
	if len(tokens) == 0 {
		return nil
	}
	var sets []tokenSet
	if len(tokens) >= 2 {
		sets = append(sets, newTokenSet(tokens[0], tokens[1]))
	}
	if len(tokens) >= 3 {
		sets = append(sets, newTokenSet(tokens[0], tokens[2]))
	}
	sets = append(sets, newTokenSet(tokens...))
	return sets
}

// Match scans roster names in order and returns the index of the first name
// whose candidate sets intersect-equal those of the display name. The return
// index is 0-based into names; ok is false when no row satisfies the policy.
func Match(names []string, displayName string) (int, bool) {
	want := candidateSets(Normalize(displayName))
	if len(want) == 0 {
		return 0, false
	}
	for i, name := range names {
		have := candidateSets(Normalize(name))
		if setsOverlap(have, want) {
			return i, true
		}
	}
	return 0, false
}

// setsOverlap reports whether any set in a equals any set in b.
func setsOverlap(a, b []tokenSet) bool {
	for _, x := range a {
		for _, y := range b {
			if x.equal(y) {
				return true
			}
		}
	}
	return false
}
