package engine

// SubsetPermutations returns every ordering of every non-empty subset of
// cards. Subsets are produced by include/exclude recursion over the input
// (include first), and each subset is followed by all of its orderings.
// n distinct cards yield sum over k of n!/(n-k)! results.
func SubsetPermutations(cards []Card) [][]Card {
	var out [][]Card
	var subset []Card
	var walk func(i int)
	walk = func(i int) {
		if i == len(cards) {
			if len(subset) > 0 {
				out = appendPermutations(out, append([]Card(nil), subset...), 0)
			}
			return
		}
		subset = append(subset, cards[i])
		walk(i + 1)
		subset = subset[:len(subset)-1]
		walk(i + 1)
	}
	walk(0)
	return out
}

// appendPermutations appends every ordering of s[k:] (with s[:k] fixed) using
// swap-based generation.
func appendPermutations(out [][]Card, s []Card, k int) [][]Card {
	if k == len(s)-1 || len(s) == 0 {
		return append(out, append([]Card(nil), s...))
	}
	for i := k; i < len(s); i++ {
		s[k], s[i] = s[i], s[k]
		out = appendPermutations(out, s, k+1)
		s[k], s[i] = s[i], s[k]
	}
	return out
}
