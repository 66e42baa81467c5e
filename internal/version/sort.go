package version

import (
	"golang.org/x/exp/slices"
)

// Max returns the greatest identifier in vs. The second result is false
// when vs is empty. When several identifiers compare equal (for example
// "1.0" and "1.0.0") the lexically greatest spelling wins, so the result
// does not depend on the order of vs.
func Max(vs []string) (string, bool) {
	if len(vs) == 0 {
		return "", false
	}
	best := Parse(vs[0])
	for _, s := range vs[1:] {
		v := Parse(s)
		c := v.Compare(best)
		if c > 0 || (c == 0 && s > best.raw) {
			best = v
		}
	}
	return best.raw, true
}

// Sort orders vs ascending in place, breaking ties between equal
// identifiers by their spelling.
func Sort(vs []string) {
	slices.SortFunc(vs, func(a, b string) int {
		if c := Compare(a, b); c != 0 {
			return c
		}
		return compareStrings(a, b)
	})
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
