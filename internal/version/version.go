// Package version implements the total order used to rank version
// identifiers, so that the "latest" version of a module can be resolved
// from the set of identifiers on disk.
//
// Identifiers are dotted numbers with optional qualifiers, in the style of
// Maven artifact versions:
//
//	1 < 1.1 < 1.1.1-alpha < 1.1.1-beta2 < 1.1.1-rc1 < 1.1.1-SNAPSHOT < 1.1.1 < 1.1.1-sp1
//
// Parsing never fails: every string, including the empty string, has a
// position in the order.
package version

import (
	"math/big"
	"strings"
)

// Qualifier ranking, lowest first. The empty qualifier is a plain release.
// Qualifiers not in this table rank above all of them and compare
// lexicographically among themselves.
var qualifiers = []string{"alpha", "beta", "milestone", "rc", "snapshot", "", "sp"}

var aliases = map[string]string{
	"ga":      "",
	"final":   "",
	"release": "",
	"cr":      "rc",
}

// releaseRank is the rank of the empty (release) qualifier.
var releaseRank = qualifierRank("")

type item interface {
	// compare orders the receiver against other; other may be nil, meaning
	// the receiver's list has an element where the opposing list has none.
	compare(other item) int
	isNull() bool
	String() string
}

type intItem struct{ v *big.Int }

type stringItem struct{ v string }

type listItem struct{ items []item }

// Version is a parsed identifier. The zero value orders like the empty
// string.
type Version struct {
	raw  string
	list *listItem
}

// Parse tokenizes s into its comparable form.
func Parse(s string) Version {
	return Version{raw: s, list: parse(s)}
}

// String returns the identifier as given to Parse.
func (v Version) String() string {
	return v.raw
}

// Canonical returns the normalized form of the identifier. Two versions
// compare equal exactly when their canonical forms are equal.
func (v Version) Canonical() string {
	if v.list == nil {
		return ""
	}
	return v.list.String()
}

// Compare returns -1, 0 or +1 as v sorts before, equal to, or after o.
func (v Version) Compare(o Version) int {
	return v.items().compare(o.items())
}

func (v Version) items() *listItem {
	if v.list == nil {
		return &listItem{}
	}
	return v.list
}

// Compare orders two identifiers. It is a pure function and defines a
// total order: antisymmetric, transitive, and total over all strings.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

func parse(s string) *listItem {
	s = strings.ToLower(s)

	main := &listItem{}
	list := main
	stack := []*listItem{main}

	isDigit := false
	start := 0

	push := func() {
		sub := &listItem{}
		list.items = append(list.items, sub)
		list = sub
		stack = append(stack, sub)
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if i == start {
				list.items = append(list.items, zeroItem())
			} else {
				list.items = append(list.items, parseItem(isDigit, s[start:i]))
			}
			start = i + 1
		case c == '-':
			if i == start {
				list.items = append(list.items, zeroItem())
			} else {
				list.items = append(list.items, parseItem(isDigit, s[start:i]))
			}
			start = i + 1
			push()
		case c >= '0' && c <= '9':
			if !isDigit && i > start {
				list.items = append(list.items, newStringItem(s[start:i], true))
				start = i
				push()
			}
			isDigit = true
		default:
			if isDigit && i > start {
				list.items = append(list.items, parseItem(true, s[start:i]))
				start = i
				push()
			}
			isDigit = false
		}
	}

	if len(s) > start {
		list.items = append(list.items, parseItem(isDigit, s[start:]))
	}

	for i := len(stack) - 1; i >= 0; i-- {
		stack[i].normalize()
	}
	return main
}

func parseItem(isDigit bool, tok string) item {
	if isDigit {
		n, ok := new(big.Int).SetString(tok, 10)
		if ok {
			return intItem{v: n}
		}
	}
	return newStringItem(tok, false)
}

func zeroItem() item {
	return intItem{v: new(big.Int)}
}

func newStringItem(tok string, followedByDigit bool) stringItem {
	if followedByDigit && len(tok) == 1 {
		switch tok {
		case "a":
			tok = "alpha"
		case "b":
			tok = "beta"
		case "m":
			tok = "milestone"
		}
	}
	if alias, ok := aliases[tok]; ok {
		tok = alias
	}
	return stringItem{v: tok}
}

// qualifierRank maps a qualifier onto a string whose lexical order is the
// qualifier order. Known qualifiers map to their single-digit index;
// unknown ones to "<len(qualifiers)>-<q>", which sorts after every index.
func qualifierRank(q string) string {
	for i, known := range qualifiers {
		if known == q {
			return string(rune('0' + i))
		}
	}
	return string(rune('0'+len(qualifiers))) + "-" + q
}

func (i intItem) isNull() bool {
	return i.v.Sign() == 0
}

func (i intItem) String() string {
	return i.v.String()
}

func (i intItem) compare(other item) int {
	switch o := other.(type) {
	case nil:
		if i.v.Sign() == 0 {
			return 0
		}
		return 1
	case intItem:
		return i.v.Cmp(o.v)
	case stringItem:
		return 1
	case *listItem:
		return 1
	}
	return 0
}

func (s stringItem) isNull() bool {
	return qualifierRank(s.v) == releaseRank
}

func (s stringItem) String() string {
	return s.v
}

func (s stringItem) compare(other item) int {
	switch o := other.(type) {
	case nil:
		return strings.Compare(qualifierRank(s.v), releaseRank)
	case intItem:
		return -1
	case stringItem:
		return strings.Compare(qualifierRank(s.v), qualifierRank(o.v))
	case *listItem:
		return -1
	}
	return 0
}

func (l *listItem) isNull() bool {
	return len(l.items) == 0
}

// normalize drops trailing null items so that "1.0.0" and "1" share a
// form. Trailing sub-lists are skipped over, not stopped at, which is
// how "1.0-alpha" collapses to "1-alpha".
func (l *listItem) normalize() {
	for i := len(l.items) - 1; i >= 0; i-- {
		last := l.items[i]
		if last.isNull() {
			l.items = append(l.items[:i], l.items[i+1:]...)
			continue
		}
		if _, ok := last.(*listItem); !ok {
			break
		}
	}
}

func (l *listItem) String() string {
	var b strings.Builder
	for i, it := range l.items {
		if i > 0 {
			if _, ok := it.(*listItem); ok {
				b.WriteByte('-')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString(it.String())
	}
	return b.String()
}

func (l *listItem) compare(other item) int {
	switch o := other.(type) {
	case nil:
		if len(l.items) == 0 {
			return 0
		}
		return l.items[0].compare(nil)
	case intItem:
		return -1
	case stringItem:
		return 1
	case *listItem:
		n := max(len(l.items), len(o.items))
		for i := 0; i < n; i++ {
			var left, right item
			if i < len(l.items) {
				left = l.items[i]
			}
			if i < len(o.items) {
				right = o.items[i]
			}
			var result int
			if left == nil {
				if right != nil {
					result = -right.compare(nil)
				}
			} else {
				result = left.compare(right)
			}
			if result != 0 {
				return result
			}
		}
	}
	return 0
}
