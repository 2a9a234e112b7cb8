package version

import (
	"regexp"
	"strings"
)

var (
	letterDigit = regexp.MustCompile(`([a-zA-Z])(\d)`)
	digitLetter = regexp.MustCompile(`(\d)([a-zA-Z])`)
	separators  = regexp.MustCompile(`[._\-+]`)
)

// DefaultSpecialMeanings rank well known qualifiers. Unlisted qualifiers
// rank 0.
var DefaultSpecialMeanings = map[string]int{
	"dev":   -1,
	"rc":    1,
	"final": 2,
}

// RevisionComparator compares revisions part by part. Numeric parts compare
// numerically and rank above textual parts; textual parts compare by their
// special meaning, then lexically.
type RevisionComparator struct {
	SpecialMeanings map[string]int
}

// CompareRevisions compares with DefaultSpecialMeanings.
func CompareRevisions(a, b string) int {
	return RevisionComparator{SpecialMeanings: DefaultSpecialMeanings}.Compare(a, b)
}

func splitRevision(rev string) []string {
	rev = letterDigit.ReplaceAllString(rev, "$1.$2")
	rev = digitLetter.ReplaceAllString(rev, "$1.$2")
	return separators.Split(rev, -1)
}

// Compare returns a negative value if a is older than b, a positive value if
// a is newer and zero if both are equivalent.
func (c RevisionComparator) Compare(a, b string) int {
	pa, pb := splitRevision(a), splitRevision(b)
	i := 0
	for ; i < len(pa) && i < len(pb); i++ {
		x, y := pa[i], pb[i]
		if x == y {
			continue
		}
		xNum, yNum := isNumber(x), isNumber(y)
		switch {
		case xNum && !yNum:
			return 1
		case yNum && !xNum:
			return -1
		case xNum && yNum:
			if r := compareNumbers(x, y); r != 0 {
				return r
			}
			continue
		}
		sx, okx := c.SpecialMeanings[strings.ToLower(x)]
		sy, oky := c.SpecialMeanings[strings.ToLower(y)]
		if okx || oky {
			return sign(sx - sy)
		}
		return strings.Compare(x, y)
	}
	if i < len(pa) {
		if isNumber(pa[i]) {
			return 1
		}
		return -1
	}
	if i < len(pb) {
		if isNumber(pb[i]) {
			return -1
		}
		return 1
	}
	return 0
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// compareNumbers compares decimal strings of any length.
func compareNumbers(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return sign(len(a) - len(b))
	}
	return strings.Compare(a, b)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
