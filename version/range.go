package version

import (
	"strings"
	"unicode"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
)

type bound struct {
	value     string
	inclusive bool
}

type versionRange struct {
	lower, upper *bound
}

// parseRange parses "[a,b]", "[a,b)", "]a,b[", "(,b]", "[a,)" and friends.
func parseRange(s string) (versionRange, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return versionRange{}, false
	}
	first, last := s[0], s[len(s)-1]
	if !strings.ContainsRune("[](", rune(first)) || !strings.ContainsRune("[])", rune(last)) {
		return versionRange{}, false
	}
	lowerText, upperText, ok := strings.Cut(s[1:len(s)-1], ",")
	if !ok || strings.Contains(upperText, ",") {
		return versionRange{}, false
	}
	lowerText, upperText = strings.TrimSpace(lowerText), strings.TrimSpace(upperText)
	var r versionRange
	if lowerText != "" {
		r.lower = &bound{value: lowerText, inclusive: first == '['}
	} else if first == '[' {
		return versionRange{}, false
	}
	if upperText != "" {
		r.upper = &bound{value: upperText, inclusive: last == ']'}
	} else if last == ']' {
		return versionRange{}, false
	}
	if r.lower == nil && r.upper == nil {
		return versionRange{}, false
	}
	return r, true
}

// qualifies reports whether candidate is a qualified form of base, for
// example 2.0-SNAPSHOT or 2.0rc1 of 2.0.
func qualifies(candidate, base string) bool {
	rest, ok := strings.CutPrefix(candidate, base)
	if !ok || rest == "" {
		return false
	}
	rest = strings.TrimLeft(rest, "-_+.")
	return rest != "" && unicode.IsLetter(rune(rest[0]))
}

func (r versionRange) contains(cmp RevisionComparator, candidate string) bool {
	if r.lower != nil {
		c := cmp.Compare(candidate, r.lower.value)
		if c < 0 || (c == 0 && !r.lower.inclusive) {
			return false
		}
	}
	if r.upper != nil {
		c := cmp.Compare(candidate, r.upper.value)
		if c > 0 || (c == 0 && !r.upper.inclusive) {
			return false
		}
		if !r.upper.inclusive && qualifies(candidate, r.upper.value) {
			return false
		}
	}
	return true
}

// RangeMatcher handles interval requests. Bounds compare with the revision
// comparator. An exclusive upper bound also excludes qualified versions of
// the bound, so [1.0,2.0) rejects 2.0-SNAPSHOT.
type RangeMatcher struct {
	Comparator RevisionComparator
}

// NewRangeMatcher creates a range matcher with the default comparator.
func NewRangeMatcher() *RangeMatcher {
	return &RangeMatcher{Comparator: RevisionComparator{SpecialMeanings: DefaultSpecialMeanings}}
}

func (m *RangeMatcher) IsDynamic(requested coordinate.ModuleRevisionID) bool {
	_, ok := parseRange(requested.Revision)
	return ok
}

func (m *RangeMatcher) Accept(requested, candidate coordinate.ModuleRevisionID) bool {
	r, ok := parseRange(requested.Revision)
	if !ok {
		return false
	}
	return r.contains(m.Comparator, candidate.Revision)
}

func (m *RangeMatcher) NeedsDescriptor(_, _ coordinate.ModuleRevisionID) bool { return false }

func (m *RangeMatcher) AcceptDescriptor(requested coordinate.ModuleRevisionID, md *descriptor.ModuleDescriptor) bool {
	return m.Accept(requested, md.ID)
}
