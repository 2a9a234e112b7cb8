package version

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Well known strategy names.
const (
	StrategyLatestRevision = "latest-revision"
	StrategyLatestLexico   = "latest-lexico"
	StrategySemver         = "semver"
)

// Strategy orders listed versions by recency.
type Strategy interface {
	Name() string
	// Compare returns a positive value if a is newer than b.
	Compare(a, b ListedVersion) int
}

// LatestRevision orders with the revision comparator.
type LatestRevision struct {
	Comparator RevisionComparator
}

// NewLatestRevision creates the default revision strategy.
func NewLatestRevision() *LatestRevision {
	return &LatestRevision{Comparator: RevisionComparator{SpecialMeanings: DefaultSpecialMeanings}}
}

func (s *LatestRevision) Name() string { return StrategyLatestRevision }

func (s *LatestRevision) Compare(a, b ListedVersion) int {
	return s.Comparator.Compare(a.Version, b.Version)
}

// LatestLexico orders by plain string comparison.
type LatestLexico struct{}

func (LatestLexico) Name() string { return StrategyLatestLexico }

func (LatestLexico) Compare(a, b ListedVersion) int {
	return strings.Compare(a.Version, b.Version)
}

// Semver orders by semantic version precedence. Versions that are not
// semantic versions fall back to revision comparison.
type Semver struct {
	Fallback RevisionComparator
}

// NewSemver creates the semantic version strategy.
func NewSemver() *Semver {
	return &Semver{Fallback: RevisionComparator{SpecialMeanings: DefaultSpecialMeanings}}
}

func (s *Semver) Name() string { return StrategySemver }

func (s *Semver) Compare(a, b ListedVersion) int {
	va, errA := semver.NewVersion(a.Version)
	vb, errB := semver.NewVersion(b.Version)
	if errA != nil || errB != nil {
		return s.Fallback.Compare(a.Version, b.Version)
	}
	if r := va.Compare(vb); r != 0 {
		return r
	}
	return s.Fallback.Compare(a.Version, b.Version)
}

var strategies = map[string]func() Strategy{
	StrategyLatestRevision: func() Strategy { return NewLatestRevision() },
	StrategyLatestLexico:   func() Strategy { return LatestLexico{} },
	StrategySemver:         func() Strategy { return NewSemver() },
}

// LookupStrategy returns the strategy registered under the name. An empty
// name selects latest-revision.
func LookupStrategy(name string) (Strategy, error) {
	if name == "" {
		name = StrategyLatestRevision
	}
	newStrategy, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown latest strategy %q, known strategies are %v", name, StrategyNames())
	}
	return newStrategy(), nil
}

// StrategyNames lists the registered strategy names.
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
