package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
)

// Matcher decides whether candidate revisions satisfy a requested revision.
type Matcher interface {
	// IsDynamic reports whether the requested revision needs enumeration.
	IsDynamic(requested coordinate.ModuleRevisionID) bool
	Accept(requested, candidate coordinate.ModuleRevisionID) bool
	// NeedsDescriptor reports whether AcceptDescriptor must confirm a
	// candidate accepted by Accept.
	NeedsDescriptor(requested, candidate coordinate.ModuleRevisionID) bool
	AcceptDescriptor(requested coordinate.ModuleRevisionID, md *descriptor.ModuleDescriptor) bool
}

// ExactMatcher accepts identical revisions only.
type ExactMatcher struct{}

func (ExactMatcher) IsDynamic(coordinate.ModuleRevisionID) bool { return false }

func (ExactMatcher) Accept(requested, candidate coordinate.ModuleRevisionID) bool {
	return requested.Revision == candidate.Revision
}

func (ExactMatcher) NeedsDescriptor(_, _ coordinate.ModuleRevisionID) bool { return false }

func (ExactMatcher) AcceptDescriptor(requested coordinate.ModuleRevisionID, md *descriptor.ModuleDescriptor) bool {
	return requested.Revision == md.ID.Revision
}

// SubRevisionMatcher handles prefix requests such as "1.+".
type SubRevisionMatcher struct{}

func (SubRevisionMatcher) IsDynamic(requested coordinate.ModuleRevisionID) bool {
	return strings.HasSuffix(requested.Revision, "+")
}

func (SubRevisionMatcher) Accept(requested, candidate coordinate.ModuleRevisionID) bool {
	return strings.HasPrefix(candidate.Revision, strings.TrimSuffix(requested.Revision, "+"))
}

func (SubRevisionMatcher) NeedsDescriptor(_, _ coordinate.ModuleRevisionID) bool { return false }

func (m SubRevisionMatcher) AcceptDescriptor(requested coordinate.ModuleRevisionID, md *descriptor.ModuleDescriptor) bool {
	return m.Accept(requested, md.ID)
}

// LatestPrefix starts status based requests such as "latest.release".
const LatestPrefix = "latest."

// LatestMatcher handles "latest.<status>" requests. Candidates qualify if
// their status is at least as mature as the requested one.
type LatestMatcher struct {
	Statuses *descriptor.StatusManager
}

// NewLatestMatcher creates a matcher with the given status manager, or the
// default one when nil.
func NewLatestMatcher(statuses *descriptor.StatusManager) *LatestMatcher {
	if statuses == nil {
		statuses = descriptor.DefaultStatusManager
	}
	return &LatestMatcher{Statuses: statuses}
}

func (m *LatestMatcher) IsDynamic(requested coordinate.ModuleRevisionID) bool {
	return strings.HasPrefix(requested.Revision, LatestPrefix)
}

func (m *LatestMatcher) Accept(_, _ coordinate.ModuleRevisionID) bool { return true }

func (m *LatestMatcher) NeedsDescriptor(requested, _ coordinate.ModuleRevisionID) bool {
	return strings.TrimPrefix(requested.Revision, LatestPrefix) != m.Statuses.Lowest()
}

func (m *LatestMatcher) AcceptDescriptor(requested coordinate.ModuleRevisionID, md *descriptor.ModuleDescriptor) bool {
	asked := strings.TrimPrefix(requested.Revision, LatestPrefix)
	return m.Statuses.Priority(md.Status) <= m.Statuses.Priority(asked)
}

// SemverMatcher handles semantic version constraints such as "^1.2" or
// ">=1.0, <2.0".
type SemverMatcher struct{}

func (SemverMatcher) IsDynamic(requested coordinate.ModuleRevisionID) bool {
	r := requested.Revision
	if r == "" || !strings.ContainsAny(r[:1], "^~<>=!") {
		return false
	}
	_, err := semver.NewConstraint(r)
	return err == nil
}

func (SemverMatcher) Accept(requested, candidate coordinate.ModuleRevisionID) bool {
	c, err := semver.NewConstraint(requested.Revision)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(candidate.Revision)
	if err != nil {
		return false
	}
	return c.Check(v)
}

func (SemverMatcher) NeedsDescriptor(_, _ coordinate.ModuleRevisionID) bool { return false }

func (m SemverMatcher) AcceptDescriptor(requested coordinate.ModuleRevisionID, md *descriptor.ModuleDescriptor) bool {
	return m.Accept(requested, md.ID)
}

// ChainMatcher delegates to the first member that considers the request
// dynamic. The last member handles all remaining requests.
type ChainMatcher struct {
	Matchers []Matcher
}

// NewChainMatcher creates a chain. It should end with an ExactMatcher.
func NewChainMatcher(matchers ...Matcher) *ChainMatcher {
	return &ChainMatcher{Matchers: matchers}
}

// NewDefaultMatcher returns the chain of all built-in matchers.
func NewDefaultMatcher(statuses *descriptor.StatusManager) *ChainMatcher {
	return NewChainMatcher(
		NewLatestMatcher(statuses),
		SubRevisionMatcher{},
		NewRangeMatcher(),
		SemverMatcher{},
		ExactMatcher{},
	)
}

func (c *ChainMatcher) pick(requested coordinate.ModuleRevisionID) Matcher {
	for i, m := range c.Matchers {
		if i == len(c.Matchers)-1 || m.IsDynamic(requested) {
			return m
		}
	}
	return ExactMatcher{}
}

func (c *ChainMatcher) IsDynamic(requested coordinate.ModuleRevisionID) bool {
	for _, m := range c.Matchers {
		if m.IsDynamic(requested) {
			return true
		}
	}
	return false
}

func (c *ChainMatcher) Accept(requested, candidate coordinate.ModuleRevisionID) bool {
	return c.pick(requested).Accept(requested, candidate)
}

func (c *ChainMatcher) NeedsDescriptor(requested, candidate coordinate.ModuleRevisionID) bool {
	return c.pick(requested).NeedsDescriptor(requested, candidate)
}

func (c *ChainMatcher) AcceptDescriptor(requested coordinate.ModuleRevisionID, md *descriptor.ModuleDescriptor) bool {
	return c.pick(requested).AcceptDescriptor(requested, md)
}
