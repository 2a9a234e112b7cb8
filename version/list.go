// Package version implements version listing results, latest-first ordering
// and the matching of requested revisions against candidates.
package version

import (
	"slices"

	"ocm.software/open-component-model/artifactresolver/pattern"
)

// ListedVersion is a version found in a repository together with the
// pattern it was found through. Identity is the version string alone.
type ListedVersion struct {
	Version string
	Pattern pattern.ResourcePattern
}

// List accumulates listed versions, deduplicated by version string. The
// pattern recorded for a version is the one that listed it first.
type List struct {
	items []ListedVersion
	index map[string]int
}

// NewList creates an empty list.
func NewList() *List {
	return &List{index: map[string]int{}}
}

// Add records versions listed through the pattern.
func (l *List) Add(p pattern.ResourcePattern, versions ...string) {
	if l.index == nil {
		l.index = map[string]int{}
	}
	for _, v := range versions {
		if _, ok := l.index[v]; ok {
			continue
		}
		l.index[v] = len(l.items)
		l.items = append(l.items, ListedVersion{Version: v, Pattern: p})
	}
}

// Contains reports whether the version was listed.
func (l *List) Contains(version string) bool {
	_, ok := l.index[version]
	return ok
}

// Get returns the entry of a version.
func (l *List) Get(version string) (ListedVersion, bool) {
	i, ok := l.index[version]
	if !ok {
		return ListedVersion{}, false
	}
	return l.items[i], true
}

// Len returns the number of distinct versions.
func (l *List) Len() int {
	return len(l.items)
}

// IsEmpty reports whether no version was listed.
func (l *List) IsEmpty() bool {
	return len(l.items) == 0
}

// Versions returns the version strings in the order they were first added.
func (l *List) Versions() []string {
	out := make([]string, len(l.items))
	for i, item := range l.items {
		out[i] = item.Version
	}
	return out
}

// Items returns the entries in the order they were first added.
func (l *List) Items() []ListedVersion {
	return slices.Clone(l.items)
}

// SortLatestFirst returns the entries ordered newest first according to the
// strategy. Entries the strategy considers equal keep their insertion order.
func (l *List) SortLatestFirst(strategy Strategy) []ListedVersion {
	sorted := slices.Clone(l.items)
	slices.SortStableFunc(sorted, func(a, b ListedVersion) int {
		return strategy.Compare(b, a)
	})
	return sorted
}
