package version_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/version"
)

var (
	p1 = pattern.NewIvy("a/[revision]/[artifact].[ext]")
	p2 = pattern.NewIvy("b/[revision]/[artifact].[ext]")
)

func TestListDeduplicatesFirstSeenWins(t *testing.T) {
	l := version.NewList()
	l.Add(p1, "1.0", "1.1")
	l.Add(p2, "1.1", "2.0")

	assert.Equal(t, []string{"1.0", "1.1", "2.0"}, l.Versions())
	lv, ok := l.Get("1.1")
	require.True(t, ok)
	assert.Equal(t, p1, lv.Pattern)
	assert.Equal(t, 3, l.Len())
}

func TestListSetIsOrderIndependent(t *testing.T) {
	a := version.NewList()
	a.Add(p1, "1.0", "1.1")
	a.Add(p2, "1.1", "2.0")

	b := version.NewList()
	b.Add(p2, "1.1", "2.0")
	b.Add(p1, "1.0", "1.1")

	assert.ElementsMatch(t, a.Versions(), b.Versions())
	lv, _ := b.Get("1.1")
	assert.Equal(t, p2, lv.Pattern)
}

func TestSortLatestFirst(t *testing.T) {
	versions := []string{"1.0", "1.10", "1.2", "1.2-rc1", "1.2-dev", "0.9", "1.2.1"}
	rand.Shuffle(len(versions), func(i, j int) { versions[i], versions[j] = versions[j], versions[i] })
	l := version.NewList()
	l.Add(p1, versions...)

	var got []string
	for _, lv := range l.SortLatestFirst(version.NewLatestRevision()) {
		got = append(got, lv.Version)
	}
	assert.Equal(t, []string{"1.10", "1.2.1", "1.2", "1.2-rc1", "1.2-dev", "1.0", "0.9"}, got)
}

func TestSortLatestFirstIsStable(t *testing.T) {
	l := version.NewList()
	l.Add(p1, "1.0", "01.0", "1.00")
	var got []string
	for _, lv := range l.SortLatestFirst(version.NewLatestRevision()) {
		got = append(got, lv.Version)
	}
	assert.Equal(t, []string{"1.0", "01.0", "1.00"}, got)
}

func TestCompareRevisions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.1", "1.0", 1},
		{"1.10", "1.9", 1},
		{"1.0", "1.0.1", -1},
		{"1.0-SNAPSHOT", "1.0", -1},
		{"1.0", "1.0a", 1},
		{"1.0rc1", "1.0dev1", 1},
		{"1.0-final", "1.0-rc1", 1},
		{"1.0-alpha", "1.0-beta", -1},
		{"2.0", "10.0", -1},
		{"123456789012345678901234567890", "2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, version.CompareRevisions(tt.a, tt.b))
			assert.Equal(t, -tt.want, version.CompareRevisions(tt.b, tt.a))
		})
	}
}

func TestLookupStrategy(t *testing.T) {
	s, err := version.LookupStrategy("")
	require.NoError(t, err)
	assert.Equal(t, version.StrategyLatestRevision, s.Name())

	for _, name := range version.StrategyNames() {
		s, err := version.LookupStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	_, err = version.LookupStrategy("latest-time")
	require.Error(t, err)
}

func TestSemverStrategy(t *testing.T) {
	s := version.NewSemver()
	lv := func(v string) version.ListedVersion { return version.ListedVersion{Version: v} }
	assert.Positive(t, s.Compare(lv("1.0.0"), lv("1.0.0-rc.1")))
	assert.Positive(t, s.Compare(lv("1.10.0"), lv("1.9.0")))
	assert.Negative(t, s.Compare(lv("1.0.0-alpha"), lv("1.0.0-beta")))
	assert.Positive(t, s.Compare(lv("1.0.1"), lv("not-semver")), "falls back to revision comparison")
	assert.Positive(t, version.LatestLexico{}.Compare(lv("1.9"), lv("1.10")))
}

func mrid(rev string) coordinate.ModuleRevisionID {
	return coordinate.NewModuleRevisionID("org", "mod", rev)
}

func TestDefaultMatcher(t *testing.T) {
	m := version.NewDefaultMatcher(nil)
	tests := []struct {
		requested string
		candidate string
		dynamic   bool
		accept    bool
	}{
		{"1.0", "1.0", false, true},
		{"1.0", "1.1", false, false},
		{"1.+", "1.5", true, true},
		{"1.+", "2.0", true, false},
		{"[1.0,2.0)", "1.1", true, true},
		{"[1.0,2.0)", "1.0", true, true},
		{"[1.0,2.0)", "2.0", true, false},
		{"[1.0,2.0)", "2.0-SNAPSHOT", true, false},
		{"[1.0,2.0)", "0.9", true, false},
		{"]1.0,2.0]", "1.0", true, false},
		{"]1.0,2.0]", "2.0", true, true},
		{"[1.0,2.0[", "1.9.9", true, true},
		{"[1.0,)", "99", true, true},
		{"(,2.0]", "0.1", true, true},
		{"(,2.0)", "2.0-rc1", true, false},
		{"^1.2.0", "1.4.0", true, true},
		{"^1.2.0", "2.0.0", true, false},
		{">=1.0, <2.0", "1.5.0", true, true},
		{"latest.integration", "whatever", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.requested+"_"+tt.candidate, func(t *testing.T) {
			assert.Equal(t, tt.dynamic, m.IsDynamic(mrid(tt.requested)))
			assert.Equal(t, tt.accept, m.Accept(mrid(tt.requested), mrid(tt.candidate)))
		})
	}
}

func TestInvalidRangesAreStatic(t *testing.T) {
	m := version.NewRangeMatcher()
	for _, r := range []string{"[1.0]", "[,2.0]", "[1.0,", "(,)", "1.0,2.0"} {
		assert.False(t, m.IsDynamic(mrid(r)), r)
	}
}

func TestLatestMatcher(t *testing.T) {
	m := version.NewDefaultMatcher(descriptor.DefaultStatusManager)
	release := &descriptor.ModuleDescriptor{ID: mrid("1.0"), Status: descriptor.StatusRelease}
	milestone := &descriptor.ModuleDescriptor{ID: mrid("1.1"), Status: descriptor.StatusMilestone}
	integration := &descriptor.ModuleDescriptor{ID: mrid("1.2"), Status: descriptor.StatusIntegration}

	assert.True(t, m.NeedsDescriptor(mrid("latest.release"), mrid("1.0")))
	assert.True(t, m.NeedsDescriptor(mrid("latest.milestone"), mrid("1.0")))
	assert.False(t, m.NeedsDescriptor(mrid("latest.integration"), mrid("1.0")))

	assert.True(t, m.AcceptDescriptor(mrid("latest.release"), release))
	assert.False(t, m.AcceptDescriptor(mrid("latest.release"), milestone))
	assert.True(t, m.AcceptDescriptor(mrid("latest.milestone"), release))
	assert.True(t, m.AcceptDescriptor(mrid("latest.milestone"), milestone))
	assert.False(t, m.AcceptDescriptor(mrid("latest.milestone"), integration))
	assert.True(t, m.AcceptDescriptor(mrid("latest.integration"), integration))
}

func TestExactAcceptDescriptor(t *testing.T) {
	m := version.NewDefaultMatcher(nil)
	md := &descriptor.ModuleDescriptor{ID: mrid("1.0")}
	assert.True(t, m.AcceptDescriptor(mrid("1.0"), md))
	assert.False(t, m.AcceptDescriptor(mrid("1.1"), md))
	assert.True(t, m.AcceptDescriptor(mrid("[1.0,2.0)"), md))
}
