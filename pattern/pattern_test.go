package pattern_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/pattern"
)

func artifact(org, module, revision, classifier string) coordinate.Artifact {
	return coordinate.NewArtifact(coordinate.NewModuleRevisionID(org, module, revision), module, "jar", "jar", classifier)
}

func TestToPath(t *testing.T) {
	tests := []struct {
		name     string
		pattern  pattern.ResourcePattern
		artifact coordinate.Artifact
		want     string
	}{
		{
			name:     "ivy keeps dots",
			pattern:  pattern.NewIvy("[organisation]/[module]/[revision]/[artifact]-[revision].[ext]"),
			artifact: artifact("org.acme", "lib", "1.0", ""),
			want:     "org.acme/lib/1.0/lib-1.0.jar",
		},
		{
			name:     "maven maps organisation",
			pattern:  pattern.NewMaven(pattern.M2Pattern),
			artifact: artifact("org.acme", "lib", "1.0", ""),
			want:     "org/acme/lib/1.0/lib-1.0.jar",
		},
		{
			name:     "optional section kept",
			pattern:  pattern.NewMaven(pattern.M2Pattern),
			artifact: artifact("org", "lib", "1.0", "sources"),
			want:     "org/lib/1.0/lib-1.0-sources.jar",
		},
		{
			name:     "unknown token without value is emptied",
			pattern:  pattern.NewIvy("[organisation]/[module](/[platform])/[artifact].[ext]"),
			artifact: artifact("org", "lib", "1.0", ""),
			want:     "org/lib/lib.jar",
		},
		{
			name:     "branch section",
			pattern:  pattern.NewIvy("[organisation]/[module](/[branch])/[revision]/ivy.xml"),
			artifact: artifact("org", "lib", "1.0", ""),
			want:     "org/lib/1.0/ivy.xml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pattern.ToPath(tt.artifact)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.ContainsAny(got, "[]()"), "unresolved token in %q", got)
		})
	}
}

func TestToPathExtraAttributes(t *testing.T) {
	a := artifact("org", "lib", "1.0", "")
	a.Module.Extra = map[string]string{"platform": "linux"}
	p := pattern.NewIvy("[organisation]/[module](/[platform])/[artifact].[ext]")
	assert.Equal(t, "org/lib/linux/lib.jar", p.ToPath(a))
}

func TestToVersionListPattern(t *testing.T) {
	p := pattern.NewMaven(pattern.M2Pattern)
	got := p.ToVersionListPattern(coordinate.ModuleID{Organisation: "org.acme", Name: "lib"}, coordinate.ArtifactName{Name: "lib", Type: "jar", Extension: "jar"})
	assert.Equal(t, "org/acme/lib/[revision]/lib-[revision].jar", got)
}

func TestModulePaths(t *testing.T) {
	p := pattern.NewMaven("repo/" + pattern.M2Pattern)
	mrid := coordinate.NewModuleRevisionID("org.acme", "lib", "1.0-SNAPSHOT")

	path, err := p.ToModulePath(mrid.ModuleID)
	require.NoError(t, err)
	assert.Equal(t, "repo/org/acme/lib", path)

	path, err = p.ToModuleVersionPath(mrid)
	require.NoError(t, err)
	assert.Equal(t, "repo/org/acme/lib/1.0-SNAPSHOT", path)

	_, err = pattern.NewIvy(pattern.M2Pattern).ToModulePath(mrid.ModuleID)
	require.ErrorIs(t, err, pattern.ErrUnsupportedLayout)

	_, err = pattern.NewMaven("[organisation]/[module]/[revision]/ivy.xml").ToModuleVersionPath(mrid)
	require.ErrorIs(t, err, pattern.ErrUnsupportedLayout)
}

func TestIsComplete(t *testing.T) {
	p := pattern.NewIvy("[organisation]/[module]/[revision]/[artifact](-[classifier]).[ext]")
	assert.True(t, p.IsComplete(artifact("org", "lib", "1.0", "")))
	assert.False(t, p.IsComplete(artifact("", "lib", "1.0", "")))
}

func TestWithTimestampedRevision(t *testing.T) {
	p := pattern.NewMaven(pattern.M2Pattern).WithTimestampedRevision("1.0-20230101.120000-3")
	got := p.ToPath(artifact("org", "lib", "1.0-SNAPSHOT", ""))
	assert.Equal(t, "org/lib/1.0-SNAPSHOT/lib-1.0-20230101.120000-3.jar", got)
}
