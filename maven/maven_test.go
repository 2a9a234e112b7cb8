package maven_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/maven"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/transport/inmemory"
)

const snapshotMetadata = `<?xml version="1.0" encoding="UTF-8"?>
<metadata>
  <groupId>org.acme</groupId>
  <artifactId>lib</artifactId>
  <version>1.0-SNAPSHOT</version>
  <versioning>
    <snapshot>
      <timestamp>20230101.120000</timestamp>
      <buildNumber>3</buildNumber>
    </snapshot>
    <lastUpdated>20230101120000</lastUpdated>
  </versioning>
</metadata>`

const moduleMetadata = `<metadata>
  <groupId>org.acme</groupId>
  <artifactId>lib</artifactId>
  <versioning>
    <latest>1.1</latest>
    <release>1.1</release>
    <versions>
      <version>1.0</version>
      <version> 1.1 </version>
    </versions>
  </versioning>
</metadata>`

func TestParseMetadata(t *testing.T) {
	md, err := maven.ParseMetadata([]byte(moduleMetadata))
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "1.1"}, md.Versions)
	assert.Equal(t, "1.1", md.Release)
	assert.Empty(t, md.Timestamp)

	_, err = maven.ParseMetadata([]byte("<metadata>"))
	require.Error(t, err)
}

func TestLoadMetadataMissing(t *testing.T) {
	_, err := maven.LoadMetadata(t.Context(), inmemory.New("mem"), "org/lib/maven-metadata.xml")
	require.ErrorIs(t, err, transport.ErrNotFound)

	repo := inmemory.New("mem")
	repo.Fail(inmemory.OpGet, "org/lib/maven-metadata.xml", errors.New("boom"))
	_, err = maven.LoadMetadata(t.Context(), repo, "org/lib/maven-metadata.xml")
	require.Error(t, err)
	require.NotErrorIs(t, err, transport.ErrNotFound)
}

func TestFindUniqueSnapshot(t *testing.T) {
	ctx := t.Context()
	repo := inmemory.New("mem")
	repo.AddString("org/acme/lib/1.0-SNAPSHOT/maven-metadata.xml", snapshotMetadata)
	p := pattern.NewMaven(pattern.M2Pattern)
	module := coordinate.NewModuleRevisionID("org.acme", "lib", "1.0-SNAPSHOT")

	src, ok, err := maven.FindUniqueSnapshot(ctx, repo, p, module)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.0-20230101.120000-3", src.TimestampedVersion())

	rewritten := src.Apply([]pattern.ResourcePattern{p})
	a := coordinate.NewArtifact(module, "lib", "jar", "jar", "")
	assert.Equal(t, "org/acme/lib/1.0-SNAPSHOT/lib-1.0-20230101.120000-3.jar", rewritten[0].ToPath(a))
	assert.Equal(t, "org/acme/lib/1.0-SNAPSHOT/lib-1.0-SNAPSHOT.jar", p.ToPath(a), "original pattern is untouched")
}

func TestFindUniqueSnapshotFallsThrough(t *testing.T) {
	ctx := t.Context()
	p := pattern.NewMaven(pattern.M2Pattern)

	_, ok, err := maven.FindUniqueSnapshot(ctx, inmemory.New("mem"), p, coordinate.NewModuleRevisionID("org", "lib", "1.0-SNAPSHOT"))
	require.NoError(t, err)
	assert.False(t, ok, "missing metadata")

	repo := inmemory.New("mem")
	repo.AddString("org/lib/1.0-SNAPSHOT/maven-metadata.xml", `<metadata><versioning/></metadata>`)
	_, ok, err = maven.FindUniqueSnapshot(ctx, repo, p, coordinate.NewModuleRevisionID("org", "lib", "1.0-SNAPSHOT"))
	require.NoError(t, err)
	assert.False(t, ok, "no timestamp")

	_, ok, err = maven.FindUniqueSnapshot(ctx, repo, p, coordinate.NewModuleRevisionID("org", "lib", "1.0"))
	require.NoError(t, err)
	assert.False(t, ok, "not a snapshot")

	_, _, err = maven.FindUniqueSnapshot(ctx, repo, pattern.NewIvy(pattern.M2Pattern), coordinate.NewModuleRevisionID("org", "lib", "1.0-SNAPSHOT"))
	require.ErrorIs(t, err, pattern.ErrUnsupportedLayout)
}
