package ivyxml_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/descriptor/ivyxml"
	"ocm.software/open-component-model/artifactresolver/transport/inmemory"
)

const ivyFile = `<?xml version="1.0" encoding="UTF-8"?>
<ivy-module version="2.0" xmlns:e="http://ant.apache.org/ivy/extra">
  <info organisation="org.acme" module="lib" revision="1.2" status="milestone"
        branch="main" publication="20230101120000" e:platform="linux"/>
  <configurations>
    <conf name="default"/>
    <conf name="sources"/>
  </configurations>
  <publications>
    <artifact name="lib" type="jar" ext="jar" conf="default"/>
    <artifact name="lib" type="source" ext="jar" conf="sources" e:classifier="sources"/>
  </publications>
</ivy-module>`

func TestParse(t *testing.T) {
	md, err := ivyxml.Parse([]byte(ivyFile))
	require.NoError(t, err)

	assert.Equal(t, "org.acme", md.ID.Organisation)
	assert.Equal(t, "lib", md.ID.Name)
	assert.Equal(t, "1.2", md.ID.Revision)
	assert.Equal(t, "main", md.ID.Branch)
	assert.Equal(t, map[string]string{"platform": "linux"}, md.ID.Extra)
	assert.Equal(t, "milestone", md.Status)
	assert.Equal(t, time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC), md.PublicationDate)

	def, ok := md.Configuration("default")
	require.True(t, ok)
	assert.Equal(t, []coordinate.ArtifactName{{Name: "lib", Type: "jar", Extension: "jar"}}, def.Artifacts)

	src, ok := md.Configuration("sources")
	require.True(t, ok)
	assert.Equal(t, "sources", src.Artifacts[0].Classifier)
}

func TestParseWithoutPublications(t *testing.T) {
	md, err := ivyxml.Parse([]byte(`<ivy-module version="2.0"><info organisation="o" module="m" revision="1"/></ivy-module>`))
	require.NoError(t, err)
	assert.Equal(t, descriptor.StatusIntegration, md.Status)
	artifacts := md.Artifacts()
	require.Len(t, artifacts, 1)
	assert.Equal(t, "m", artifacts[0].Name)
}

func TestParserWrapsErrors(t *testing.T) {
	repo := inmemory.New("mem")
	repo.AddString("ivy.xml", "<ivy-module><info")
	res, err := repo.Get(t.Context(), "ivy.xml", nil)
	require.NoError(t, err)

	_, err = ivyxml.Parser{}.Parse(t.Context(), coordinate.Artifact{}, res)
	require.ErrorIs(t, err, descriptor.ErrParse)
	var perr *descriptor.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "ivy.xml", perr.Resource)
}
