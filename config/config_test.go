package config_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/artifactresolver/config"
	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/resolver"
)

const fullConfig = `
cache:
  dir: /tmp/cache
  index: false
http:
  timeout: 5m
  tcpDialTimeout: 1000000000
repositories:
  - name: central
    type: maven
    url: https://repo.maven.apache.org/maven2
  - name: company
    type: ivy
    path: /srv/ivy
    descriptorPatterns:
      - "[organisation]/[module]/[revision]/ivy.xml"
    artifactPatterns:
      - "[organisation]/[module]/[revision]/[artifact](-[classifier]).[ext]"
    checkConsistency: false
    allowNoDescriptor: false
    checksums: sha256
    changing:
      matcher: glob
      pattern: "*-dev"
    latestStrategy: latest-lexico
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(fullConfig))
	require.NoError(t, err)

	require.NotNil(t, cfg.Cache)
	assert.Equal(t, "/tmp/cache", cfg.Cache.Dir)
	assert.False(t, cfg.Cache.IndexEnabled())

	require.NotNil(t, cfg.HTTP)
	assert.Equal(t, 5*time.Minute, cfg.HTTP.Timeout.Value())
	assert.Equal(t, time.Second, cfg.HTTP.TCPDialTimeout.Value())
	assert.Nil(t, cfg.HTTP.IdleConnTimeout)

	require.Len(t, cfg.Repositories, 2)
	central := cfg.Repositories[0]
	assert.Equal(t, config.TypeMaven, central.Type)
	assert.Equal(t, "https://repo.maven.apache.org/maven2", central.URL)
	assert.Nil(t, central.CheckConsistency)

	company := cfg.Repositories[1]
	assert.Equal(t, config.TypeIvy, company.Type)
	assert.Equal(t, "/srv/ivy", company.Path)
	require.NotNil(t, company.CheckConsistency)
	assert.False(t, *company.CheckConsistency)
	require.NotNil(t, company.Checksums)
	assert.Equal(t, "sha256", *company.Checksums)
	require.NotNil(t, company.Changing)
	assert.Equal(t, "glob", company.Changing.Matcher)
	assert.Equal(t, "latest-lexico", company.LatestStrategy)
}

func TestParseJSON(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"repositories":[{"name":"local","type":"maven-local","path":"/m2"}]}`))
	require.NoError(t, err)
	require.Len(t, cfg.Repositories, 1)
	assert.Nil(t, cfg.Cache)
	assert.True(t, cfg.Cache.IndexEnabled())
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"no repositories", `cache: {dir: /tmp}`},
		{"empty repositories", `repositories: []`},
		{"unknown type", "repositories:\n  - {name: a, type: p2, url: https://example.com}"},
		{"url and path", "repositories:\n  - {name: a, type: ivy, url: https://example.com, path: /x}"},
		{"no location", "repositories:\n  - {name: a, type: ivy}"},
		{"maven-local url", "repositories:\n  - {name: a, type: maven-local, url: https://example.com}"},
		{"unknown field", "repositories:\n  - {name: a, type: ivy, path: /x, color: red}"},
		{"bad scheme", "repositories:\n  - {name: a, type: maven, url: ftp://example.com}"},
		{"bad timeout", "http: {timeout: soon}\nrepositories:\n  - {name: a, type: ivy, path: /x}"},
		{"bad matcher", "repositories:\n  - {name: a, type: ivy, path: /x, changing: {matcher: fuzzy, pattern: x}}"},
		{"duplicate names", "repositories:\n  - {name: a, type: ivy, path: /x}\n  - {name: a, type: ivy, path: /y}"},
		{"yaml", "repositories: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.config))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Repositories, 2)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRepositoryID(t *testing.T) {
	yes := true
	a := config.Repository{Name: "central", Type: config.TypeMaven, URL: "https://example.com/m2", CheckConsistency: &yes}
	b := a

	idA, err := a.ID()
	require.NoError(t, err)
	idB, err := b.ID()
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
	assert.Len(t, idA, 64)

	b.URL = "https://example.com/other"
	idB, err = b.ID()
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
}

func TestTimeout(t *testing.T) {
	var d config.Timeout
	require.NoError(t, json.Unmarshal([]byte(`"90s"`), &d))
	assert.Equal(t, 90*time.Second, d.Value())
	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Value())
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	raw, err := json.Marshal(config.Timeout(2 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, `"2m0s"`, string(raw))

	var unset *config.Timeout
	assert.Zero(t, unset.Value())
}

func TestMergeHTTP(t *testing.T) {
	merged := config.MergeHTTP(
		config.DefaultHTTP(),
		&config.HTTP{Timeout: config.NewTimeout(time.Minute)},
		nil,
		&config.HTTP{Timeout: config.NewTimeout(0), IdleConnTimeout: config.NewTimeout(time.Second)},
	)
	timeouts := merged.Timeouts()
	assert.Zero(t, timeouts.Timeout)
	assert.Equal(t, time.Second, timeouts.IdleConnTimeout)
	assert.Equal(t, 30*time.Second, timeouts.TCPDialTimeout)
	assert.Equal(t, 30*time.Second, timeouts.TCPKeepAlive)
	assert.Equal(t, 10*time.Second, timeouts.TLSHandshakeTimeout)
	assert.Equal(t, 10*time.Second, timeouts.ResponseHeaderTimeout)
}

func write(t *testing.T, dir, path, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestBuild(t *testing.T) {
	ctx := t.Context()

	m2 := t.TempDir()
	write(t, m2, "org/acme/lib/1.0/lib-1.0.pom",
		`<project><groupId>org.acme</groupId><artifactId>lib</artifactId><version>1.0</version></project>`)
	write(t, m2, "org/acme/lib/1.0/lib-1.0.jar", "local")

	ivy := t.TempDir()
	write(t, ivy, "acme/tool/2.0/ivy.xml",
		`<ivy-module version="2.0"><info organisation="acme" module="tool" revision="2.0" status="release"/></ivy-module>`)
	write(t, ivy, "acme/tool/2.0/tool.jar", "tool")

	served := t.TempDir()
	write(t, served, "org/acme/remote/3.0/remote-3.0.pom",
		`<project><groupId>org.acme</groupId><artifactId>remote</artifactId><version>3.0</version></project>`)
	write(t, served, "org/acme/remote/3.0/remote-3.0.jar", "remote")
	srv := httptest.NewServer(http.FileServer(http.Dir(served)))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Cache: &config.Cache{Dir: t.TempDir()},
		Repositories: []config.Repository{
			{Name: "local", Type: config.TypeMavenLocal, Path: m2},
			{
				Name:               "company",
				Type:               config.TypeIvy,
				Path:               ivy,
				DescriptorPatterns: []string{"[organisation]/[module]/[revision]/ivy.xml"},
				ArtifactPatterns:   []string{"[organisation]/[module]/[revision]/[artifact].[ext]"},
			},
			{Name: "remote", Type: config.TypeMaven, URL: srv.URL},
		},
	}
	resolvers, err := config.Build(ctx, cfg, config.WithClient(srv.Client()))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, resolvers.Close()) })

	require.Len(t, resolvers.All(), 3)
	require.NotNil(t, resolvers.Store())
	_, err = resolvers.Lookup("missing")
	assert.Error(t, err)

	t.Run("maven local", func(t *testing.T) {
		r, err := resolvers.Lookup("local")
		require.NoError(t, err)
		assert.True(t, r.Config().M2Compatible())
		id := coordinate.NewModuleRevisionID("org.acme", "lib", "1.0")
		assert.True(t, r.ResolveModule(ctx, resolver.Dependency{ID: id}).IsFound())
		a, ok, err := r.ResolveArtifact(ctx, coordinate.NewArtifact(id, "lib", "jar", "jar", "")).Get()
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, a.Local)
	})

	t.Run("ivy directory", func(t *testing.T) {
		r, err := resolvers.Lookup("company")
		require.NoError(t, err)
		assert.False(t, r.Config().M2Compatible())
		m, ok, err := r.ResolveModule(ctx, resolver.Dependency{ID: coordinate.NewModuleRevisionID("acme", "tool", "2.0")}).Get()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "release", m.Descriptor.Status)
	})

	t.Run("remote maven", func(t *testing.T) {
		r, err := resolvers.Lookup("remote")
		require.NoError(t, err)
		id := coordinate.NewModuleRevisionID("org.acme", "remote", "3.0")
		assert.True(t, r.ResolveModule(ctx, resolver.Dependency{ID: id}).IsFound())
		a, ok, err := r.ResolveArtifact(ctx, coordinate.NewArtifact(id, "remote", "jar", "jar", "")).Get()
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, a.Local)
		content, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		assert.Equal(t, "remote", string(content))
	})
}

func TestBuildInvalidRepository(t *testing.T) {
	cfg := &config.Config{Repositories: []config.Repository{
		{Name: "company", Type: config.TypeIvy, Path: t.TempDir()},
	}}
	_, err := config.Build(t.Context(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unable to build repository "company"`)
}
