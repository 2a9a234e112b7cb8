package resolver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/artifactresolver/checksum"
	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/resolver"
	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/transport/remote"
)

type httpRepository struct {
	mu    sync.Mutex
	files map[string]string
}

func (h *httpRepository) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.files[r.URL.Path] = string(data)
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet, http.MethodHead:
		content, ok := h.files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		modified := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeContent(w, r, "", modified, strings.NewReader(content))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type recordingIndex struct {
	mu      sync.Mutex
	entries map[string]transport.IndexEntry
}

func (i *recordingIndex) Lookup(_ context.Context, location string) (transport.IndexEntry, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	e, ok := i.entries[location]
	return e, ok, nil
}

func (i *recordingIndex) Store(_ context.Context, location string, entry transport.IndexEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[location] = entry
	return nil
}

func newRemote(t *testing.T, b *resolver.ConfigBuilder, files map[string]string, opts ...resolver.Option) (*resolver.Resolver, *httpRepository, *recordingIndex, string) {
	t.Helper()
	h := &httpRepository{files: files}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	index := &recordingIndex{entries: map[string]transport.IndexEntry{}}
	repo, err := remote.New("remote", srv.URL+"/repo", remote.WithClient(srv.Client()), remote.WithIndex(index))
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)
	r, err := resolver.New(cfg, repo, opts...)
	require.NoError(t, err)
	return r, h, index, srv.URL + "/repo"
}

func TestRemoteIndexRecordsVerifiedContent(t *testing.T) {
	jar := coordinate.NewArtifact(coordinate.NewModuleRevisionID("org", "mod", "1.0"), "mod", "jar", "jar", "")

	t.Run("verified", func(t *testing.T) {
		r, _, index, base := newRemote(t, artifactsOnly().Checksums("sha1"), map[string]string{
			"/repo/org/mod/1.0/mod-1.0.jar":      "hello",
			"/repo/org/mod/1.0/mod-1.0.jar.sha1": helloSHA1,
		}, resolver.WithStore(newStore(t)))

		a, ok, err := r.ResolveArtifact(t.Context(), jar).Get()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, checksum.SHA1, a.Checksum)
		entry, ok := index.entries[base+"/org/mod/1.0/mod-1.0.jar"]
		require.True(t, ok)
		assert.Equal(t, helloSHA1, entry.SHA1)
	})

	t.Run("mismatch", func(t *testing.T) {
		r, _, index, _ := newRemote(t, artifactsOnly().Checksums("sha1"), map[string]string{
			"/repo/org/mod/1.0/mod-1.0.jar":      "hello",
			"/repo/org/mod/1.0/mod-1.0.jar.sha1": "0000000000000000000000000000000000000000",
		}, resolver.WithStore(newStore(t)))

		out := r.ResolveArtifact(t.Context(), jar)
		require.ErrorIs(t, out.Err(), checksum.ErrChecksumMismatch)
		assert.Empty(t, index.entries)
	})
}

func TestRemotePublish(t *testing.T) {
	src := filepath.Join(t.TempDir(), "mod.jar")
	require.NoError(t, os.WriteFile(src, []byte("published"), 0o644))
	jar := coordinate.NewArtifact(coordinate.NewModuleRevisionID("org", "mod", "1.0"), "mod", "jar", "jar", "")
	r, h, _, _ := newRemote(t, artifactsOnly(), map[string]string{})

	require.NoError(t, r.Publish(t.Context(), jar, src))
	assert.Equal(t, "published", h.files["/repo/org/mod/1.0/mod-1.0.jar"])
}
