package remote_test

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
	"oras.land/oras-go/v2/registry/remote/retry"

	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/transport/remote"
)

const helloSHA1 = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"

var lastModified = time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

type server struct {
	mu       sync.Mutex
	files    map[string]string
	requests map[string]int
	// number of uploads answered with 503 before one is accepted
	unavailable int
}

func (s *server) count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.Method+" "+r.URL.Path]++
	s.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.unavailable > 0 {
			s.unavailable--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		s.files[r.URL.Path] = string(data)
		w.WriteHeader(http.StatusCreated)
		return
	case http.MethodGet, http.MethodHead:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path == "/repo/org/lib/" {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body>
<a href="../">../</a>
<a href="1.0/">1.0/</a>
<a href="http://repo.example.com/repo/org/lib/1.1/">1.1/</a>
<a href="/repo/org/lib/2.0/">2.0/</a>
<a href="?C=M;O=A">Last modified</a>
<a href="maven-metadata.xml">maven-metadata.xml</a>
</body></html>`)
		return
	}
	s.mu.Lock()
	content, ok := s.files[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, "", lastModified, strings.NewReader(content))
}

func newServer(t *testing.T) (*server, *remote.Repository) {
	t.Helper()
	s := &server{
		files: map[string]string{
			"/repo/org/lib/1.0/lib-1.0.jar":      "hello",
			"/repo/org/lib/1.0/lib-1.0.jar.sha1": helloSHA1 + "  lib-1.0.jar",
		},
		requests: map[string]int{},
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	repo, err := remote.New("remote", srv.URL+"/repo/", remote.WithClient(srv.Client()))
	require.NoError(t, err)
	return s, repo
}

type candidates map[string]string

func (c candidates) IsNone() bool { return len(c) == 0 }

func (c candidates) FindBySHA1(_ context.Context, sha1 string) (string, bool, error) {
	p, ok := c[sha1]
	return p, ok, nil
}

type memIndex struct {
	mu      sync.Mutex
	entries map[string]transport.IndexEntry
}

func (m *memIndex) Lookup(_ context.Context, location string) (transport.IndexEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[location]
	return e, ok, nil
}

func (m *memIndex) Store(_ context.Context, location string, entry transport.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[location] = entry
	return nil
}

func TestExistsAndMetadata(t *testing.T) {
	ctx := t.Context()
	_, repo := newServer(t)

	ok, err := repo.Exists(ctx, "org/lib/1.0/lib-1.0.jar")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "org/lib/9.9/lib-9.9.jar")
	require.NoError(t, err)
	assert.False(t, ok)

	meta, err := repo.GetMetadata(ctx, "org/lib/1.0/lib-1.0.jar")
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)
	assert.True(t, lastModified.Equal(meta.LastModified))

	_, err = repo.GetMetadata(ctx, "missing")
	require.ErrorIs(t, err, transport.ErrNotFound)
}

func TestList(t *testing.T) {
	_, repo := newServer(t)
	names, err := repo.List(t.Context(), "org/lib")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "2.0", "maven-metadata.xml"}, names, "foreign hosts, parents and queries are ignored")

	_, err = repo.List(t.Context(), "org/missing")
	require.ErrorIs(t, err, transport.ErrNotFound)
}

func TestGetDownload(t *testing.T) {
	ctx := t.Context()
	_, repo := newServer(t)

	res, err := repo.Get(ctx, "org/lib/1.0/lib-1.0.jar", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })
	assert.False(t, res.IsLocal())

	dest := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, res.WriteTo(ctx, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = repo.Get(ctx, "org/lib/9.9/lib-9.9.jar", nil)
	require.ErrorIs(t, err, transport.ErrNotFound)
}

func TestGetReusesCandidate(t *testing.T) {
	ctx := t.Context()
	s, repo := newServer(t)

	local := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0o600))

	res, err := repo.Get(ctx, "org/lib/1.0/lib-1.0.jar", candidates{helloSHA1: local})
	require.NoError(t, err)
	assert.True(t, res.IsLocal())
	assert.Equal(t, 1, s.count(http.MethodGet, "/repo/org/lib/1.0/lib-1.0.jar.sha1"))
	assert.Zero(t, s.count(http.MethodGet, "/repo/org/lib/1.0/lib-1.0.jar"))
}

func TestGetUsesIndex(t *testing.T) {
	ctx := t.Context()
	s := &server{
		files:    map[string]string{"/repo/org/lib/1.0/lib-1.0.jar": "hello"},
		requests: map[string]int{},
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	index := &memIndex{entries: map[string]transport.IndexEntry{}}
	repo, err := remote.New("remote", srv.URL+"/repo", remote.WithClient(srv.Client()), remote.WithIndex(index))
	require.NoError(t, err)

	res, err := repo.Get(ctx, "org/lib/1.0/lib-1.0.jar", nil)
	require.NoError(t, err)
	dest := filepath.Join(t.TempDir(), "cache", "lib.jar")
	require.NoError(t, res.WriteTo(ctx, dest))
	assert.Empty(t, index.entries, "written content is not recorded before it is verified")
	rec, ok := res.(transport.Recorder)
	require.True(t, ok)
	rec.Record(ctx)
	require.NoError(t, res.Close())
	require.Len(t, index.entries, 1)
	assert.Equal(t, helloSHA1, index.entries[srv.URL+"/repo/org/lib/1.0/lib-1.0.jar"].SHA1)

	res, err = repo.Get(ctx, "org/lib/1.0/lib-1.0.jar", candidates{helloSHA1: dest})
	require.NoError(t, err)
	assert.True(t, res.IsLocal(), "unchanged resource is served from the candidate without a sha1 sibling")
	assert.Equal(t, 1, s.count(http.MethodGet, "/repo/org/lib/1.0/lib-1.0.jar"))
}

func TestPut(t *testing.T) {
	ctx := t.Context()
	s, repo := newServer(t)
	src := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, os.WriteFile(src, []byte("published"), 0o600))

	require.NoError(t, repo.Put(ctx, src, "org/lib/2.0/lib-2.0.jar"))
	assert.Equal(t, "published", s.files["/repo/org/lib/2.0/lib-2.0.jar"])
}

func TestPutReplaysBodyOnRetry(t *testing.T) {
	ctx := t.Context()
	s := &server{files: map[string]string{}, requests: map[string]int{}, unavailable: 1}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	client := &http.Client{Transport: retry.NewTransport(srv.Client().Transport)}
	repo, err := remote.New("remote", srv.URL+"/repo", remote.WithClient(client))
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, os.WriteFile(src, []byte("published"), 0o600))

	require.NoError(t, repo.Put(ctx, src, "org/lib/2.0/lib-2.0.jar"))
	assert.Equal(t, 2, s.count(http.MethodPut, "/repo/org/lib/2.0/lib-2.0.jar"))
	assert.Equal(t, "published", s.files["/repo/org/lib/2.0/lib-2.0.jar"])
}

func TestPutRejected(t *testing.T) {
	ctx := t.Context()
	s, repo := newServer(t)
	s.unavailable = 1
	src := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, os.WriteFile(src, []byte("published"), 0o600))

	err := repo.Put(ctx, src, "org/lib/2.0/lib-2.0.jar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.NotContains(t, err.Error(), "file already closed")
}

func TestReuseRecordsCandidate(t *testing.T) {
	ctx := t.Context()
	s := &server{
		files: map[string]string{
			"/repo/org/lib/1.0/lib-1.0.jar":      "hello",
			"/repo/org/lib/1.0/lib-1.0.jar.sha1": helloSHA1,
		},
		requests: map[string]int{},
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	index := &memIndex{entries: map[string]transport.IndexEntry{}}
	repo, err := remote.New("remote", srv.URL+"/repo", remote.WithClient(srv.Client()), remote.WithIndex(index))
	require.NoError(t, err)
	local := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0o600))

	res, err := repo.Get(ctx, "org/lib/1.0/lib-1.0.jar", candidates{helloSHA1: local})
	require.NoError(t, err)
	require.NoError(t, res.Close())
	assert.True(t, res.IsLocal())
	entry, ok := index.entries[srv.URL+"/repo/org/lib/1.0/lib-1.0.jar"]
	require.True(t, ok)
	assert.Equal(t, helloSHA1, entry.SHA1)
	assert.Equal(t, int64(5), entry.Size)
}
