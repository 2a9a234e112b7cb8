package cache_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/artifactresolver/cache"
	"ocm.software/open-component-model/artifactresolver/coordinate"
)

const helloSHA1 = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"

func writeTemp(t *testing.T, store *cache.FileStore, a coordinate.Artifact, content string) string {
	t.Helper()
	tmp, err := store.TempFile(a)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	return tmp
}

func TestFileStore(t *testing.T) {
	ctx := t.Context()
	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)

	a := coordinate.NewArtifact(coordinate.NewModuleRevisionID("org.acme", "lib", "1.0"), "lib", "jar", "jar", "sources")
	assert.Equal(t, "lib-1.0-sources.jar", cache.FileName(a))

	c := store.Candidates(a)
	assert.True(t, c.IsNone())

	path, err := store.Move(ctx, a, writeTemp(t, store, a, "hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "org.acme", "lib", "1.0", helloSHA1, "lib-1.0-sources.jar"), path)

	again, err := store.Move(ctx, a, writeTemp(t, store, a, "hello"))
	require.NoError(t, err)
	assert.Equal(t, path, again)

	other, err := store.Move(ctx, a, writeTemp(t, store, a, "world"))
	require.NoError(t, err)
	assert.NotEqual(t, path, other)

	files, err := store.Lookup(a)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	assert.False(t, c.IsNone())
	found, ok, err := c.FindBySHA1(ctx, helloSHA1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, found)

	_, ok, err = c.FindBySHA1(ctx, "../../etc")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := os.ReadDir(filepath.Join(store.Root(), "org.acme", "lib", "1.0"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, e.IsDir(), "temporary file %s left behind", e.Name())
	}
}

func TestFileStoreConcurrentMove(t *testing.T) {
	ctx := t.Context()
	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	a := coordinate.NewArtifact(coordinate.NewModuleRevisionID("org.acme", "lib", "1.0"), "lib", "jar", "jar", "")

	const n = 8
	tmps := make([]string, n)
	for i := range tmps {
		tmps[i] = writeTemp(t, store, a, "hello")
	}
	paths := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, tmp := range tmps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths[i], errs[i] = store.Move(ctx, a, tmp)
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, paths[0], paths[i])
		assert.NoFileExists(t, tmps[i])
	}
	files, err := store.Lookup(a)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
