// Package cache keeps downloaded artifacts below a local root directory.
//
// Files are stored content addressed by sha1 under their module revision:
//
//	<root>/<organisation>/<module>/<revision>/<sha1>/<artifact>-<revision>[-<classifier>].<ext>
//
// Stored files are never overwritten. A different content for the same
// artifact ends up in a sibling sha1 directory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/sync/singleflight"

	"ocm.software/open-component-model/artifactresolver/checksum"
	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/internal/log"
	"ocm.software/open-component-model/artifactresolver/transport"
)

var sha1Dir = regexp.MustCompile(`^[0-9a-f]{40}$`)

// FileStore is a directory of downloaded artifacts.
type FileStore struct {
	root  string
	group singleflight.Group
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("cache root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache root %s: %w", abs, err)
	}
	return &FileStore{root: abs}, nil
}

// Root returns the absolute cache root.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) moduleDir(a coordinate.Artifact) string {
	m := a.Module
	return filepath.Join(s.root, filepath.FromSlash(m.Organisation), m.Name, m.Revision)
}

// FileName is the stored file name of the artifact.
func FileName(a coordinate.Artifact) string {
	name := a.Name + "-" + a.Module.Revision
	if a.Classifier != "" {
		name += "-" + a.Classifier
	}
	if a.Extension != "" {
		name += "." + a.Extension
	}
	return name
}

// Path is the location of the artifact content with the given sha1.
func (s *FileStore) Path(a coordinate.Artifact, sha1 string) string {
	return filepath.Join(s.moduleDir(a), sha1, FileName(a))
}

// TempFile returns an unused path in the module directory of the artifact
// suitable as download destination. The caller removes it.
func (s *FileStore) TempFile(a coordinate.Artifact) (string, error) {
	dir := s.moduleDir(a)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", errors.Join(err, os.Remove(name))
	}
	return name, nil
}

// Move stores the file at tmp as content of the artifact and returns the
// final path. tmp is consumed. When the same content is already stored,
// the existing file is kept.
func (s *FileStore) Move(ctx context.Context, a coordinate.Artifact, tmp string) (string, error) {
	sum, err := checksum.ComputeFile(checksum.SHA1, tmp)
	if err != nil {
		return "", err
	}
	dst := s.Path(a, sum)
	v, err, _ := s.group.Do(dst, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(dst); err == nil {
			return dst, os.Remove(tmp)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, err
		}
		if err := os.Rename(tmp, dst); err != nil {
			return nil, fmt.Errorf("unable to store %s in cache: %w", a, err)
		}
		return dst, nil
	})
	if err != nil {
		return "", err
	}
	// a concurrent Move of the same content won, tmp is ours to drop
	if _, statErr := os.Stat(tmp); statErr == nil {
		if err := os.Remove(tmp); err != nil {
			log.Base(ctx).DebugContext(ctx, "unable to remove temporary file", slog.String("file", tmp), slog.String("error", err.Error()))
		}
	}
	return v.(string), nil
}

// Lookup returns the stored files of the artifact, one per content.
func (s *FileStore) Lookup(a coordinate.Artifact) ([]string, error) {
	entries, err := os.ReadDir(s.moduleDir(a))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() || !sha1Dir.MatchString(e.Name()) {
			continue
		}
		p := filepath.Join(s.moduleDir(a), e.Name(), FileName(a))
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			files = append(files, p)
		}
	}
	return files, nil
}

// Candidates returns the stored contents of the artifact as download
// candidates.
func (s *FileStore) Candidates(a coordinate.Artifact) transport.Candidates {
	return candidates{store: s, artifact: a}
}

type candidates struct {
	store    *FileStore
	artifact coordinate.Artifact
}

func (c candidates) IsNone() bool {
	files, err := c.store.Lookup(c.artifact)
	return err != nil || len(files) == 0
}

func (c candidates) FindBySHA1(ctx context.Context, sha1 string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if !sha1Dir.MatchString(sha1) {
		return "", false, nil
	}
	p := c.store.Path(c.artifact, sha1)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return p, info.Mode().IsRegular(), nil
}
