// Package filesystem provides repositories backed by a local directory or by
// a read-only file system such as a tar archive.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"ocm.software/open-component-model/artifactresolver/transport"
)

// Repository is a read-write repository rooted at a local directory. Its
// resources are local, so artifacts are used in place.
type Repository struct {
	name string
	root string
}

var _ transport.Repository = (*Repository)(nil)

// New creates a repository rooted at dir. The directory need not exist yet.
func New(name, dir string) (*Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve repository root %s: %w", dir, err)
	}
	return &Repository{name: name, root: abs}, nil
}

// Root returns the directory of the repository.
func (r *Repository) Root() string { return r.root }

func (r *Repository) Name() string { return r.name }

func (r *Repository) resolve(path string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(path, "/"))
	full := filepath.Join(r.root, rel)
	if full != r.root && !strings.HasPrefix(full, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes repository root", path)
	}
	return full, nil
}

func (r *Repository) Exists(_ context.Context, path string) (bool, error) {
	full, err := r.resolve(path)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !fi.IsDir(), nil
}

func (r *Repository) List(_ context.Context, path string) ([]string, error) {
	full, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, transport.ErrNotFound)
	}
	if err != nil {
		if fi, statErr := os.Stat(full); statErr == nil && !fi.IsDir() {
			return nil, fmt.Errorf("%s is not a directory: %w", path, transport.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to list %s: %w", path, err)
	}
	return names(entries), nil
}

func (r *Repository) Get(_ context.Context, path string, _ transport.Candidates) (transport.Resource, error) {
	full, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	res, err := transport.NewFileResource(path, full)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Repository) GetMetadata(ctx context.Context, path string) (transport.Metadata, error) {
	res, err := r.Get(ctx, path, nil)
	if err != nil {
		return transport.Metadata{}, err
	}
	return res.Metadata(), res.Close()
}

func (r *Repository) Put(_ context.Context, source string, path string) (err error) {
	full, err := r.resolve(path)
	if err != nil {
		return err
	}
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", source, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return transport.WriteFile(full, f)
}

func names(entries []fs.DirEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	slices.Sort(out)
	return out
}
