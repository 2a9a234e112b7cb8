package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile writes the content of r to path through a temporary file in the
// same directory, so that path never holds partial content.
func WriteFile(path string, r io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".part-*")
	if err != nil {
		return fmt.Errorf("unable to create temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp.Name()))
		}
	}()
	if _, err := io.Copy(tmp, r); err != nil {
		return errors.Join(fmt.Errorf("unable to write %s: %w", path, err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close %s: %w", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), path)
}

// FileResource is a resource backed by a local file.
type FileResource struct {
	name string
	path string
	meta Metadata
}

var _ Resource = (*FileResource)(nil)

// NewFileResource creates a local resource named name for the file at path.
func NewFileResource(name, path string) (*FileResource, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrNotFound)
	}
	return &FileResource{
		name: name,
		path: path,
		meta: Metadata{Location: path, LastModified: fi.ModTime(), Size: fi.Size()},
	}, nil
}

func (r *FileResource) Name() string { return r.name }

func (r *FileResource) Metadata() Metadata { return r.meta }

func (r *FileResource) IsLocal() bool { return true }

// Path returns the local file.
func (r *FileResource) Path() string { return r.path }

func (r *FileResource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(r.path)
}

func (r *FileResource) WriteTo(_ context.Context, destination string) (err error) {
	if same, _ := samePath(r.path, destination); same {
		return nil
	}
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return WriteFile(destination, f)
}

func (r *FileResource) Close() error { return nil }

func samePath(a, b string) (bool, error) {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return aa == bb, nil
}

// StreamResource is a resource whose content is produced by an opener, for
// example a remote response or an archive entry.
type StreamResource struct {
	name   string
	meta   Metadata
	open   func(ctx context.Context) (io.ReadCloser, error)
	closer func() error
}

var _ Resource = (*StreamResource)(nil)

// NewStreamResource creates a non-local resource. closer may be nil.
func NewStreamResource(name string, meta Metadata, open func(ctx context.Context) (io.ReadCloser, error), closer func() error) *StreamResource {
	return &StreamResource{name: name, meta: meta, open: open, closer: closer}
}

func (r *StreamResource) Name() string { return r.name }

func (r *StreamResource) Metadata() Metadata { return r.meta }

func (r *StreamResource) IsLocal() bool { return false }

func (r *StreamResource) Open(ctx context.Context) (io.ReadCloser, error) {
	return r.open(ctx)
}

func (r *StreamResource) WriteTo(ctx context.Context, destination string) (err error) {
	rc, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()
	return WriteFile(destination, rc)
}

func (r *StreamResource) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
