package filesystem

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/nlepage/go-tarfs"

	"ocm.software/open-component-model/artifactresolver/transport"
)

// FSRepository is a read-only repository over an fs.FS.
type FSRepository struct {
	name string
	fsys fs.FS
}

var _ transport.Repository = (*FSRepository)(nil)

// NewFS creates a read-only repository over fsys.
func NewFS(name string, fsys fs.FS) *FSRepository {
	return &FSRepository{name: name, fsys: fsys}
}

// OpenArchive loads a tar archive, optionally gzip compressed, as a
// read-only repository.
func OpenArchive(name, archive string) (_ *FSRepository, err error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive %s: %w", archive, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	var reader io.Reader = f
	if strings.HasSuffix(archive, ".tgz") || strings.HasSuffix(archive, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("unable to open gzip stream of %s: %w", archive, err)
		}
		defer func() {
			err = errors.Join(err, gz.Close())
		}()
		reader = gz
	}
	fsys, err := tarfs.New(reader)
	if err != nil {
		return nil, fmt.Errorf("unable to read archive %s: %w", archive, err)
	}
	return NewFS(name, fsys), nil
}

func (r *FSRepository) Name() string { return r.name }

func fsPath(p string) string {
	p = path.Clean("/" + p)
	if p == "/" {
		return "."
	}
	return strings.TrimPrefix(p, "/")
}

func (r *FSRepository) stat(p string) (fs.FileInfo, error) {
	fi, err := fs.Stat(r.fsys, fsPath(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, transport.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return fi, nil
}

func (r *FSRepository) Exists(_ context.Context, p string) (bool, error) {
	fi, err := r.stat(p)
	if errors.Is(err, transport.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !fi.IsDir(), nil
}

func (r *FSRepository) List(_ context.Context, p string) ([]string, error) {
	fi, err := r.stat(p)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", p, transport.ErrNotFound)
	}
	entries, err := fs.ReadDir(r.fsys, fsPath(p))
	if err != nil {
		return nil, fmt.Errorf("unable to list %s: %w", p, err)
	}
	return names(entries), nil
}

func (r *FSRepository) metadata(p string) (transport.Metadata, error) {
	fi, err := r.stat(p)
	if err != nil {
		return transport.Metadata{}, err
	}
	if fi.IsDir() {
		return transport.Metadata{}, fmt.Errorf("%s is a directory: %w", p, transport.ErrNotFound)
	}
	return transport.Metadata{
		Location:     r.name + "!/" + fsPath(p),
		LastModified: fi.ModTime(),
		Size:         fi.Size(),
	}, nil
}

func (r *FSRepository) Get(ctx context.Context, p string, candidates transport.Candidates) (transport.Resource, error) {
	meta, err := r.metadata(p)
	if err != nil {
		return nil, err
	}
	if local, err := transport.ReuseCandidate(ctx, r, p, candidates); err != nil || local != nil {
		return local, err
	}
	return transport.NewStreamResource(p, meta, func(context.Context) (io.ReadCloser, error) {
		return r.fsys.Open(fsPath(p))
	}, nil), nil
}

func (r *FSRepository) GetMetadata(_ context.Context, p string) (transport.Metadata, error) {
	return r.metadata(p)
}

func (r *FSRepository) Put(context.Context, string, string) error {
	return fmt.Errorf("cannot publish to %s: %w", r.name, transport.ErrReadOnly)
}
