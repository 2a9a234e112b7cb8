// Package transport defines the repository access used by the resolution
// engine. Implementations perform the actual network or filesystem I/O.
package transport

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a resource or listing does not exist.
	// It is never fatal by itself.
	ErrNotFound = errors.New("resource not found")
	// ErrReadOnly is returned by repositories that do not accept uploads.
	ErrReadOnly = errors.New("repository is read-only")
)

// UnknownSize marks metadata without a content length.
const UnknownSize int64 = -1

// Metadata describes a resource without its content.
type Metadata struct {
	// Location is the transport specific address of the resource.
	Location     string
	LastModified time.Time
	Size         int64
	// ETag is an opaque version marker if the transport provides one.
	ETag string
	// SHA1 is a checksum announced by the transport, not verified.
	SHA1 string
}

// Resource is an opened remote or local resource. It must be closed.
type Resource interface {
	// Name returns the path the resource was requested under.
	Name() string
	Metadata() Metadata
	// IsLocal reports whether the content already resides on the local
	// filesystem, so that no download happens.
	IsLocal() bool
	// Open returns a reader over the content.
	Open(ctx context.Context) (io.ReadCloser, error)
	// WriteTo stores the content at the destination file.
	WriteTo(ctx context.Context, destination string) error
	io.Closer
}

// Recorder is implemented by resources that remember their last written
// content. Record is called once that content has been verified.
type Recorder interface {
	Record(ctx context.Context)
}

// Candidates are previously downloaded files that may hold the content of a
// requested resource.
type Candidates interface {
	IsNone() bool
	// FindBySHA1 returns the path of a local file with the given sha1.
	FindBySHA1(ctx context.Context, sha1 string) (string, bool, error)
}

// Repository exposes resources by path. Paths use "/" as separator and are
// relative to the repository root.
type Repository interface {
	Name() string
	Exists(ctx context.Context, path string) (bool, error)
	// List returns the entry names of a directory. ErrNotFound means the
	// directory cannot be listed; an empty list means it is empty.
	List(ctx context.Context, path string) ([]string, error)
	// Get opens the resource. Candidates may be nil.
	Get(ctx context.Context, path string, candidates Candidates) (Resource, error)
	GetMetadata(ctx context.Context, path string) (Metadata, error)
	Put(ctx context.Context, source string, path string) error
}

// NoCandidates is the empty candidate set.
var NoCandidates Candidates = noCandidates{}

type noCandidates struct{}

func (noCandidates) IsNone() bool { return true }

func (noCandidates) FindBySHA1(context.Context, string) (string, bool, error) {
	return "", false, nil
}

// HasCandidates reports whether c offers any local file.
func HasCandidates(c Candidates) bool {
	return c != nil && !c.IsNone()
}
