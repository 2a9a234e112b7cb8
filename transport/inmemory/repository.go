// Package inmemory provides a repository held entirely in memory.
package inmemory

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"ocm.software/open-component-model/artifactresolver/transport"
)

// Operation names used for call accounting and fault injection.
const (
	OpExists      = "exists"
	OpList        = "list"
	OpGet         = "get"
	OpGetMetadata = "getMetadata"
	OpPut         = "put"
)

type entry struct {
	data         []byte
	lastModified time.Time
}

// Repository is a thread safe in-memory repository.
type Repository struct {
	name string

	mu     sync.RWMutex
	files  map[string]entry
	faults map[string]error
	calls  map[string]int
}

var _ transport.Repository = (*Repository)(nil)

// New creates an empty repository.
func New(name string) *Repository {
	return &Repository{
		name:   name,
		files:  map[string]entry{},
		faults: map[string]error{},
		calls:  map[string]int{},
	}
}

func clean(path string) string {
	return strings.Trim(path, "/")
}

func key(op, path string) string {
	return op + " " + clean(path)
}

// Add stores content at path.
func (r *Repository) Add(path string, data []byte, lastModified time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[clean(path)] = entry{data: bytes.Clone(data), lastModified: lastModified}
}

// AddString stores text content at path with the current time.
func (r *Repository) AddString(path, data string) {
	r.Add(path, []byte(data), time.Now())
}

// Remove deletes the content at path.
func (r *Repository) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, clean(path))
}

// Fail makes every call of op on path return err.
func (r *Repository) Fail(op, path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[key(op, path)] = err
}

// Calls returns how often op was invoked on path.
func (r *Repository) Calls(op, path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls[key(op, path)]
}

// Content returns the stored content of path.
func (r *Repository) Content(path string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.files[clean(path)]
	return e.data, ok
}

func (r *Repository) enter(op, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(op, path)
	r.calls[k]++
	return r.faults[k]
}

func (r *Repository) Name() string { return r.name }

func (r *Repository) Exists(_ context.Context, path string) (bool, error) {
	if err := r.enter(OpExists, path); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.files[clean(path)]
	return ok, nil
}

func (r *Repository) List(_ context.Context, path string) ([]string, error) {
	if err := r.enter(OpList, path); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	dir := clean(path)
	prefix := dir + "/"
	if dir == "" {
		prefix = ""
	}
	if _, isFile := r.files[dir]; isFile && dir != "" {
		return nil, fmt.Errorf("%s is not a directory: %w", path, transport.ErrNotFound)
	}
	var names []string
	for p := range r.files {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || rest == "" {
			continue
		}
		name, _, _ := strings.Cut(rest, "/")
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	if names == nil {
		return nil, fmt.Errorf("%s: %w", path, transport.ErrNotFound)
	}
	slices.Sort(names)
	return names, nil
}

func (r *Repository) lookup(path string) (entry, transport.Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.files[clean(path)]
	if !ok {
		return entry{}, transport.Metadata{}, fmt.Errorf("%s: %w", path, transport.ErrNotFound)
	}
	sum := sha1.Sum(e.data)
	return e, transport.Metadata{
		Location:     "mem://" + r.name + "/" + clean(path),
		LastModified: e.lastModified,
		Size:         int64(len(e.data)),
		SHA1:         hex.EncodeToString(sum[:]),
	}, nil
}

func (r *Repository) Get(ctx context.Context, path string, candidates transport.Candidates) (transport.Resource, error) {
	if err := r.enter(OpGet, path); err != nil {
		return nil, err
	}
	e, meta, err := r.lookup(path)
	if err != nil {
		return nil, err
	}
	if transport.HasCandidates(candidates) {
		local, err := transport.FindCandidate(ctx, path, meta.SHA1, candidates)
		if err != nil {
			return nil, err
		}
		if local != nil {
			return local, nil
		}
	}
	return transport.NewStreamResource(path, meta, func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(e.data)), nil
	}, nil), nil
}

func (r *Repository) GetMetadata(_ context.Context, path string) (transport.Metadata, error) {
	if err := r.enter(OpGetMetadata, path); err != nil {
		return transport.Metadata{}, err
	}
	_, meta, err := r.lookup(path)
	return meta, err
}

func (r *Repository) Put(_ context.Context, source string, path string) error {
	if err := r.enter(OpPut, path); err != nil {
		return err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", source, err)
	}
	r.Add(path, data, time.Now())
	return nil
}
