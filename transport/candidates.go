package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"ocm.software/open-component-model/artifactresolver/checksum"
)

// IndexEntry remembers what was known about a remote resource when it was
// last downloaded.
type IndexEntry struct {
	SHA1         string    `json:"sha1"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag,omitempty"`
	CachedAt     time.Time `json:"cachedAt"`
}

// Unchanged reports whether meta describes the same content as the entry.
func (e IndexEntry) Unchanged(meta Metadata) bool {
	if e.ETag != "" && meta.ETag != "" {
		return e.ETag == meta.ETag
	}
	return !e.LastModified.IsZero() &&
		e.LastModified.Equal(meta.LastModified) &&
		meta.Size != UnknownSize &&
		e.Size == meta.Size
}

// Index stores IndexEntry values by resource location.
type Index interface {
	Lookup(ctx context.Context, location string) (IndexEntry, bool, error)
	Store(ctx context.Context, location string, entry IndexEntry) error
}

// ReuseCandidate downloads the sha1 sibling of path and returns a local
// resource for the first candidate holding that content. It returns nil when
// no candidate matches or the repository publishes no sha1.
func ReuseCandidate(ctx context.Context, repo Repository, path string, candidates Candidates) (Resource, error) {
	if !HasCandidates(candidates) {
		return nil, nil
	}
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", "transport"), slog.String("path", path))

	sha1, err := FetchChecksum(ctx, repo, path, checksum.SHA1)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.DebugContext(ctx, "unable to fetch sha1 for local candidate lookup", slog.String("error", err.Error()))
		return nil, nil
	}
	return FindCandidate(ctx, path, sha1, candidates)
}

// FindCandidate returns a local resource for the candidate with the sha1.
func FindCandidate(ctx context.Context, path, sha1 string, candidates Candidates) (Resource, error) {
	local, ok, err := candidates.FindBySHA1(ctx, sha1)
	if err != nil {
		return nil, fmt.Errorf("unable to look up local candidates for %s: %w", path, err)
	}
	if !ok {
		return nil, nil
	}
	slogcontext.FromCtx(ctx).DebugContext(ctx, "reusing local candidate",
		slog.String("realm", "transport"), slog.String("path", path), slog.String("candidate", local))
	res, err := NewFileResource(path, local)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FetchChecksum reads the checksum sibling of path for the algorithm.
func FetchChecksum(ctx context.Context, repo Repository, path string, alg checksum.Algorithm) (_ string, err error) {
	res, err := repo.Get(ctx, path+alg.Extension(), nil)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, res.Close())
	}()
	rc, err := res.Open(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()
	content, err := io.ReadAll(io.LimitReader(rc, 64*1024))
	if err != nil {
		return "", fmt.Errorf("unable to read %s: %w", res.Name(), err)
	}
	return checksum.ParseContent(content)
}
