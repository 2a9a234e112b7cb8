package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/internal/log"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
)

// ResolvedResource is a located resource of an artifact. Descriptor is set
// when the resource was parsed as the descriptor of its module.
type ResolvedResource struct {
	Resource   transport.Resource
	// Artifact carries the resolved revision.
	Artifact   coordinate.Artifact
	// Path is the location of the resource in its repository.
	Path       string
	Pattern    pattern.ResourcePattern
	Descriptor *descriptor.ModuleDescriptor
}

// HasDescriptor reports whether the resource carries a parsed descriptor.
func (r *ResolvedResource) HasDescriptor() bool {
	return r.Descriptor != nil
}

// Revision is the resolved revision.
func (r *ResolvedResource) Revision() string {
	return r.Artifact.Module.Revision
}

func (r *ResolvedResource) Close() error {
	if r == nil || r.Resource == nil {
		return nil
	}
	return r.Resource.Close()
}

// ArtifactResolver locates fixed revision artifacts through an ordered list
// of patterns. The first pattern with an existing resource wins.
type ArtifactResolver struct {
	repo       transport.Repository
	patterns   []pattern.ResourcePattern
	candidates CandidateFinder
}

// NewArtifactResolver creates a resolver over the patterns. candidates may
// be nil.
func NewArtifactResolver(repo transport.Repository, patterns []pattern.ResourcePattern, candidates CandidateFinder) *ArtifactResolver {
	return &ArtifactResolver{repo: repo, patterns: patterns, candidates: candidates}
}

// Exists reports whether any pattern yields an existing resource.
func (r *ArtifactResolver) Exists(ctx context.Context, a coordinate.Artifact) (bool, error) {
	for _, p := range r.patterns {
		ok, err := r.repo.Exists(ctx, p.ToPath(a))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Resolve opens the first existing resource of the artifact for download,
// offering previously downloaded candidates to the transport.
func (r *ArtifactResolver) Resolve(ctx context.Context, a coordinate.Artifact) Outcome[*ResolvedResource] {
	return r.find(ctx, a, true)
}

// Locate finds the first existing resource of the artifact without
// downloading it.
func (r *ArtifactResolver) Locate(ctx context.Context, a coordinate.Artifact) Outcome[*ResolvedResource] {
	return r.find(ctx, a, false)
}

func (r *ArtifactResolver) find(ctx context.Context, a coordinate.Artifact, forDownload bool) Outcome[*ResolvedResource] {
	logger := log.Base(ctx).With(slog.String("repository", r.repo.Name()))
	for _, p := range r.patterns {
		path := p.ToPath(a)
		logger.DebugContext(ctx, "loading resource", slog.String("path", path))
		res, err := getResource(ctx, r.repo, path, r.candidatesFor(a), forDownload)
		if errors.Is(err, transport.ErrNotFound) {
			logger.DebugContext(ctx, "resource not reachable", slog.String("artifact", a.String()), slog.String("path", path))
			continue
		}
		if err != nil {
			return Failed[*ResolvedResource](fmt.Errorf("unable to get resource for %s: res=%s: %w", a.Module, path, err))
		}
		return Found(&ResolvedResource{Resource: res, Artifact: a, Path: path, Pattern: p})
	}
	return NotFound[*ResolvedResource]()
}

func (r *ArtifactResolver) candidatesFor(a coordinate.Artifact) transport.Candidates {
	if r.candidates == nil {
		return transport.NoCandidates
	}
	return r.candidates.Candidates(a)
}

// getResource opens path for download, or only fetches its metadata.
func getResource(ctx context.Context, repo transport.Repository, path string, candidates transport.Candidates, forDownload bool) (transport.Resource, error) {
	if forDownload {
		return repo.Get(ctx, path, candidates)
	}
	meta, err := repo.GetMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	return &metadataResource{repo: repo, path: path, meta: meta, candidates: candidates}, nil
}

// metadataResource defers opening the content until it is read.
type metadataResource struct {
	repo       transport.Repository
	path       string
	meta       transport.Metadata
	candidates transport.Candidates
	opened     transport.Resource
}

func (m *metadataResource) Name() string                 { return m.path }
func (m *metadataResource) Metadata() transport.Metadata { return m.meta }
func (m *metadataResource) IsLocal() bool {
	return m.opened != nil && m.opened.IsLocal()
}

func (m *metadataResource) open(ctx context.Context) (transport.Resource, error) {
	if m.opened != nil {
		return m.opened, nil
	}
	res, err := m.repo.Get(ctx, m.path, m.candidates)
	if err != nil {
		return nil, err
	}
	m.opened = res
	return res, nil
}

func (m *metadataResource) Open(ctx context.Context) (io.ReadCloser, error) {
	res, err := m.open(ctx)
	if err != nil {
		return nil, err
	}
	return res.Open(ctx)
}

func (m *metadataResource) WriteTo(ctx context.Context, destination string) error {
	res, err := m.open(ctx)
	if err != nil {
		return err
	}
	return res.WriteTo(ctx, destination)
}

func (m *metadataResource) Record(ctx context.Context) {
	if rec, ok := m.opened.(transport.Recorder); ok {
		rec.Record(ctx)
	}
}

func (m *metadataResource) Close() error {
	if m.opened == nil {
		return nil
	}
	return m.opened.Close()
}
