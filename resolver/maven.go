package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor/pom"
	"ocm.software/open-component-model/artifactresolver/internal/log"
	"ocm.software/open-component-model/artifactresolver/lister"
	"ocm.software/open-component-model/artifactresolver/maven"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/transport/filesystem"
)

// NewMaven creates a resolver for an M2 repository. Versions are listed
// from maven-metadata.xml, falling back to directory listings, and snapshot
// revisions resolve to their unique snapshot.
func NewMaven(cfg *Config, repo transport.Repository, opts ...Option) (*Resolver, error) {
	if cfg != nil && !cfg.M2Compatible() {
		return nil, fmt.Errorf("%w: resolver %q is not m2 compatible", ErrUnsupportedConfiguration, cfg.Name())
	}
	defaults := []Option{
		WithLister(lister.NewChainedVersionLister(lister.MavenVersionLister{}, lister.ResourceVersionLister{})),
		WithSnapshotResolution(FindUniqueSnapshot),
	}
	return New(cfg, repo, append(defaults, opts...)...)
}

// NewMavenLocal creates a resolver for a local M2 repository directory.
// Artifacts are used in place and POM files without their jar are ignored.
func NewMavenLocal(cfg *Config, dir string, opts ...Option) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New("resolver configuration is required")
	}
	repo, err := filesystem.New(cfg.Name(), dir)
	if err != nil {
		return nil, err
	}
	defaults := []Option{WithModuleFilter(OrphanedPOMFilter)}
	return NewMaven(cfg, repo, append(defaults, opts...)...)
}

// FindUniqueSnapshot reads the unique snapshot of a revision through the
// first pattern that can address module version directories.
func FindUniqueSnapshot(ctx context.Context, repo transport.Repository, patterns []pattern.ResourcePattern, id coordinate.ModuleRevisionID) (maven.TimestampedModuleSource, bool, error) {
	for _, p := range patterns {
		src, ok, err := maven.FindUniqueSnapshot(ctx, repo, p, id)
		if errors.Is(err, pattern.ErrUnsupportedLayout) {
			continue
		}
		return src, ok, err
	}
	return maven.TimestampedModuleSource{}, false, nil
}

// OrphanedPOMFilter ignores modules whose POM announces a jar that is not
// there, as left behind by partial installs into a local repository.
func OrphanedPOMFilter(ctx context.Context, r *Resolver, m *ResolvedModule) (bool, error) {
	md := m.Descriptor
	if md == nil || md.Default || !pom.ImpliesJar(md.Packaging) {
		return true, nil
	}
	jar := coordinate.NewArtifact(m.ID, m.ID.Name, coordinate.TypeJar, "jar", "")
	ok, err := NewArtifactResolver(r.repo, applySnapshot(m.Snapshot, r.cfg.artifactPatterns), nil).Exists(ctx, jar)
	if err != nil {
		return false, err
	}
	if !ok {
		log.Base(ctx).DebugContext(ctx, "POM file found for module but no jar, ignoring",
			slog.String("repository", r.Name()), slog.String("module", m.ID.String()))
	}
	return ok, nil
}
