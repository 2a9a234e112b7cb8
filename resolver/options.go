package resolver

import (
	"context"

	"ocm.software/open-component-model/artifactresolver/cache"
	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/lister"
	"ocm.software/open-component-model/artifactresolver/maven"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/version"
)

// SnapshotFunc looks up the unique snapshot a revision currently resolves
// to. ok is false when the revision resolves as is.
type SnapshotFunc func(ctx context.Context, repo transport.Repository, patterns []pattern.ResourcePattern, id coordinate.ModuleRevisionID) (src maven.TimestampedModuleSource, ok bool, err error)

// ModuleFilter can veto a module after it was located. A vetoed module is
// reported as not found.
type ModuleFilter func(ctx context.Context, r *Resolver, m *ResolvedModule) (bool, error)

// CandidateFinder offers previously downloaded files of an artifact.
type CandidateFinder interface {
	Candidates(a coordinate.Artifact) transport.Candidates
}

// Options are the collaborators of a Resolver.
type Options struct {
	// Parser reads descriptors. Defaults to the parser of the layout.
	Parser     descriptor.Parser
	Matcher    version.Matcher
	Lister     lister.Lister
	Statuses   *descriptor.StatusManager
	// Store receives downloaded artifacts and offers local candidates.
	Store      *cache.FileStore
	// Candidates overrides the candidate finder, defaults to Store.
	Candidates CandidateFinder
	Snapshot   SnapshotFunc
	Filter     ModuleFilter
}

// Option configures a Resolver.
type Option func(*Options)

// WithParser sets the descriptor parser.
func WithParser(p descriptor.Parser) Option {
	return func(o *Options) {
		o.Parser = p
	}
}

// WithMatcher sets the version matcher.
func WithMatcher(m version.Matcher) Option {
	return func(o *Options) {
		o.Matcher = m
	}
}

// WithLister sets the version lister.
func WithLister(l lister.Lister) Option {
	return func(o *Options) {
		o.Lister = l
	}
}

// WithStatuses sets the known statuses.
func WithStatuses(s *descriptor.StatusManager) Option {
	return func(o *Options) {
		o.Statuses = s
	}
}

// WithStore sets the artifact store.
func WithStore(s *cache.FileStore) Option {
	return func(o *Options) {
		o.Store = s
	}
}

// WithCandidates sets the local candidate finder.
func WithCandidates(c CandidateFinder) Option {
	return func(o *Options) {
		o.Candidates = c
	}
}

// WithSnapshotResolution enables unique snapshot lookups.
func WithSnapshotResolution(f SnapshotFunc) Option {
	return func(o *Options) {
		o.Snapshot = f
	}
}

// WithModuleFilter installs a filter for located modules.
func WithModuleFilter(f ModuleFilter) Option {
	return func(o *Options) {
		o.Filter = f
	}
}
