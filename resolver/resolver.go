// Package resolver resolves module revisions and their artifacts against a
// single repository laid out by resource patterns.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ocm.software/open-component-model/artifactresolver/checksum"
	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/descriptor/ivyxml"
	"ocm.software/open-component-model/artifactresolver/descriptor/pom"
	"ocm.software/open-component-model/artifactresolver/internal/log"
	"ocm.software/open-component-model/artifactresolver/lister"
	"ocm.software/open-component-model/artifactresolver/maven"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/version"
)

// Dependency is a request for one module revision.
type Dependency struct {
	ID coordinate.ModuleRevisionID
	// Artifacts are looked up for modules published without descriptor.
	// Defaults to a jar named after the module.
	Artifacts []coordinate.ArtifactName
	// Date excludes dynamic candidates modified after it. Zero disables
	// the cutoff.
	Date time.Time
}

// ResolvedModule is a located module revision.
type ResolvedModule struct {
	ID         coordinate.ModuleRevisionID
	Descriptor *descriptor.ModuleDescriptor
	// Location is the path of the descriptor, or of the artifact for
	// modules without descriptor.
	Location string
	Metadata transport.Metadata
	// Changing marks revisions whose content may be republished.
	Changing bool
	// Snapshot is set when a snapshot resolved to a unique snapshot.
	Snapshot   *maven.TimestampedModuleSource
	Repository string
}

// DownloadedArtifact is an artifact available as a local file.
type DownloadedArtifact struct {
	Artifact coordinate.Artifact
	Path     string
	// Local is set when the file was used in place instead of downloaded.
	Local bool
	// Checksum is the verified algorithm, empty when nothing was verified.
	Checksum checksum.Algorithm
	// Snapshot is set when a snapshot resolved to a unique snapshot.
	Snapshot *maven.TimestampedModuleSource
}

// Resolver resolves dependencies against one repository. It holds no
// state across calls, so calls may run concurrently.
type Resolver struct {
	cfg        *Config
	repo       transport.Repository
	parser     descriptor.Parser
	matcher    version.Matcher
	lister     lister.Lister
	statuses   *descriptor.StatusManager
	store      CandidateStore
	candidates CandidateFinder
	verifier   *Verifier
	snapshot   SnapshotFunc
	filter     ModuleFilter
}

// CandidateStore stores downloaded artifacts.
type CandidateStore interface {
	CandidateFinder
	TempFile(a coordinate.Artifact) (string, error)
	Move(ctx context.Context, a coordinate.Artifact, tmp string) (string, error)
}

// New creates a resolver over repo.
func New(cfg *Config, repo transport.Repository, opts ...Option) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New("resolver configuration is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository is required for resolver %q", cfg.Name())
	}
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Statuses == nil {
		options.Statuses = descriptor.DefaultStatusManager
	}
	if options.Matcher == nil {
		options.Matcher = version.NewDefaultMatcher(options.Statuses)
	}
	if options.Lister == nil {
		options.Lister = lister.ResourceVersionLister{}
	}
	if options.Parser == nil {
		if cfg.M2Compatible() {
			options.Parser = pom.Parser{}
		} else {
			options.Parser = ivyxml.Parser{}
		}
	}
	r := &Resolver{
		cfg:        cfg,
		repo:       repo,
		parser:     options.Parser,
		matcher:    options.Matcher,
		lister:     options.Lister,
		statuses:   options.Statuses,
		candidates: options.Candidates,
		verifier:   NewVerifier(repo, cfg.checksums),
		snapshot:   options.Snapshot,
		filter:     options.Filter,
	}
	if options.Store != nil {
		r.store = options.Store
		if r.candidates == nil {
			r.candidates = options.Store
		}
	}
	return r, nil
}

func (r *Resolver) Name() string { return r.cfg.Name() }

func (r *Resolver) Config() *Config { return r.cfg }

func (r *Resolver) Repository() transport.Repository { return r.repo }

func (r *Resolver) candidatesFor(a coordinate.Artifact) transport.Candidates {
	if r.candidates == nil {
		return transport.NoCandidates
	}
	return r.candidates.Candidates(a)
}

func (r *Resolver) resolveError(op string, module fmt.Stringer, err error) error {
	return &ResolveError{Op: op, Module: module.String(), Repository: r.Name(), Err: err}
}

// uniqueSnapshot looks up the unique snapshot of a snapshot revision.
func (r *Resolver) uniqueSnapshot(ctx context.Context, id coordinate.ModuleRevisionID) (*maven.TimestampedModuleSource, error) {
	if r.snapshot == nil || !maven.IsSnapshot(id.Revision) || r.matcher.IsDynamic(id) {
		return nil, nil
	}
	patterns := append(r.cfg.DescriptorPatterns(), r.cfg.artifactPatterns...)
	src, ok, err := r.snapshot(ctx, r.repo, patterns, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	log.Base(ctx).DebugContext(ctx, "resolved unique snapshot",
		slog.String("repository", r.Name()), slog.String("module", id.String()), slog.String("version", src.TimestampedVersion()))
	return &src, nil
}

func applySnapshot(src *maven.TimestampedModuleSource, patterns []pattern.ResourcePattern) []pattern.ResourcePattern {
	if src == nil {
		return patterns
	}
	return src.Apply(patterns)
}

// ResolveModule locates the descriptor of the dependency, or its first
// artifact when modules without descriptor are allowed.
func (r *Resolver) ResolveModule(ctx context.Context, dep Dependency) (out Outcome[*ResolvedModule]) {
	requested := dep.ID
	done := log.Operation(ctx, "resolve module", log.ModuleAttr(requested), slog.String("repository", r.Name()))
	defer func() {
		done(out.Err())
	}()

	snapshot, err := r.uniqueSnapshot(ctx, requested)
	if err != nil {
		return Failed[*ResolvedModule](r.resolveError("resolve", requested, err))
	}

	ref := r.findResource(ctx, lookup{
		requested:   requested,
		artifact:    r.cfg.DescriptorArtifact(requested),
		patterns:    applySnapshot(snapshot, r.cfg.descriptorPatterns),
		parser:      r.parser,
		date:        dep.Date,
		forDownload: true,
	})

	var module *ResolvedModule
	switch ref.Status() {
	case StatusFailed:
		return Failed[*ResolvedModule](r.resolveError("resolve", requested, ref.Err()))
	case StatusNotFound:
		if !r.cfg.allowNoDescriptor {
			log.Base(ctx).DebugContext(ctx, "no module descriptor found", slog.String("repository", r.Name()), slog.String("module", requested.String()))
			return NotFound[*ResolvedModule](ref.Rejected()...)
		}
		found := r.resolveWithoutDescriptor(ctx, dep, snapshot)
		if !found.IsFound() {
			if found.IsNotFound() {
				found.rejected = append(ref.Rejected(), found.rejected...)
			}
			return found
		}
		module, _ = found.Value()
	default:
		rr, _ := ref.Value()
		md, err := r.readDescriptor(ctx, requested, rr)
		if err != nil {
			return Failed[*ResolvedModule](r.resolveError("resolve", requested, err))
		}
		module = &ResolvedModule{
			ID:         md.ID,
			Descriptor: md,
			Location:   rr.Path,
			Metadata:   rr.Resource.Metadata(),
		}
	}

	module.Repository = r.Name()
	module.Snapshot = snapshot
	module.Changing = r.cfg.IsChanging(module.ID.Revision)
	if r.filter != nil {
		ok, err := r.filter(ctx, r, module)
		if err != nil {
			return Failed[*ResolvedModule](r.resolveError("resolve", requested, err))
		}
		if !ok {
			return NotFound[*ResolvedModule]()
		}
	}
	return Found(module)
}

// readDescriptor parses the located descriptor unless the dynamic scan did
// already, and checks it against the request.
func (r *Resolver) readDescriptor(ctx context.Context, requested coordinate.ModuleRevisionID, rr *ResolvedResource) (_ *descriptor.ModuleDescriptor, err error) {
	defer func() {
		err = errors.Join(err, rr.Close())
	}()
	md := rr.Descriptor
	if md == nil {
		if md, err = r.parser.Parse(ctx, rr.Artifact, rr.Resource); err != nil {
			return nil, err
		}
	}
	if r.cfg.checkConsistency {
		if err := r.checkConsistency(ctx, requested, md, rr); err != nil {
			return nil, err
		}
	}
	return md, nil
}

func (r *Resolver) dependencyArtifacts(dep Dependency) []coordinate.ArtifactName {
	if len(dep.Artifacts) > 0 {
		return dep.Artifacts
	}
	return []coordinate.ArtifactName{{Name: dep.ID.Name, Type: coordinate.TypeJar, Extension: "jar"}}
}

// resolveWithoutDescriptor synthesizes a default descriptor from the first
// artifact of the dependency that exists.
func (r *Resolver) resolveWithoutDescriptor(ctx context.Context, dep Dependency, snapshot *maven.TimestampedModuleSource) Outcome[*ResolvedModule] {
	requested := dep.ID
	names := r.dependencyArtifacts(dep)
	patterns := applySnapshot(snapshot, r.cfg.artifactPatterns)
	var rejected []Rejection
	for _, name := range names {
		ref := r.findResource(ctx, lookup{
			requested: requested,
			artifact:  coordinate.Artifact{Module: requested, ArtifactName: name},
			patterns:  patterns,
			parser:    descriptor.DefaultParser,
			date:      dep.Date,
		})
		switch ref.Status() {
		case StatusFailed:
			return Failed[*ResolvedModule](r.resolveError("resolve", requested, ref.Err()))
		case StatusNotFound:
			rejected = append(rejected, ref.Rejected()...)
			continue
		}
		rr, _ := ref.Value()
		if err := rr.Close(); err != nil {
			return Failed[*ResolvedModule](r.resolveError("resolve", requested, err))
		}
		id := requested
		if r.matcher.IsDynamic(requested) {
			id = requested.WithRevision(rr.Revision())
		}
		meta := rr.Resource.Metadata()
		md := descriptor.NewDefault(id, names[0], meta.LastModified)
		md.Configurations[0].Artifacts = names
		log.Base(ctx).DebugContext(ctx, "no module descriptor found, using default data",
			slog.String("repository", r.Name()), slog.String("module", id.String()))
		return Found(&ResolvedModule{ID: id, Descriptor: md, Location: rr.Path, Metadata: meta})
	}
	log.Base(ctx).DebugContext(ctx, "no module descriptor nor artifact found",
		slog.String("repository", r.Name()), slog.String("module", requested.String()))
	return NotFound[*ResolvedModule](rejected...)
}

// patternsFor returns the patterns locating the artifact: descriptor
// patterns for descriptor artifacts, artifact patterns otherwise.
func (r *Resolver) patternsFor(a coordinate.Artifact) []pattern.ResourcePattern {
	if a.Type == r.cfg.DescriptorArtifact(a.Module).Type && len(r.cfg.descriptorPatterns) > 0 {
		return r.cfg.descriptorPatterns
	}
	return r.cfg.artifactPatterns
}

// LocateArtifact finds the resource of an artifact without downloading it.
func (r *Resolver) LocateArtifact(ctx context.Context, a coordinate.Artifact) Outcome[*ResolvedResource] {
	snapshot, err := r.uniqueSnapshot(ctx, a.Module)
	if err != nil {
		return Failed[*ResolvedResource](r.resolveError("locate", a, err))
	}
	return r.findResource(ctx, lookup{
		requested: a.Module,
		artifact:  a,
		patterns:  applySnapshot(snapshot, r.patternsFor(a)),
		parser:    descriptor.DefaultParser,
	})
}

// ResolveArtifact downloads the artifact into the store and verifies its
// checksum. Local resources are used in place.
func (r *Resolver) ResolveArtifact(ctx context.Context, a coordinate.Artifact) (out Outcome[*DownloadedArtifact]) {
	done := log.Operation(ctx, "resolve artifact", log.ArtifactAttr(a), slog.String("repository", r.Name()))
	defer func() {
		done(out.Err())
	}()

	snapshot, err := r.uniqueSnapshot(ctx, a.Module)
	if err != nil {
		return Failed[*DownloadedArtifact](r.resolveError("download", a, err))
	}
	ref := r.findResource(ctx, lookup{
		requested:   a.Module,
		artifact:    a,
		patterns:    applySnapshot(snapshot, r.patternsFor(a)),
		parser:      descriptor.DefaultParser,
		forDownload: true,
	})
	switch ref.Status() {
	case StatusFailed:
		return Failed[*DownloadedArtifact](r.resolveError("download", a, ref.Err()))
	case StatusNotFound:
		return NotFound[*DownloadedArtifact](ref.Rejected()...)
	}
	rr, _ := ref.Value()
	downloaded, err := r.download(ctx, rr)
	if err != nil {
		return Failed[*DownloadedArtifact](r.resolveError("download", a, err))
	}
	downloaded.Snapshot = snapshot
	return Found(downloaded)
}

func (r *Resolver) download(ctx context.Context, rr *ResolvedResource) (_ *DownloadedArtifact, err error) {
	defer func() {
		err = errors.Join(err, rr.Close())
	}()
	a := rr.Artifact
	if local, ok := rr.Resource.(*transport.FileResource); ok {
		// never removed, the file belongs to the repository or the store
		alg, err := r.verifier.Verify(ctx, rr.Path, local.Path())
		if err != nil {
			return nil, err
		}
		return &DownloadedArtifact{Artifact: a, Path: local.Path(), Local: true, Checksum: alg}, nil
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: no artifact store to download %s to", ErrUnsupportedConfiguration, a)
	}

	tmp, err := r.store.TempFile(a)
	if err != nil {
		return nil, err
	}
	cleanup := func(err error) error {
		return errors.Join(err, os.Remove(tmp))
	}
	log.Base(ctx).DebugContext(ctx, "downloading", slog.String("resource", rr.Path), slog.String("destination", tmp))
	if err := rr.Resource.WriteTo(ctx, tmp); err != nil {
		return nil, cleanup(fmt.Errorf("unable to download %s: %w", rr.Path, err))
	}
	alg, err := r.verifier.Verify(ctx, rr.Path, tmp)
	if err != nil {
		return nil, cleanup(err)
	}
	path, err := r.store.Move(ctx, a, tmp)
	if err != nil {
		return nil, cleanup(err)
	}
	if rec, ok := rr.Resource.(transport.Recorder); ok {
		rec.Record(ctx)
	}
	log.Base(ctx).InfoContext(ctx, "downloaded", slog.String("repository", r.Name()), slog.String("artifact", a.String()), slog.String("path", path))
	return &DownloadedArtifact{Artifact: a, Path: path, Checksum: alg}, nil
}

// ListModuleVersions lists the versions of a module, latest first. Artifact
// patterns contribute when modules without descriptor are allowed.
func (r *Resolver) ListModuleVersions(ctx context.Context, module coordinate.ModuleID) ([]version.ListedVersion, error) {
	s := lister.NewSession(r.repo, module)
	id := coordinate.ModuleRevisionID{ModuleID: module}
	var errs []error
	if err := lister.Collect(ctx, r.lister, s, r.cfg.descriptorPatterns, r.cfg.DescriptorArtifact(id).ArtifactName); err != nil {
		errs = append(errs, err)
	}
	if r.cfg.allowNoDescriptor {
		name := coordinate.ArtifactName{Name: module.Name, Type: coordinate.TypeJar, Extension: "jar"}
		if err := lister.Collect(ctx, r.lister, s, r.cfg.artifactPatterns, name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && s.Versions.IsEmpty() {
		return nil, r.resolveError("list versions of", module, errors.Join(errs...))
	}
	return s.Versions.SortLatestFirst(r.cfg.strategy), nil
}

// Publish uploads src as the artifact. Descriptor artifacts go to the first
// descriptor pattern, everything else to the first artifact pattern.
func (r *Resolver) Publish(ctx context.Context, a coordinate.Artifact, src string) (err error) {
	done := log.Operation(ctx, "publish", log.ArtifactAttr(a), slog.String("repository", r.Name()))
	defer func() {
		done(err)
	}()

	var p pattern.ResourcePattern
	switch {
	case a.Type == r.cfg.DescriptorArtifact(a.Module).Type && len(r.cfg.descriptorPatterns) > 0:
		p = r.cfg.descriptorPatterns[0]
	case len(r.cfg.artifactPatterns) > 0:
		p = r.cfg.artifactPatterns[0]
	default:
		return fmt.Errorf("%w: impossible to publish %s using %s: no artifact pattern defined", ErrUnsupportedConfiguration, a, r.Name())
	}
	if len(r.cfg.checksums) > 0 {
		return fmt.Errorf("%w: publishing with checksums %v is not supported", ErrUnsupportedConfiguration, r.cfg.checksums)
	}
	destination := p.ToPath(a)
	if err := r.repo.Put(ctx, src, destination); err != nil {
		return r.resolveError("publish", a, err)
	}
	log.Base(ctx).InfoContext(ctx, "Published", slog.String("artifact", a.Name), slog.String("destination", destination))
	return nil
}

// ResolveOptionalArtifacts returns the sources or javadoc artifact of a
// module if it exists.
func (r *Resolver) ResolveOptionalArtifacts(ctx context.Context, module coordinate.ModuleRevisionID, kind string) ([]coordinate.Artifact, error) {
	if kind != coordinate.TypeSources && kind != coordinate.TypeJavadoc {
		return nil, fmt.Errorf("%w: unknown optional artifact kind %q", ErrUnsupportedConfiguration, kind)
	}
	a := coordinate.NewArtifact(module, module.Name, kind, "jar", kind)
	found := r.LocateArtifact(ctx, a)
	switch found.Status() {
	case StatusFailed:
		return nil, found.Err()
	case StatusNotFound:
		return nil, nil
	}
	rr, _ := found.Value()
	if err := rr.Close(); err != nil {
		return nil, err
	}
	return []coordinate.Artifact{rr.Artifact}, nil
}
