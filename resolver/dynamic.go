package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/internal/log"
	"ocm.software/open-component-model/artifactresolver/lister"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/version"
)

// lookup describes one search for the resource of an artifact.
type lookup struct {
	requested coordinate.ModuleRevisionID
	artifact  coordinate.Artifact
	patterns  []pattern.ResourcePattern
	// parser confirms dynamic candidates that need a descriptor.
	parser      descriptor.Parser
	date        time.Time
	forDownload bool
}

// findResource locates the resource of the artifact. Static revisions take
// the first pattern with an existing resource. Dynamic revisions list the
// versions of all patterns and take the latest acceptable candidate.
func (r *Resolver) findResource(ctx context.Context, l lookup) Outcome[*ResolvedResource] {
	if !r.matcher.IsDynamic(l.requested) {
		return NewArtifactResolver(r.repo, l.patterns, r.candidates).find(ctx, l.artifact, l.forDownload)
	}
	versions, err := r.listVersions(ctx, l.requested.ModuleID, l.patterns, l.artifact.ArtifactName)
	if err != nil {
		return Failed[*ResolvedResource](err)
	}
	return r.findLatest(ctx, l, versions)
}

func (r *Resolver) listVersions(ctx context.Context, module coordinate.ModuleID, patterns []pattern.ResourcePattern, name coordinate.ArtifactName) (*version.List, error) {
	s := lister.NewSession(r.repo, module)
	if err := lister.Collect(ctx, r.lister, s, patterns, name); err != nil {
		return nil, fmt.Errorf("unable to list versions of %s: %w", module, err)
	}
	return s.Versions, nil
}

// findLatest scans the candidates latest first and stops at the first one
// surviving all checks. There is no backtracking past an accepted candidate.
func (r *Resolver) findLatest(ctx context.Context, l lookup, versions *version.List) Outcome[*ResolvedResource] {
	logger := log.Base(ctx).With(slog.String("repository", r.Name()), slog.String("module", l.requested.String()))
	var rejected []Rejection
	reject := func(v string, reason Reason, res transport.Resource) {
		rej := Rejection{Version: v, Reason: reason}
		if res != nil {
			rej.Resource = res.Name()
			if err := res.Close(); err != nil {
				logger.WarnContext(ctx, "unable to close resource", slog.String("resource", res.Name()), slog.String("error", err.Error()))
			}
		}
		logger.DebugContext(ctx, string(reason), slog.String("candidate", rej.String()))
		rejected = append(rejected, rej)
	}

	for _, candidate := range versions.SortLatestFirst(r.cfg.strategy) {
		found := l.requested.WithRevision(candidate.Version)
		if !r.matcher.Accept(l.requested, found) {
			reject(candidate.Version, ReasonMatcher, nil)
			continue
		}
		needsDescriptor := r.matcher.NeedsDescriptor(l.requested, found)
		a := l.artifact.WithRevision(candidate.Version)
		path := candidate.Pattern.ToPath(a)
		res, err := getResource(ctx, r.repo, path, r.candidatesFor(a), l.forDownload || needsDescriptor)
		if errors.Is(err, transport.ErrNotFound) {
			rejected = append(rejected, Rejection{Version: candidate.Version, Reason: ReasonUnreachable, Resource: path})
			logger.DebugContext(ctx, string(ReasonUnreachable), slog.String("candidate", candidate.Version), slog.String("resource", path))
			continue
		}
		if err != nil {
			return Failed[*ResolvedResource](fmt.Errorf("unable to get resource for %s: res=%s: %w", found, path, err))
		}
		if !l.date.IsZero() && res.Metadata().LastModified.After(l.date) {
			reject(candidate.Version, ReasonTooYoung, res)
			continue
		}
		rr := &ResolvedResource{Resource: res, Artifact: a, Path: path, Pattern: candidate.Pattern}
		if !needsDescriptor {
			return Found(rr)
		}
		md, err := l.parser.Parse(ctx, a, res)
		switch {
		case errors.Is(err, descriptor.ErrParse):
			reject(candidate.Version, ReasonNoDescriptor, res)
			continue
		case err != nil:
			return Failed[*ResolvedResource](errors.Join(fmt.Errorf("unable to read module descriptor %s: %w", path, err), res.Close()))
		case md.Default:
			reject(candidate.Version, ReasonDefaultDescriptor, res)
			continue
		case !r.matcher.AcceptDescriptor(l.requested, md):
			reject(candidate.Version, ReasonDescriptorRejected, res)
			continue
		}
		rr.Descriptor = md
		return Found(rr)
	}
	if len(rejected) > 0 {
		logger.DebugContext(ctx, "no acceptable candidate", slog.Any("rejected", rejected))
	}
	return NotFound[*ResolvedResource](rejected...)
}
