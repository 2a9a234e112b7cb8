package lister

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/maven"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
)

const realm = "lister"

// Lister adds the versions reachable through one pattern to the session.
// It returns an error wrapping transport.ErrNotFound if the pattern's
// listing source does not exist.
type Lister interface {
	Visit(ctx context.Context, s *Session, p pattern.ResourcePattern, name coordinate.ArtifactName) error
}

// ListingError reports a failure to list versions through a pattern.
type ListingError struct {
	Pattern pattern.ResourcePattern
	Err     error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("could not list versions using %s: %v", e.Pattern, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// ResourceVersionLister lists versions by listing the directory that holds
// the revision token.
type ResourceVersionLister struct{}

var _ Lister = ResourceVersionLister{}

func (ResourceVersionLister) Visit(ctx context.Context, s *Session, p pattern.ResourcePattern, name coordinate.ArtifactName) error {
	versionPattern := p.ToVersionListPattern(s.Module, name)
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", realm))
	logger.DebugContext(ctx, "listing all in", slog.String("pattern", versionPattern))

	versions, err := listRevisionToken(ctx, s, versionPattern)
	if errors.Is(err, transport.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &ListingError{Pattern: p, Err: err}
	}
	s.Versions.Add(p, versions...)
	return nil
}

func isSeparator(c byte) bool {
	return c == '/' || c == '\\'
}

// revisionIsDirectory reports whether the token forms an entire path segment.
func revisionIsDirectory(versionPattern string, start int) bool {
	if start > 0 && !isSeparator(versionPattern[start-1]) {
		return false
	}
	end := start + len(pattern.RevisionToken)
	return end >= len(versionPattern) || isSeparator(versionPattern[end])
}

func listRevisionToken(ctx context.Context, s *Session, versionPattern string) ([]string, error) {
	start := strings.Index(versionPattern, pattern.RevisionToken)
	if start < 0 {
		slogcontext.FromCtx(ctx).DebugContext(ctx, "revision token not defined in pattern", slog.String("realm", realm), slog.String("pattern", versionPattern))
		return nil, nil
	}
	prefix := versionPattern[:start]
	if revisionIsDirectory(versionPattern, start) {
		return s.List(ctx, prefix)
	}

	slash := strings.LastIndexAny(prefix, "/\\")
	parent := prefix[:slash+1]
	segment := versionPattern[slash+1:]
	if i := strings.IndexAny(segment, "/\\"); i >= 0 {
		segment = segment[:i]
	}
	re, err := segmentRegexp(segment)
	if err != nil {
		return nil, err
	}
	entries, err := s.List(ctx, parent)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, entry := range entries {
		if m := re.FindStringSubmatch(entry); m != nil {
			versions = append(versions, m[1])
		}
	}
	return versions, nil
}

// segmentRegexp turns a path segment containing the revision token into an
// anchored expression capturing the revision.
func segmentRegexp(segment string) (*regexp.Regexp, error) {
	before, after, _ := strings.Cut(segment, pattern.RevisionToken)
	expr := "^" + regexp.QuoteMeta(before) + "(.+)" + quoteRevisions(after) + "$"
	return regexp.Compile(expr)
}

// quoteRevisions quotes s and turns further revision tokens into
// backreference free wildcards.
func quoteRevisions(s string) string {
	parts := strings.Split(s, pattern.RevisionToken)
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	return strings.Join(parts, ".+")
}

// MavenVersionLister lists versions from maven-metadata.xml in the module
// directory. Each metadata location is read at most once per session.
type MavenVersionLister struct{}

var _ Lister = MavenVersionLister{}

func (MavenVersionLister) Visit(ctx context.Context, s *Session, p pattern.ResourcePattern, _ coordinate.ArtifactName) error {
	dir, err := p.ToModulePath(s.Module)
	if err != nil {
		return &ListingError{Pattern: p, Err: err}
	}
	location := dir + "/" + maven.MetadataFileName
	if !s.Visit(location) {
		return nil
	}
	md, err := maven.LoadMetadata(ctx, s.Repository(), location)
	if err != nil {
		return err
	}
	s.Versions.Add(p, md.Versions...)
	return nil
}

// ChainedVersionLister tries its members in order for each pattern; the
// first member that succeeds ends the chain for that pattern.
type ChainedVersionLister struct {
	Listers []Lister
}

var _ Lister = (*ChainedVersionLister)(nil)

// NewChainedVersionLister creates a chain of listers.
func NewChainedVersionLister(listers ...Lister) *ChainedVersionLister {
	return &ChainedVersionLister{Listers: listers}
}

func (c *ChainedVersionLister) Visit(ctx context.Context, s *Session, p pattern.ResourcePattern, name coordinate.ArtifactName) error {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", realm), slog.String("pattern", p.String()))
	for i, l := range c.Listers {
		err := l.Visit(ctx, s, p, name)
		if err == nil {
			return nil
		}
		if i == len(c.Listers)-1 {
			return err
		}
		// failures of all but the last member are logged and skipped
		if errors.Is(err, transport.ErrNotFound) {
			logger.WarnContext(ctx, "version listing source not found, falling back to the next lister", slog.String("error", err.Error()))
		} else {
			logger.WarnContext(ctx, "version listing failed, falling back to the next lister; this behavior is deprecated and failures will become fatal", slog.String("error", err.Error()))
		}
	}
	return nil
}
