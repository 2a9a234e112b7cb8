package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"ocm.software/open-component-model/artifactresolver/cache"
	"ocm.software/open-component-model/artifactresolver/cache/index"
	"ocm.software/open-component-model/artifactresolver/internal/log"
	"ocm.software/open-component-model/artifactresolver/patternmatcher"
	"ocm.software/open-component-model/artifactresolver/resolver"
	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/transport/filesystem"
	"ocm.software/open-component-model/artifactresolver/transport/remote"
)

// BuildOptions configures how resolvers are built from a configuration.
type BuildOptions struct {
	// HTTP overrides the configured timeouts, last set value wins.
	HTTP *HTTP
	// Client replaces the HTTP client of remote repositories.
	Client *http.Client
	// CacheDir overrides the configured cache directory.
	CacheDir string
}

// BuildOption is a functional option for Build.
type BuildOption func(*BuildOptions)

// WithHTTP merges timeouts over the configured ones.
func WithHTTP(h *HTTP) BuildOption {
	return func(o *BuildOptions) {
		o.HTTP = h
	}
}

// WithClient sets the HTTP client used by remote repositories.
func WithClient(client *http.Client) BuildOption {
	return func(o *BuildOptions) {
		o.Client = client
	}
}

// WithCacheDir sets the cache directory.
func WithCacheDir(dir string) BuildOption {
	return func(o *BuildOptions) {
		o.CacheDir = dir
	}
}

// Resolvers are the resolvers of a configuration in configured order,
// together with the cache they share.
type Resolvers struct {
	list  []*resolver.Resolver
	store *cache.FileStore
	index *index.Index
}

// Build creates every configured resolver. The result must be closed.
func Build(ctx context.Context, cfg *Config, opts ...BuildOption) (_ *Resolvers, err error) {
	options := &BuildOptions{}
	for _, opt := range opts {
		opt(options)
	}

	out := &Resolvers{}
	defer func() {
		if err != nil {
			err = errors.Join(err, out.Close())
		}
	}()

	dir := options.CacheDir
	if dir == "" && cfg.Cache != nil {
		dir = cfg.Cache.Dir
	}
	if dir != "" {
		if dir, err = expandHome(dir); err != nil {
			return nil, err
		}
		if out.store, err = cache.NewFileStore(dir); err != nil {
			return nil, err
		}
		if cfg.Cache.IndexEnabled() {
			if out.index, err = index.Open(index.WithDir(filepath.Join(dir, ".index"))); err != nil {
				return nil, err
			}
		}
	}

	client := options.Client
	if client == nil {
		h := MergeHTTP(DefaultHTTP(), cfg.HTTP, options.HTTP)
		client = remote.NewHTTPClient(remote.WithTimeouts(h.Timeouts()))
	}

	for _, repo := range cfg.Repositories {
		r, err := out.build(repo, client)
		if err != nil {
			return nil, fmt.Errorf("unable to build repository %q: %w", repo.Name, err)
		}
		log.Base(ctx).DebugContext(ctx, "configured repository", slog.String("name", repo.Name), slog.String("type", repo.Type))
		out.list = append(out.list, r)
	}
	return out, nil
}

func (s *Resolvers) build(repo Repository, client *http.Client) (*resolver.Resolver, error) {
	cfg, err := repo.resolverConfig()
	if err != nil {
		return nil, err
	}
	var opts []resolver.Option
	if s.store != nil {
		opts = append(opts, resolver.WithStore(s.store))
	}

	if repo.Type == TypeMavenLocal {
		path, err := expandHome(repo.Path)
		if err != nil {
			return nil, err
		}
		return resolver.NewMavenLocal(cfg, path, opts...)
	}

	tr, err := s.transport(repo, client)
	if err != nil {
		return nil, err
	}
	if repo.Type == TypeMaven {
		return resolver.NewMaven(cfg, tr, opts...)
	}
	return resolver.New(cfg, tr, opts...)
}

func (s *Resolvers) transport(repo Repository, client *http.Client) (transport.Repository, error) {
	if repo.URL != "" {
		opts := []remote.Option{remote.WithClient(client)}
		if s.index != nil {
			id, err := repo.ID()
			if err != nil {
				return nil, err
			}
			opts = append(opts, remote.WithIndex(s.index.For(id)))
		}
		return remote.New(repo.Name, repo.URL, opts...)
	}
	path, err := expandHome(repo.Path)
	if err != nil {
		return nil, err
	}
	if isArchive(path) {
		return filesystem.OpenArchive(repo.Name, path)
	}
	return filesystem.New(repo.Name, path)
}

func (r Repository) resolverConfig() (*resolver.Config, error) {
	var b *resolver.ConfigBuilder
	switch {
	case r.Type == TypeIvy:
		b = resolver.NewConfigBuilder(r.Name)
	case len(r.DescriptorPatterns) == 0 && len(r.ArtifactPatterns) == 0:
		b = resolver.NewMavenConfigBuilder(r.Name)
	default:
		// m2 repository with its own layout below the root
		b = resolver.NewConfigBuilder(r.Name).
			M2Compatible(true).
			Checksums(resolver.MavenChecksums).
			Changing(patternmatcher.Regexp, resolver.MavenChangingPattern)
	}
	for _, p := range r.DescriptorPatterns {
		b.AddDescriptorPattern(p)
	}
	for _, p := range r.ArtifactPatterns {
		b.AddArtifactPattern(p)
	}
	if r.CheckConsistency != nil {
		b.CheckConsistency(*r.CheckConsistency)
	}
	if r.AllowNoDescriptor != nil {
		b.AllowNoDescriptor(*r.AllowNoDescriptor)
	}
	if r.Checksums != nil {
		b.Checksums(*r.Checksums)
	}
	if r.Changing != nil {
		kind := patternmatcher.Exact
		if r.Changing.Matcher != "" {
			kind = patternmatcher.Kind(r.Changing.Matcher)
		}
		b.Changing(kind, r.Changing.Pattern)
	}
	if r.LatestStrategy != "" {
		b.LatestStrategy(r.LatestStrategy)
	}
	return b.Build()
}

func isArchive(path string) bool {
	for _, ext := range []string{".tar", ".tgz", ".tar.gz"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// All returns the resolvers in configured order.
func (s *Resolvers) All() []*resolver.Resolver {
	return s.list
}

// Lookup returns the resolver with the given name.
func (s *Resolvers) Lookup(name string) (*resolver.Resolver, error) {
	for _, r := range s.list {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no repository named %q configured", name)
}

// Store returns the artifact cache, nil when no cache is configured.
func (s *Resolvers) Store() *cache.FileStore {
	return s.store
}

// Close releases the resource index.
func (s *Resolvers) Close() error {
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
