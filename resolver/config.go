package resolver

import (
	"errors"
	"fmt"
	"slices"

	"ocm.software/open-component-model/artifactresolver/checksum"
	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/maven"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/patternmatcher"
	"ocm.software/open-component-model/artifactresolver/version"
)

// Config is the validated, immutable configuration of a Resolver.
type Config struct {
	name               string
	layout             pattern.Layout
	descriptorPatterns []pattern.ResourcePattern
	artifactPatterns   []pattern.ResourcePattern
	checkConsistency   bool
	allowNoDescriptor  bool
	checksums          []checksum.Algorithm
	changing           patternmatcher.Matcher
	strategy           version.Strategy
}

func (c *Config) Name() string { return c.name }

// M2Compatible reports whether the patterns use the Maven layout.
func (c *Config) M2Compatible() bool { return c.layout == pattern.LayoutMaven }

func (c *Config) DescriptorPatterns() []pattern.ResourcePattern {
	return slices.Clone(c.descriptorPatterns)
}

func (c *Config) ArtifactPatterns() []pattern.ResourcePattern {
	return slices.Clone(c.artifactPatterns)
}

func (c *Config) CheckConsistency() bool { return c.checkConsistency }

// AllowNoDescriptor reports whether modules without descriptor resolve
// from their artifacts.
func (c *Config) AllowNoDescriptor() bool { return c.allowNoDescriptor }

func (c *Config) Checksums() []checksum.Algorithm { return slices.Clone(c.checksums) }

// ChangingMatcher returns the matcher classifying changing revisions, or
// nil when no revision is changing.
func (c *Config) ChangingMatcher() patternmatcher.Matcher { return c.changing }

func (c *Config) LatestStrategy() version.Strategy { return c.strategy }

// IsChanging reports whether content of the revision may be republished.
func (c *Config) IsChanging(revision string) bool {
	return c.changing != nil && c.changing.Matches(revision)
}

// DescriptorArtifact is the descriptor artifact of a module revision: the
// ivy file or the POM, depending on the layout.
func (c *Config) DescriptorArtifact(id coordinate.ModuleRevisionID) coordinate.Artifact {
	if c.M2Compatible() {
		return coordinate.NewArtifact(id, id.Name, coordinate.TypePom, "pom", "")
	}
	return coordinate.NewArtifact(id, "ivy", coordinate.TypeIvy, "xml", "")
}

// ConfigBuilder collects resolver settings. Build validates them at once.
type ConfigBuilder struct {
	name               string
	m2compatible       bool
	descriptorPatterns []string
	artifactPatterns   []string
	checkConsistency   bool
	allowNoDescriptor  bool
	checksums          string
	changingKind       patternmatcher.Kind
	changingPattern    string
	strategy           string
}

// NewConfigBuilder starts a configuration with consistency checks enabled,
// artifacts without descriptor allowed and the latest-revision strategy.
func NewConfigBuilder(name string) *ConfigBuilder {
	return &ConfigBuilder{
		name:              name,
		checkConsistency:  true,
		allowNoDescriptor: true,
		changingKind:      patternmatcher.Exact,
		strategy:          version.StrategyLatestRevision,
	}
}

// Settings of M2 repositories.
const (
	MavenChecksums       = "sha1,md5"
	MavenChangingPattern = ".*" + maven.SnapshotVersionSuffix
)

// NewMavenConfigBuilder starts a configuration for an M2 repository rooted
// at the repository root: POM descriptors, sha1 and md5 checksums and
// snapshot revisions marked changing.
func NewMavenConfigBuilder(name string) *ConfigBuilder {
	return NewConfigBuilder(name).
		M2Compatible(true).
		AddDescriptorPattern(pattern.M2Pattern).
		AddArtifactPattern(pattern.M2Pattern).
		Checksums(MavenChecksums).
		Changing(patternmatcher.Regexp, MavenChangingPattern)
}

func (b *ConfigBuilder) M2Compatible(v bool) *ConfigBuilder {
	b.m2compatible = v
	return b
}

// AddDescriptorPattern appends a pattern locating module descriptors.
func (b *ConfigBuilder) AddDescriptorPattern(template string) *ConfigBuilder {
	b.descriptorPatterns = append(b.descriptorPatterns, template)
	return b
}

// AddArtifactPattern appends a pattern locating artifacts.
func (b *ConfigBuilder) AddArtifactPattern(template string) *ConfigBuilder {
	b.artifactPatterns = append(b.artifactPatterns, template)
	return b
}

func (b *ConfigBuilder) CheckConsistency(v bool) *ConfigBuilder {
	b.checkConsistency = v
	return b
}

func (b *ConfigBuilder) AllowNoDescriptor(v bool) *ConfigBuilder {
	b.allowNoDescriptor = v
	return b
}

// Checksums sets the comma separated algorithms verified after downloads.
func (b *ConfigBuilder) Checksums(csv string) *ConfigBuilder {
	b.checksums = csv
	return b
}

// Changing sets how changing revisions are recognized. An empty pattern
// disables the classification.
func (b *ConfigBuilder) Changing(kind patternmatcher.Kind, expr string) *ConfigBuilder {
	b.changingKind = kind
	b.changingPattern = expr
	return b
}

// LatestStrategy sets the strategy ordering dynamic candidates by name.
func (b *ConfigBuilder) LatestStrategy(name string) *ConfigBuilder {
	b.strategy = name
	return b
}

// Build validates the settings.
func (b *ConfigBuilder) Build() (*Config, error) {
	var errs []error
	if b.name == "" {
		errs = append(errs, errors.New("resolver name is required"))
	}
	if len(b.descriptorPatterns) == 0 && len(b.artifactPatterns) == 0 {
		errs = append(errs, errors.New("at least one descriptor or artifact pattern is required"))
	}
	algs, err := checksum.ParseAlgorithms(b.checksums)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid checksums: %w", err))
	}
	var changing patternmatcher.Matcher
	if b.changingPattern != "" {
		if changing, err = patternmatcher.New(b.changingKind, b.changingPattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid changing pattern: %w", err))
		}
	}
	strategy, err := version.LookupStrategy(b.strategy)
	if err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration for resolver %q: %w", b.name, err)
	}

	layout := pattern.LayoutIvy
	if b.m2compatible {
		layout = pattern.LayoutMaven
	}
	cfg := &Config{
		name:              b.name,
		layout:            layout,
		checkConsistency:  b.checkConsistency,
		allowNoDescriptor: b.allowNoDescriptor,
		checksums:         algs,
		changing:          changing,
		strategy:          strategy,
	}
	for _, t := range b.descriptorPatterns {
		cfg.descriptorPatterns = append(cfg.descriptorPatterns, pattern.New(t, layout))
	}
	for _, t := range b.artifactPatterns {
		cfg.artifactPatterns = append(cfg.artifactPatterns, pattern.New(t, layout))
	}
	return cfg, nil
}
