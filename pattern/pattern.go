// Package pattern implements templated resource paths for Ivy and Maven
// repository layouts.
package pattern

import (
	"errors"
	"fmt"
	"strings"

	"ocm.software/open-component-model/artifactresolver/coordinate"
)

// ErrUnsupportedLayout is returned when a module or module version path is
// requested from a pattern that cannot derive one.
var ErrUnsupportedLayout = errors.New("unsupported operation for pattern layout")

// Layout selects the substitution rules of a pattern.
type Layout int

const (
	// LayoutIvy substitutes attributes verbatim.
	LayoutIvy Layout = iota
	// LayoutMaven maps the organisation to a directory hierarchy and can
	// derive module and module version directories.
	LayoutMaven
)

func (l Layout) String() string {
	switch l {
	case LayoutIvy:
		return "ivy"
	case LayoutMaven:
		return "maven"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Canonical Maven layout fragments.
const (
	M2PerModulePattern        = "[artifact]-[revision](-[classifier]).[ext]"
	M2PerModuleVersionPattern = "[revision]/" + M2PerModulePattern
	M2Pattern                 = "[organisation]/[module]/" + M2PerModuleVersionPattern
)

// ResourcePattern is an immutable path template.
type ResourcePattern struct {
	template string
	layout   Layout
}

// New creates a pattern for the given layout.
func New(template string, layout Layout) ResourcePattern {
	return ResourcePattern{template: template, layout: layout}
}

// NewIvy creates an Ivy layout pattern.
func NewIvy(template string) ResourcePattern {
	return New(template, LayoutIvy)
}

// NewMaven creates a Maven layout pattern.
func NewMaven(template string) ResourcePattern {
	return New(template, LayoutMaven)
}

// Template returns the raw template.
func (p ResourcePattern) Template() string {
	return p.template
}

// Layout returns the substitution rules in use.
func (p ResourcePattern) Layout() Layout {
	return p.layout
}

func (p ResourcePattern) String() string {
	return p.layout.String() + ":" + p.template
}

// IsZero reports whether p is the zero value.
func (p ResourcePattern) IsZero() bool {
	return p.template == ""
}

// ToPath substitutes all tokens for the artifact.
func (p ResourcePattern) ToPath(a coordinate.Artifact) string {
	return substitute(p.template, p.artifactAttributes(a, false))
}

// ToVersionListPattern substitutes every token except the revision. The
// revision placeholder is kept literally so that listers can locate it.
func (p ResourcePattern) ToVersionListPattern(module coordinate.ModuleID, name coordinate.ArtifactName) string {
	a := coordinate.Artifact{
		Module:       coordinate.ModuleRevisionID{ModuleID: module},
		ArtifactName: name,
	}
	return substitute(p.template, p.artifactAttributes(a, true))
}

// ToModulePath returns the directory holding all versions of a module. It is
// only supported for Maven layout patterns ending in M2Pattern.
func (p ResourcePattern) ToModulePath(module coordinate.ModuleID) (string, error) {
	prefix, err := p.truncate(len(M2PerModuleVersionPattern) + 1)
	if err != nil {
		return "", err
	}
	return substitute(prefix, p.moduleAttributes(coordinate.ModuleRevisionID{ModuleID: module})), nil
}

// ToModuleVersionPath returns the directory holding one version of a module.
// It is only supported for Maven layout patterns ending in M2Pattern.
func (p ResourcePattern) ToModuleVersionPath(module coordinate.ModuleRevisionID) (string, error) {
	prefix, err := p.truncate(len(M2PerModulePattern) + 1)
	if err != nil {
		return "", err
	}
	return substitute(prefix, p.moduleAttributes(module)), nil
}

// IsComplete reports whether every token the pattern requires outside of
// optional sections has a value for the artifact.
func (p ResourcePattern) IsComplete(a coordinate.Artifact) bool {
	resolve := p.artifactAttributes(a, false)
	for _, token := range tokensOf(stripOptional(p.template)) {
		if v, _ := resolve(token); v == "" {
			return false
		}
	}
	return true
}

// WithTimestampedRevision rewrites "-[revision]" to the literal unique
// snapshot version, leaving directory level tokens untouched.
func (p ResourcePattern) WithTimestampedRevision(version string) ResourcePattern {
	return ResourcePattern{
		template: strings.ReplaceAll(p.template, "-"+RevisionToken, "-"+version),
		layout:   p.layout,
	}
}

func (p ResourcePattern) truncate(suffix int) (string, error) {
	if p.layout != LayoutMaven || !strings.HasSuffix(p.template, M2Pattern) {
		return "", fmt.Errorf("cannot locate module for non-maven layout %q: %w", p.template, ErrUnsupportedLayout)
	}
	return p.template[:len(p.template)-suffix], nil
}

func (p ResourcePattern) organisation(org string) string {
	if p.layout == LayoutMaven {
		return strings.ReplaceAll(org, ".", "/")
	}
	return org
}

func (p ResourcePattern) moduleAttributes(m coordinate.ModuleRevisionID) resolveFunc {
	return func(token string) (string, bool) {
		switch token {
		case TokenOrganisation, TokenOrganization:
			return p.organisation(m.Organisation), true
		case TokenModule:
			return m.Name, true
		case TokenBranch:
			return m.Branch, true
		case TokenRevision:
			return m.Revision, true
		default:
			v, ok := m.Extra[token]
			return v, ok
		}
	}
}

func (p ResourcePattern) artifactAttributes(a coordinate.Artifact, keepRevision bool) resolveFunc {
	module := p.moduleAttributes(a.Module)
	return func(token string) (string, bool) {
		switch token {
		case TokenRevision:
			if keepRevision {
				return RevisionToken, true
			}
			return a.Module.Revision, true
		case TokenArtifact:
			if a.Name == "" {
				return a.Module.Name, true
			}
			return a.Name, true
		case TokenType:
			return a.Type, true
		case TokenExtension:
			return a.Extension, true
		case TokenClassifier:
			return a.Classifier, true
		default:
			return module(token)
		}
	}
}

func stripOptional(s string) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
				continue
			}
			b.WriteByte(s[i])
		default:
			if depth == 0 {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}
