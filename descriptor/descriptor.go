// Package descriptor models parsed module descriptors. The resolution engine
// treats a descriptor as an opaque value that names a revision, a status and
// the artifacts of its configurations.
package descriptor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/transport"
)

// DefaultConfiguration is the configuration of synthesized descriptors.
const DefaultConfiguration = "default"

// ErrParse marks descriptor content that could not be parsed.
var ErrParse = errors.New("unable to parse module descriptor")

// ParseError wraps a failure to parse the descriptor at a resource.
type ParseError struct {
	Resource string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse module descriptor %s: %v", e.Resource, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Configuration is a named group of published artifacts.
type Configuration struct {
	Name      string
	Artifacts []coordinate.ArtifactName
}

// ModuleDescriptor is the parsed metadata of a module revision.
type ModuleDescriptor struct {
	ID              coordinate.ModuleRevisionID
	Status          string
	PublicationDate time.Time
	// LastModified of the resource the descriptor was read from.
	LastModified   time.Time
	Configurations []Configuration
	// Packaging is the Maven packaging, empty for Ivy descriptors.
	Packaging string
	// Default marks descriptors synthesized for modules without metadata.
	Default bool
}

// NewDefault synthesizes a descriptor for a module published without
// metadata. It carries status integration and the given artifact.
func NewDefault(id coordinate.ModuleRevisionID, artifact coordinate.ArtifactName, lastModified time.Time) *ModuleDescriptor {
	return &ModuleDescriptor{
		ID:              id,
		Status:          StatusIntegration,
		PublicationDate: lastModified,
		LastModified:    lastModified,
		Configurations: []Configuration{{
			Name:      DefaultConfiguration,
			Artifacts: []coordinate.ArtifactName{artifact},
		}},
		Default: true,
	}
}

// Configuration returns the named configuration.
func (md *ModuleDescriptor) Configuration(name string) (Configuration, bool) {
	for _, c := range md.Configurations {
		if c.Name == name {
			return c, true
		}
	}
	return Configuration{}, false
}

// Artifacts returns all artifacts of all configurations, each once.
func (md *ModuleDescriptor) Artifacts() []coordinate.Artifact {
	var out []coordinate.Artifact
	seen := map[coordinate.ArtifactName]struct{}{}
	for _, c := range md.Configurations {
		for _, a := range c.Artifacts {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, coordinate.Artifact{Module: md.ID, ArtifactName: a})
		}
	}
	return out
}

// Parser reads a descriptor from a resource.
type Parser interface {
	Parse(ctx context.Context, artifact coordinate.Artifact, res transport.Resource) (*ModuleDescriptor, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, artifact coordinate.Artifact, res transport.Resource) (*ModuleDescriptor, error)

func (f ParserFunc) Parse(ctx context.Context, artifact coordinate.Artifact, res transport.Resource) (*ModuleDescriptor, error) {
	return f(ctx, artifact, res)
}

// DefaultParser synthesizes a default descriptor from an artifact resource.
// It is used when artifacts are located through artifact patterns.
var DefaultParser Parser = ParserFunc(func(_ context.Context, artifact coordinate.Artifact, res transport.Resource) (*ModuleDescriptor, error) {
	return NewDefault(artifact.Module, artifact.ArtifactName, res.Metadata().LastModified), nil
})
