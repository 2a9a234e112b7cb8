// Package coordinate defines the identity of modules and artifacts hosted in
// Ivy and Maven style repositories.
package coordinate

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ModuleID identifies a module independent of its revision.
type ModuleID struct {
	Organisation string `json:"organisation"`
	Name         string `json:"name"`
}

func (m ModuleID) String() string {
	return m.Organisation + ":" + m.Name
}

// ModuleRevisionID identifies one revision of a module. The revision may be a
// dynamic token such as a range or "latest.release".
type ModuleRevisionID struct {
	ModuleID
	Branch   string            `json:"branch,omitempty"`
	Revision string            `json:"revision"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// NewModuleRevisionID creates a revision id without branch or extra attributes.
func NewModuleRevisionID(organisation, name, revision string) ModuleRevisionID {
	return ModuleRevisionID{
		ModuleID: ModuleID{Organisation: organisation, Name: name},
		Revision: revision,
	}
}

// WithRevision returns a copy of the id carrying another revision.
func (m ModuleRevisionID) WithRevision(revision string) ModuleRevisionID {
	c := m
	c.Revision = revision
	c.Extra = maps.Clone(m.Extra)
	return c
}

// Equal compares all identity attributes.
func (m ModuleRevisionID) Equal(o ModuleRevisionID) bool {
	return m.ModuleID == o.ModuleID &&
		m.Branch == o.Branch &&
		m.Revision == o.Revision &&
		maps.Equal(m.Extra, o.Extra)
}

func (m ModuleRevisionID) String() string {
	var b strings.Builder
	b.WriteString(m.Organisation)
	b.WriteByte(':')
	b.WriteString(m.Name)
	if m.Branch != "" {
		b.WriteByte('#')
		b.WriteString(m.Branch)
	}
	b.WriteByte(':')
	b.WriteString(m.Revision)
	if len(m.Extra) > 0 {
		for _, k := range slices.Sorted(maps.Keys(m.Extra)) {
			fmt.Fprintf(&b, ";%s=%s", k, m.Extra[k])
		}
	}
	return b.String()
}

// ArtifactName names a single file of a module revision.
type ArtifactName struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Extension  string `json:"extension"`
	Classifier string `json:"classifier,omitempty"`
}

// Artifact is a file belonging to a module revision. Two artifacts are the
// same when all attributes are equal.
type Artifact struct {
	Module ModuleRevisionID `json:"module"`
	ArtifactName
}

// NewArtifact creates an artifact for the given module.
func NewArtifact(module ModuleRevisionID, name, typ, ext, classifier string) Artifact {
	return Artifact{
		Module: module,
		ArtifactName: ArtifactName{
			Name:       name,
			Type:       typ,
			Extension:  ext,
			Classifier: classifier,
		},
	}
}

// WithRevision returns a copy of the artifact whose module carries the revision.
func (a Artifact) WithRevision(revision string) Artifact {
	c := a
	c.Module = a.Module.WithRevision(revision)
	return c
}

// Equal compares all identity attributes.
func (a Artifact) Equal(o Artifact) bool {
	return a.Module.Equal(o.Module) && a.ArtifactName == o.ArtifactName
}

// Key returns a string identity usable as a map key.
func (a Artifact) Key() string {
	return fmt.Sprintf("%s!%s(%s).%s|%s", a.Module, a.Name, a.Type, a.Extension, a.Classifier)
}

func (a Artifact) String() string {
	s := a.Module.String() + "!" + a.Name
	if a.Classifier != "" {
		s += "-" + a.Classifier
	}
	return s + "." + a.Extension + "(" + a.Type + ")"
}
