// Package pom reads the identity and packaging of Maven POM files.
package pom

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"strings"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/transport"
)

// SnapshotSuffix marks Maven snapshot versions.
const SnapshotSuffix = "-SNAPSHOT"

type project struct {
	XMLName    xml.Name `xml:"project"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Version    string   `xml:"version"`
	Packaging  string   `xml:"packaging"`
	Parent     struct {
		GroupID string `xml:"groupId"`
		Version string `xml:"version"`
	} `xml:"parent"`
}

// Parser reads POM descriptors.
type Parser struct{}

var _ descriptor.Parser = Parser{}

func (Parser) Parse(ctx context.Context, _ coordinate.Artifact, res transport.Resource) (*descriptor.ModuleDescriptor, error) {
	data, err := descriptor.ReadContent(ctx, res)
	if err != nil {
		return nil, err
	}
	md, err := Parse(data)
	if err != nil {
		return nil, &descriptor.ParseError{Resource: res.Name(), Err: err}
	}
	md.LastModified = res.Metadata().LastModified
	md.PublicationDate = md.LastModified
	return md, nil
}

// Parse decodes POM content.
func Parse(data []byte) (*descriptor.ModuleDescriptor, error) {
	var p project
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, err
	}
	group := strings.TrimSpace(p.GroupID)
	if group == "" {
		group = strings.TrimSpace(p.Parent.GroupID)
	}
	version := strings.TrimSpace(p.Version)
	if version == "" {
		version = strings.TrimSpace(p.Parent.Version)
	}
	artifactID := strings.TrimSpace(p.ArtifactID)
	if artifactID == "" {
		return nil, errors.New("missing artifactId")
	}
	packaging := strings.TrimSpace(p.Packaging)
	if packaging == "" {
		packaging = "jar"
	}

	status := descriptor.StatusRelease
	if strings.HasSuffix(version, SnapshotSuffix) {
		status = descriptor.StatusIntegration
	}
	md := &descriptor.ModuleDescriptor{
		ID:        coordinate.NewModuleRevisionID(group, artifactID, version),
		Status:    status,
		Packaging: packaging,
	}
	conf := descriptor.Configuration{Name: descriptor.DefaultConfiguration}
	if packaging != coordinate.TypePom {
		ext := ArtifactExtension(packaging)
		conf.Artifacts = append(conf.Artifacts, coordinate.ArtifactName{Name: artifactID, Type: ext, Extension: ext})
	}
	md.Configurations = []descriptor.Configuration{conf}
	return md, nil
}

// ArtifactExtension maps a packaging to the extension of the main artifact.
func ArtifactExtension(packaging string) string {
	switch packaging {
	case "", "bundle", "maven-plugin", "ejb", "eclipse-plugin", "jar":
		return "jar"
	default:
		return packaging
	}
}

// ImpliesJar reports whether a packaging publishes a jar main artifact.
func ImpliesJar(packaging string) bool {
	return ArtifactExtension(packaging) == "jar"
}
