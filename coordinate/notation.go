package coordinate

import (
	"fmt"
	"strings"
)

// Well known artifact types.
const (
	TypeJar     = "jar"
	TypeIvy     = "ivy"
	TypePom     = "pom"
	TypeSources = "sources"
	TypeJavadoc = "javadoc"
)

// ParseNotation parses a dependency notation of the form
// group:name:version[:classifier][@extension].
// The artifact name is the module name and the type equals the extension.
func ParseNotation(notation string) (Artifact, error) {
	rest, ext, hasExt := strings.Cut(notation, "@")
	if hasExt && ext == "" {
		return Artifact{}, fmt.Errorf("invalid notation %q: empty extension", notation)
	}
	if !hasExt {
		ext = TypeJar
	}
	parts := strings.Split(rest, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Artifact{}, fmt.Errorf("invalid notation %q: expected group:name:version[:classifier][@extension]", notation)
	}
	for i, p := range parts[:3] {
		if p == "" {
			return Artifact{}, fmt.Errorf("invalid notation %q: empty segment %d", notation, i+1)
		}
	}
	classifier := ""
	if len(parts) == 4 {
		classifier = parts[3]
	}
	mrid := NewModuleRevisionID(parts[0], parts[1], parts[2])
	return NewArtifact(mrid, parts[1], ext, ext, classifier), nil
}

// ParseModuleID parses group:name.
func ParseModuleID(notation string) (ModuleID, error) {
	org, name, ok := strings.Cut(notation, ":")
	if !ok || org == "" || name == "" || strings.Contains(name, ":") {
		return ModuleID{}, fmt.Errorf("invalid module %q: expected group:name", notation)
	}
	return ModuleID{Organisation: org, Name: name}, nil
}
