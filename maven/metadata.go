// Package maven implements the Maven specific parts of resolution: the
// maven-metadata.xml document and unique snapshot versions.
package maven

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"ocm.software/open-component-model/artifactresolver/transport"
)

// MetadataFileName is the name of the metadata document in module and
// module version directories.
const MetadataFileName = "maven-metadata.xml"

type metadataDocument struct {
	XMLName    xml.Name `xml:"metadata"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Version    string   `xml:"version"`
	Versioning struct {
		Latest   string   `xml:"latest"`
		Release  string   `xml:"release"`
		Versions []string `xml:"versions>version"`
		Snapshot struct {
			Timestamp   string `xml:"timestamp"`
			BuildNumber string `xml:"buildNumber"`
		} `xml:"snapshot"`
		LastUpdated string `xml:"lastUpdated"`
	} `xml:"versioning"`
}

// Metadata is the relevant content of a maven-metadata.xml document.
type Metadata struct {
	GroupID     string
	ArtifactID  string
	Latest      string
	Release     string
	Versions    []string
	Timestamp   string
	BuildNumber string
}

// ParseMetadata decodes a maven-metadata.xml document.
func ParseMetadata(data []byte) (*Metadata, error) {
	var doc metadataDocument
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("unable to parse maven metadata: %w", err)
	}
	md := &Metadata{
		GroupID:     strings.TrimSpace(doc.GroupID),
		ArtifactID:  strings.TrimSpace(doc.ArtifactID),
		Latest:      strings.TrimSpace(doc.Versioning.Latest),
		Release:     strings.TrimSpace(doc.Versioning.Release),
		Timestamp:   strings.TrimSpace(doc.Versioning.Snapshot.Timestamp),
		BuildNumber: strings.TrimSpace(doc.Versioning.Snapshot.BuildNumber),
	}
	for _, v := range doc.Versioning.Versions {
		if v = strings.TrimSpace(v); v != "" {
			md.Versions = append(md.Versions, v)
		}
	}
	return md, nil
}

// LoadMetadata fetches and parses the document at location. A missing
// document is reported as transport.ErrNotFound.
func LoadMetadata(ctx context.Context, repo transport.Repository, location string) (_ *Metadata, err error) {
	slogcontext.FromCtx(ctx).DebugContext(ctx, "loading maven metadata", slog.String("realm", "maven"), slog.String("location", location))
	res, err := repo.Get(ctx, location, nil)
	if errors.Is(err, transport.ErrNotFound) {
		return nil, fmt.Errorf("maven meta-data not available at %s: %w", location, err)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load maven meta-data from %s: %w", location, err)
	}
	defer func() {
		err = errors.Join(err, res.Close())
	}()
	rc, err := res.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load maven meta-data from %s: %w", location, err)
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("unable to read maven meta-data from %s: %w", location, err)
	}
	return ParseMetadata(data)
}
