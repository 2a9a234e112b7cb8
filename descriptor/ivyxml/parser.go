// Package ivyxml parses the identity and publications of ivy.xml files.
package ivyxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/transport"
)

// PublicationLayout is the format of the publication attribute.
const PublicationLayout = "20060102150405"

type ivyModule struct {
	XMLName        xml.Name      `xml:"ivy-module"`
	Info           info          `xml:"info"`
	Configurations []conf        `xml:"configurations>conf"`
	Publications   *publications `xml:"publications"`
}

type publications struct {
	Artifacts []artifactNode `xml:"artifact"`
}

type info struct {
	Organisation string     `xml:"organisation,attr"`
	Module       string     `xml:"module,attr"`
	Branch       string     `xml:"branch,attr"`
	Revision     string     `xml:"revision,attr"`
	Status       string     `xml:"status,attr"`
	Publication  string     `xml:"publication,attr"`
	Attrs        []xml.Attr `xml:",any,attr"`
}

type conf struct {
	Name string `xml:"name,attr"`
}

type artifactNode struct {
	Name  string     `xml:"name,attr"`
	Type  string     `xml:"type,attr"`
	Ext   string     `xml:"ext,attr"`
	Conf  string     `xml:"conf,attr"`
	Attrs []xml.Attr `xml:",any,attr"`
}

// Parser reads ivy.xml descriptors.
type Parser struct{}

var _ descriptor.Parser = Parser{}

func (Parser) Parse(ctx context.Context, artifact coordinate.Artifact, res transport.Resource) (*descriptor.ModuleDescriptor, error) {
	data, err := descriptor.ReadContent(ctx, res)
	if err != nil {
		return nil, err
	}
	md, err := Parse(data)
	if err != nil {
		return nil, &descriptor.ParseError{Resource: res.Name(), Err: err}
	}
	md.LastModified = res.Metadata().LastModified
	if md.PublicationDate.IsZero() {
		md.PublicationDate = md.LastModified
	}
	return md, nil
}

// Parse decodes ivy.xml content.
func Parse(data []byte) (*descriptor.ModuleDescriptor, error) {
	var doc ivyModule
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Info.Module == "" {
		return nil, fmt.Errorf("missing info module")
	}
	md := &descriptor.ModuleDescriptor{
		ID: coordinate.ModuleRevisionID{
			ModuleID: coordinate.ModuleID{Organisation: doc.Info.Organisation, Name: doc.Info.Module},
			Branch:   doc.Info.Branch,
			Revision: doc.Info.Revision,
			Extra:    extraAttributes(doc.Info.Attrs),
		},
		Status: doc.Info.Status,
	}
	if md.Status == "" {
		md.Status = descriptor.StatusIntegration
	}
	if doc.Info.Publication != "" {
		t, err := time.Parse(PublicationLayout, doc.Info.Publication)
		if err != nil {
			return nil, fmt.Errorf("invalid publication date %q: %w", doc.Info.Publication, err)
		}
		md.PublicationDate = t
	}

	confs := make([]string, 0, len(doc.Configurations))
	for _, c := range doc.Configurations {
		confs = append(confs, c.Name)
	}
	if len(confs) == 0 {
		confs = append(confs, descriptor.DefaultConfiguration)
	}
	byConf := map[string][]coordinate.ArtifactName{}

	// no publications element means a single artifact named after the module
	artifacts := []artifactNode{{Name: doc.Info.Module, Type: coordinate.TypeJar, Ext: coordinate.TypeJar}}
	if doc.Publications != nil {
		artifacts = doc.Publications.Artifacts
	}
	for _, a := range artifacts {
		name := coordinate.ArtifactName{
			Name:       a.Name,
			Type:       a.Type,
			Extension:  a.Ext,
			Classifier: classifier(a.Attrs),
		}
		if name.Name == "" {
			name.Name = doc.Info.Module
		}
		if name.Type == "" {
			name.Type = coordinate.TypeJar
		}
		if name.Extension == "" {
			name.Extension = name.Type
		}
		targets := confs
		if a.Conf != "" && a.Conf != "*" {
			targets = splitConfs(a.Conf)
		}
		for _, c := range targets {
			byConf[c] = append(byConf[c], name)
		}
	}
	for _, c := range confs {
		md.Configurations = append(md.Configurations, descriptor.Configuration{Name: c, Artifacts: byConf[c]})
	}
	return md, nil
}

func splitConfs(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func classifier(attrs []xml.Attr) string {
	for _, a := range attrs {
		if a.Name.Local == "classifier" {
			return a.Value
		}
	}
	return ""
}

// extraAttributes collects namespaced info attributes, for example e:platform.
func extraAttributes(attrs []xml.Attr) map[string]string {
	var extra map[string]string
	for _, a := range attrs {
		if a.Name.Space == "" || a.Name.Space == "xmlns" || strings.HasPrefix(a.Name.Space, "http://www.w3.org/") {
			continue
		}
		if extra == nil {
			extra = map[string]string{}
		}
		extra[a.Name.Local] = a.Value
	}
	return extra
}
