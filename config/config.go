// Package config reads the resolver configuration file and builds the
// configured resolvers.
//
// The file is YAML (or JSON) and validated against an embedded JSON schema
// before it is decoded:
//
//	cache:
//	  dir: ~/.cache/artifactresolver
//	http:
//	  timeout: 5m
//	repositories:
//	  - name: central
//	    type: maven
//	    url: https://repo.maven.apache.org/maven2
//	  - name: local
//	    type: maven-local
//	    path: ~/.m2/repository
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/opencontainers/go-digest"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"sigs.k8s.io/yaml"
)

// Repository types.
const (
	TypeIvy        = "ivy"
	TypeMaven      = "maven"
	TypeMavenLocal = "maven-local"
)

const schemaResource = "config.schema.json"

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, doc); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	schema, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
})

// Config is the root of the configuration file.
type Config struct {
	Cache        *Cache       `json:"cache,omitempty"`
	HTTP         *HTTP        `json:"http,omitempty"`
	Repositories []Repository `json:"repositories"`
}

// Cache configures where downloaded artifacts are stored.
type Cache struct {
	Dir string `json:"dir,omitempty"`
	// Index enables the cached resource index of remote repositories.
	// Defaults to true.
	Index *bool `json:"index,omitempty"`
}

// IndexEnabled reports whether remote repositories use the resource index
// when a cache directory is available.
func (c *Cache) IndexEnabled() bool {
	return c == nil || c.Index == nil || *c.Index
}

// Repository configures one resolver. Exactly one of URL and Path is set.
type Repository struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// URL of an HTTP(S) repository.
	URL string `json:"url,omitempty"`
	// Path of a repository directory or a .tar/.tgz archive of one.
	Path string `json:"path,omitempty"`

	DescriptorPatterns []string  `json:"descriptorPatterns,omitempty"`
	ArtifactPatterns   []string  `json:"artifactPatterns,omitempty"`
	CheckConsistency   *bool     `json:"checkConsistency,omitempty"`
	AllowNoDescriptor  *bool     `json:"allowNoDescriptor,omitempty"`
	Checksums          *string   `json:"checksums,omitempty"`
	Changing           *Changing `json:"changing,omitempty"`
	LatestStrategy     string    `json:"latestStrategy,omitempty"`
}

// Changing configures how changing revisions are recognized.
type Changing struct {
	Matcher string `json:"matcher,omitempty"`
	Pattern string `json:"pattern"`
}

// ID identifies the repository configuration. Equal configurations get
// equal ids regardless of field order.
func (r Repository) ID() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal repository config: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize repository config: %w", err)
	}
	return digest.FromBytes(canonical).Encoded(), nil
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates and decodes a YAML or JSON configuration.
func Parse(data []byte) (*Config, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert yaml: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	seen := make(map[string]struct{}, len(cfg.Repositories))
	for _, r := range cfg.Repositories {
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("duplicate repository name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return &cfg, nil
}

// Validate checks a JSON document against the configuration schema.
func Validate(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
