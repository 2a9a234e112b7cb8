package maven

import (
	"context"
	"errors"
	"strings"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
)

// SnapshotVersionSuffix marks versions that may resolve to unique snapshots.
const SnapshotVersionSuffix = "-SNAPSHOT"

// IsSnapshot reports whether a revision is a Maven snapshot.
func IsSnapshot(revision string) bool {
	return strings.HasSuffix(revision, SnapshotVersionSuffix)
}

// TimestampedModuleSource records the unique snapshot a snapshot revision
// resolved to. It is valid for a single resolution.
type TimestampedModuleSource struct {
	// Snapshot is the requested revision, e.g. 1.0-SNAPSHOT.
	Snapshot string
	// Timestamp is the metadata timestamp and build number, e.g.
	// 20230101.120000-3.
	Timestamp string
}

// TimestampedVersion returns the unique version, e.g. 1.0-20230101.120000-3.
func (s TimestampedModuleSource) TimestampedVersion() string {
	return strings.TrimSuffix(s.Snapshot, "SNAPSHOT") + s.Timestamp
}

// Apply rewrites the patterns to address the unique snapshot files.
func (s TimestampedModuleSource) Apply(patterns []pattern.ResourcePattern) []pattern.ResourcePattern {
	out := make([]pattern.ResourcePattern, len(patterns))
	for i, p := range patterns {
		out[i] = p.WithTimestampedRevision(s.TimestampedVersion())
	}
	return out
}

// FindUniqueSnapshot reads the module version metadata of a snapshot
// revision through the pattern. ok is false when the metadata is absent or
// carries no timestamp, so the snapshot resolves like a static revision.
func FindUniqueSnapshot(ctx context.Context, repo transport.Repository, p pattern.ResourcePattern, module coordinate.ModuleRevisionID) (_ TimestampedModuleSource, ok bool, err error) {
	if !IsSnapshot(module.Revision) {
		return TimestampedModuleSource{}, false, nil
	}
	dir, err := p.ToModuleVersionPath(module)
	if err != nil {
		return TimestampedModuleSource{}, false, err
	}
	md, err := LoadMetadata(ctx, repo, dir+"/"+MetadataFileName)
	if errors.Is(err, transport.ErrNotFound) {
		return TimestampedModuleSource{}, false, nil
	}
	if err != nil {
		return TimestampedModuleSource{}, false, err
	}
	if md.Timestamp == "" {
		return TimestampedModuleSource{}, false, nil
	}
	timestamp := md.Timestamp
	if md.BuildNumber != "" {
		timestamp += "-" + md.BuildNumber
	}
	return TimestampedModuleSource{Snapshot: module.Revision, Timestamp: timestamp}, true, nil
}
