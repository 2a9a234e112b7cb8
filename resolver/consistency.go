package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/descriptor"
	"ocm.software/open-component-model/artifactresolver/internal/log"
)

const workingRevisionPrefix = "working@"

// checkConsistency compares the requested module with the descriptor found
// at ref and reports all mismatches at once.
func (r *Resolver) checkConsistency(ctx context.Context, requested coordinate.ModuleRevisionID, md *descriptor.ModuleDescriptor, ref *ResolvedResource) error {
	var mismatches []string
	found := md.ID
	if requested.Organisation != found.Organisation {
		mismatches = append(mismatches, fmt.Sprintf("bad organisation: expected='%s' found='%s'", requested.Organisation, found.Organisation))
	}
	if requested.Name != found.Name {
		mismatches = append(mismatches, fmt.Sprintf("bad module name: expected='%s' found='%s'", requested.Name, found.Name))
	}
	if requested.Branch != "" && requested.Branch != found.Branch {
		mismatches = append(mismatches, fmt.Sprintf("bad branch name: expected='%s' found='%s'", requested.Branch, found.Branch))
	}
	if rev := ref.Revision(); rev != "" && !strings.HasPrefix(rev, workingRevisionPrefix) {
		if !r.matcher.AcceptDescriptor(requested.WithRevision(rev), md) {
			mismatches = append(mismatches, fmt.Sprintf("bad revision: expected='%s' found='%s'", rev, found.Revision))
		}
	}
	if !r.statuses.IsStatus(md.Status) {
		mismatches = append(mismatches, fmt.Sprintf("bad status: '%s'", md.Status))
	}
	for _, key := range slices.Sorted(maps.Keys(requested.Extra)) {
		want := requested.Extra[key]
		if want != "" && want != found.Extra[key] {
			mismatches = append(mismatches, fmt.Sprintf("bad %s: expected='%s' found='%s'", key, want, found.Extra[key]))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	logger := log.Base(ctx).With(slog.String("repository", r.Name()), slog.String("resource", ref.Resource.Name()))
	for _, m := range mismatches {
		logger.DebugContext(ctx, "inconsistent module descriptor", slog.String("mismatch", m))
	}
	return &ConsistencyError{Resource: ref.Resource.Name(), Mismatches: mismatches}
}
