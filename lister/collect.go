package lister

import (
	"context"
	"errors"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/pattern"
	"ocm.software/open-component-model/artifactresolver/transport"
)

// Collect visits every pattern in order. A pattern whose listing source is
// missing contributes nothing. A pattern failing otherwise is logged and
// contributes nothing as well; Collect only fails when every pattern failed
// that way and no version was listed.
func Collect(ctx context.Context, l Lister, s *Session, patterns []pattern.ResourcePattern, name coordinate.ArtifactName) error {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", realm), slog.String("module", s.Module.String()))
	var errs []error
	for _, p := range patterns {
		err := l.Visit(ctx, s, p, name)
		switch {
		case err == nil:
		case errors.Is(err, transport.ErrNotFound):
			logger.DebugContext(ctx, "no versions listed", slog.String("pattern", p.String()), slog.String("reason", err.Error()))
		default:
			logger.WarnContext(ctx, "failed to list versions, ignoring pattern", slog.String("pattern", p.String()), slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(patterns) && s.Versions.IsEmpty() {
		return errors.Join(errs...)
	}
	return nil
}
