package log

import (
	"context"
	"log/slog"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"ocm.software/open-component-model/artifactresolver/coordinate"
)

const Realm = "resolver"

// Base returns the logger carried by ctx, tagged with the resolver realm.
func Base(ctx context.Context) *slog.Logger {
	return slogcontext.FromCtx(ctx).With(slog.String("realm", Realm))
}

// Operation is a helper function to log operations with timing and error handling.
func Operation(ctx context.Context, operation string, fields ...slog.Attr) func(error) {
	start := time.Now()
	attrs := make([]any, 0, len(fields)+1)
	attrs = append(attrs, slog.String("operation", operation))
	for _, field := range fields {
		attrs = append(attrs, field)
	}
	logger := Base(ctx).With(attrs...)
	logger.Log(ctx, slog.LevelDebug, "starting operation")
	return func(err error) {
		if err != nil {
			logger.Log(ctx, slog.LevelDebug, "operation failed", slog.Duration("duration", time.Since(start)), slog.String("error", err.Error()))
		} else {
			logger.Log(ctx, slog.LevelDebug, "operation completed", slog.Duration("duration", time.Since(start)))
		}
	}
}

// ModuleAttr creates a log attribute for a module revision.
func ModuleAttr(id coordinate.ModuleRevisionID) slog.Attr {
	return slog.Group("module",
		slog.String("organisation", id.Organisation),
		slog.String("name", id.Name),
		slog.String("revision", id.Revision),
	)
}

// ArtifactAttr creates a log attribute for an artifact.
func ArtifactAttr(a coordinate.Artifact) slog.Attr {
	attrs := []any{
		slog.String("module", a.Module.String()),
		slog.String("name", a.Name),
		slog.String("type", a.Type),
		slog.String("ext", a.Extension),
	}
	if a.Classifier != "" {
		attrs = append(attrs, slog.String("classifier", a.Classifier))
	}
	return slog.Group("artifact", attrs...)
}
