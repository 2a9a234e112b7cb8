package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/resolver"
)

const (
	FlagConcurrency = "concurrency"
	FlagWith        = "with"
)

func newResolve() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <notation>...",
		Short: "Resolve modules and download their artifacts into the cache",
		Args:  cobra.MinimumNArgs(1),
		Example: `  # Resolve the newest 1.x release of a library
  artifactresolver resolve 'org.acme:lib:[1.0,2.0)'

  # Resolve a classifier artifact together with its sources
  artifactresolver resolve org.acme:lib:1.2:linux@zip --with sources`,
		RunE:              runResolve,
		DisableAutoGenTag: true,
	}
	cmd.Flags().Int(FlagConcurrency, 4, "number of notations resolved concurrently")
	cmd.Flags().StringSlice(FlagWith, nil, "also download optional artifacts (sources, javadoc)")
	return cmd
}

// resolution is one downloaded artifact of a resolved notation.
type resolution struct {
	Notation   string
	Module     *resolver.ResolvedModule
	Repository string
	Artifact   *resolver.DownloadedArtifact
}

func runResolve(cmd *cobra.Command, args []string) (err error) {
	limit, err := cmd.Flags().GetInt(FlagConcurrency)
	if err != nil {
		return err
	}
	if limit < 1 {
		return fmt.Errorf("--%s must be at least 1", FlagConcurrency)
	}
	optional, err := cmd.Flags().GetStringSlice(FlagWith)
	if err != nil {
		return err
	}
	for _, kind := range optional {
		if kind != coordinate.TypeSources && kind != coordinate.TypeJavadoc {
			return fmt.Errorf("unknown optional artifact kind %q, expected sources or javadoc", kind)
		}
	}

	all, repos, err := repositories(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, all.Close())
	}()

	results := make([][]resolution, len(args))
	eg, ctx := errgroup.WithContext(cmd.Context())
	eg.SetLimit(limit)
	for i, notation := range args {
		eg.Go(func() error {
			res, err := resolveNotation(ctx, repos, notation, optional)
			if err != nil {
				return fmt.Errorf("unable to resolve %s: %w", notation, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		slogcontext.FromCtx(cmd.Context()).ErrorContext(cmd.Context(), "resolution failed", slog.String("error", err.Error()))
		return err
	}

	var rows []resolution
	for _, res := range results {
		rows = append(rows, res...)
	}
	renderResolutions(cmd.OutOrStdout(), rows)
	return nil
}

// resolveNotation asks the repositories in order and downloads the
// artifacts from the first one that has the module.
func resolveNotation(ctx context.Context, repos []*resolver.Resolver, notation string, optional []string) ([]resolution, error) {
	requested, err := coordinate.ParseNotation(notation)
	if err != nil {
		return nil, err
	}
	dep := resolver.Dependency{ID: requested.Module, Artifacts: []coordinate.ArtifactName{requested.ArtifactName}}

	var (
		errs     []error
		rejected []string
	)
	for _, r := range repos {
		out := r.ResolveModule(ctx, dep)
		m, ok, err := out.Get()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			for _, rej := range out.Rejected() {
				rejected = append(rejected, r.Name()+": "+rej.String())
			}
			continue
		}
		return download(ctx, r, notation, m, requested, optional)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(rejected) > 0 {
		return nil, fmt.Errorf("module not found, rejected: %s", strings.Join(rejected, ", "))
	}
	return nil, errors.New("module not found")
}

func download(ctx context.Context, r *resolver.Resolver, notation string, m *resolver.ResolvedModule, requested coordinate.Artifact, optional []string) ([]resolution, error) {
	artifacts := []coordinate.Artifact{requested.WithRevision(m.ID.Revision)}
	for _, kind := range optional {
		found, err := r.ResolveOptionalArtifacts(ctx, m.ID, kind)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, found...)
	}

	res := make([]resolution, 0, len(artifacts))
	for _, a := range artifacts {
		d, ok, err := r.ResolveArtifact(ctx, a).Get()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("artifact %s not found in %s", a, r.Name())
		}
		res = append(res, resolution{Notation: notation, Module: m, Repository: r.Name(), Artifact: d})
	}
	return res, nil
}
