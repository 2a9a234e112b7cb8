package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"ocm.software/open-component-model/artifactresolver/cli/log"
	"ocm.software/open-component-model/artifactresolver/config"
	"ocm.software/open-component-model/artifactresolver/resolver"
)

const (
	FlagConfig     = "config"
	FlagRepository = "repository"
	FlagCache      = "cache"
	FlagTimeout    = "timeout"
)

// DefaultConfigPath is used when --config is not given.
var DefaultConfigPath = filepath.Join("$HOME", ".config", "artifactresolver", "config.yaml")

// Execute runs the root command until it completes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := New().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifactresolver [sub-command]",
		Short: "Resolve, list and publish artifacts of Ivy and Maven repositories",
		Long: `artifactresolver resolves modules against the repositories of its
  configuration file, downloads their artifacts into the local cache and verifies
  them against the checksums published next to them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := log.GetBaseLogger(cmd)
			if err != nil {
				return fmt.Errorf("could not retrieve logger: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(slogcontext.NewCtx(ctx, logger))
			return nil
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().String(FlagConfig, DefaultConfigPath, "path of the configuration file")
	cmd.PersistentFlags().StringSlice(FlagRepository, nil, "use only the named repositories, in the given order")
	cmd.PersistentFlags().String(FlagCache, "", "artifact cache directory, overriding the config file value")
	cmd.PersistentFlags().Duration(FlagTimeout, 0, `HTTP client timeout, overriding the config file value (e.g. "30s", "5m"). Use "0" to disable the timeout.`)
	log.RegisterLoggingFlags(cmd.PersistentFlags())

	cmd.AddCommand(newResolve())
	cmd.AddCommand(newVersions())
	cmd.AddCommand(newPublish())
	return cmd
}

// repositories builds the resolvers selected by the global flags. The
// returned Resolvers must be closed.
func repositories(cmd *cobra.Command) (*config.Resolvers, []*resolver.Resolver, error) {
	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(os.ExpandEnv(path))
	if err != nil {
		return nil, nil, err
	}

	var opts []config.BuildOption
	if dir, _ := cmd.Flags().GetString(FlagCache); dir != "" {
		opts = append(opts, config.WithCacheDir(dir))
	}
	if cmd.Flags().Changed(FlagTimeout) {
		timeout, err := cmd.Flags().GetDuration(FlagTimeout)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, config.WithHTTP(&config.HTTP{Timeout: config.NewTimeout(timeout)}))
	}

	all, err := config.Build(cmd.Context(), cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	selected, err := selectRepositories(cmd, all)
	if err != nil {
		return nil, nil, errors.Join(err, all.Close())
	}
	return all, selected, nil
}

func selectRepositories(cmd *cobra.Command, all *config.Resolvers) ([]*resolver.Resolver, error) {
	names, err := cmd.Flags().GetStringSlice(FlagRepository)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return slices.Clone(all.All()), nil
	}
	selected := make([]*resolver.Resolver, 0, len(names))
	for _, name := range names {
		r, err := all.Lookup(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, r)
	}
	return selected, nil
}
