package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ocm.software/open-component-model/artifactresolver/coordinate"
)

func newVersions() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <group:name>",
		Short: "List the versions of a module, latest first",
		Args:  cobra.ExactArgs(1),
		Example: `  # List the versions of a library in every configured repository
  artifactresolver versions org.acme:lib`,
		RunE:              runVersions,
		DisableAutoGenTag: true,
	}
}

type listedVersion struct {
	Repository string
	Version    string
}

func runVersions(cmd *cobra.Command, args []string) (err error) {
	module, err := coordinate.ParseModuleID(args[0])
	if err != nil {
		return err
	}

	all, repos, err := repositories(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, all.Close())
	}()

	var rows []listedVersion
	for _, r := range repos {
		versions, err := r.ListModuleVersions(cmd.Context(), module)
		if err != nil {
			return fmt.Errorf("unable to list versions of %s in %s: %w", module, r.Name(), err)
		}
		for _, v := range versions {
			rows = append(rows, listedVersion{Repository: r.Name(), Version: v.Version})
		}
	}
	renderVersions(cmd.OutOrStdout(), rows)
	return nil
}
