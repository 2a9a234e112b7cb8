package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ocm.software/open-component-model/artifactresolver/coordinate"
)

const FlagType = "type"

func newPublish() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <notation> <file>",
		Short: "Publish a file as artifact of a module revision",
		Long: `Publish uploads a file to the location the first matching pattern of the
  repository assigns to the artifact. Exactly one repository must be selected.`,
		Args: cobra.ExactArgs(2),
		Example: `  # Publish a jar to the company repository
  artifactresolver publish org.acme:lib:1.0 build/lib.jar --repository company

  # Publish an ivy file as module descriptor
  artifactresolver publish org.acme:lib:1.0@xml ivy.xml --type ivy --repository company`,
		RunE:              runPublish,
		DisableAutoGenTag: true,
	}
	cmd.Flags().String(FlagType, "", "artifact type, defaults to the extension")
	return cmd
}

func runPublish(cmd *cobra.Command, args []string) (err error) {
	a, err := coordinate.ParseNotation(args[0])
	if err != nil {
		return err
	}
	if typ, _ := cmd.Flags().GetString(FlagType); typ != "" {
		a.Type = typ
		if typ == coordinate.TypeIvy {
			a.Name = coordinate.TypeIvy
		}
	}
	if _, err := os.Stat(args[1]); err != nil {
		return fmt.Errorf("unable to publish %s: %w", args[1], err)
	}

	all, repos, err := repositories(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, all.Close())
	}()
	if len(repos) != 1 {
		return fmt.Errorf("publishing needs exactly one repository, %d selected (use --%s)", len(repos), FlagRepository)
	}

	r := repos[0]
	if err := r.Publish(cmd.Context(), a, args[1]); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %s to %s\n", a, r.Name())
	return err
}
