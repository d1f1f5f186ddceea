package main

import (
	"context"
	"fmt"
	"io"

	"netboxdeploy/internal/config"
	"netboxdeploy/internal/database"
	"netboxdeploy/internal/install"

	"github.com/spf13/cobra"
)

var planSQL bool

var planCmd = &cobra.Command{
	Use:   "plan [CONFIG]",
	Short: "Print the release install script",
	Long: `Print the shell script that downloads, unpacks and activates the configured
NetBox release. With --sql the database provisioning statements are printed
instead. Nothing is executed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planSQL, "sql", false, "Print the database provisioning SQL")
}

func runPlan(cmd *cobra.Command, args []string) error {
	path, err := findDeploymentConfig(args)
	if err != nil {
		return err
	}
	return planWith(cmd.Context(), cmd.OutOrStdout(), install.NewReleaseResolver(githubToken), path, planSQL)
}

func planWith(ctx context.Context, out io.Writer, resolver *install.ReleaseResolver, path string, sql bool) error {
	cfg, err := loadDeployment(ctx, path, resolver)
	if err != nil {
		return reportValidation(out, err)
	}

	c := cfg.WithDefaults()
	if err := config.Validate(c); err != nil {
		return reportValidation(out, err)
	}

	if sql {
		fmt.Fprint(out, database.NewPlan(c).SQL())
		return nil
	}
	fmt.Fprint(out, install.NewPlan(c).Script())
	return nil
}
