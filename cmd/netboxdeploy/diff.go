package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"netboxdeploy/internal/artifact"
	"netboxdeploy/internal/install"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errChanged signals --exit-code that rendering would change files
var errChanged = errors.New("rendered artifacts differ from files on disk")

var (
	diffRoot      string
	diffExitCode  bool
	diffProvision bool
)

var diffCmd = &cobra.Command{
	Use:   "diff [CONFIG]",
	Short: "Show how rendering would change files on disk",
	Long: `Render a deployment config in memory and print a unified diff against the
files currently below --root. Nothing is written.`,
	Example: `  netboxdeploy diff netbox.yaml
  netboxdeploy diff netbox.yaml --root /mnt/host --exit-code`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffRoot, "root", "/", "Directory the artifacts are compared below")
	diffCmd.Flags().BoolVar(&diffExitCode, "exit-code", false, "Fail when any artifact would change")
	diffCmd.Flags().BoolVar(&diffProvision, "provision", false, "Include the database and install scripts")
}

func runDiff(cmd *cobra.Command, args []string) error {
	path, err := findDeploymentConfig(args)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return diffWith(cmd.Context(), cmd.OutOrStdout(), logger, install.NewReleaseResolver(githubToken), path, diffRoot, diffProvision, diffExitCode)
}

func diffWith(ctx context.Context, out io.Writer, logger *zap.Logger, resolver *install.ReleaseResolver, path, root string, provision, exitCode bool) error {
	cfg, err := loadDeployment(ctx, path, resolver)
	if err != nil {
		return reportValidation(out, err)
	}

	set, err := renderSet(newRenderer(logger, templateDirs()...), cfg, provision)
	if err != nil {
		return reportValidation(out, err)
	}

	diff, err := artifact.Diff(root, set)
	if err != nil {
		return err
	}
	if diff == "" {
		printSuccess(out, "No changes")
		return nil
	}

	fmt.Fprint(out, diff)
	if exitCode {
		return errChanged
	}
	return nil
}
