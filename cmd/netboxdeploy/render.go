package main

import (
	"context"
	"fmt"
	"io"

	"netboxdeploy/internal/artifact"
	"netboxdeploy/internal/install"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// renderOptions holds the inputs of one render run
type renderOptions struct {
	ConfigPath   string
	Deployment   string
	Root         string
	DryRun       bool
	NoHistory    bool
	Provision    bool
	HistoryDB    string
	TemplateDirs []string
}

var renderOpts renderOptions

var renderCmd = &cobra.Command{
	Use:   "render [CONFIG]",
	Short: "Render and write deployment artifacts",
	Long: `Validate a deployment config and write every artifact below --root.

Files are replaced atomically with their own modes. Nothing is written when the
config is invalid. Every render is recorded in the history database, after
the files are written, unless --no-history or --dry-run is given.`,
	Example: `  netboxdeploy render netbox.yaml --root /
  netboxdeploy render netbox.yaml --dry-run --provision`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderOpts.Root, "root", "/", "Directory artifacts are written below")
	renderCmd.Flags().StringVar(&renderOpts.Deployment, "name", "", "Deployment name (default: config file name)")
	renderCmd.Flags().BoolVar(&renderOpts.DryRun, "dry-run", false, "List artifacts without writing them")
	renderCmd.Flags().BoolVar(&renderOpts.NoHistory, "no-history", false, "Do not record the render")
	renderCmd.Flags().BoolVar(&renderOpts.Provision, "provision", false, "Include the database and install scripts")
}

func runRender(cmd *cobra.Command, args []string) error {
	path, err := findDeploymentConfig(args)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts := renderOpts
	opts.ConfigPath = path
	opts.HistoryDB = historyDB
	opts.TemplateDirs = templateDirs()

	return renderWith(cmd.Context(), cmd.OutOrStdout(), logger, install.NewReleaseResolver(githubToken), opts)
}

func renderWith(ctx context.Context, out io.Writer, logger *zap.Logger, resolver *install.ReleaseResolver, opts renderOptions) error {
	name, err := deploymentName(opts.ConfigPath, opts.Deployment)
	if err != nil {
		return err
	}

	cfg, err := loadDeployment(ctx, opts.ConfigPath, resolver)
	var set artifact.Set
	if err == nil {
		set, err = renderSet(newRenderer(logger, opts.TemplateDirs...), cfg, opts.Provision)
	}

	if err != nil {
		if !opts.NoHistory {
			recordRender(ctx, logger, opts.HistoryDB, name, nil, err)
		}
		return reportValidation(out, err)
	}

	if opts.DryRun {
		for _, a := range set {
			fmt.Fprintf(out, "%-20s %04o  %s\n", a.Name, a.Mode.Perm(), a.Path)
		}
		fmt.Fprintf(out, "digest %s\n", set.Digest())
		return nil
	}

	written, err := artifact.Write(opts.Root, set)
	if !opts.NoHistory {
		recordRender(ctx, logger, opts.HistoryDB, name, set, err)
	}
	for _, path := range written {
		printSuccess(out, "Wrote "+path)
	}
	if err != nil {
		printFail(out, "Writing artifacts")
		return err
	}

	logger.Info("render completed",
		zap.String("deployment", name),
		zap.String("root", opts.Root),
		zap.Int("artifacts", len(set)),
		zap.String("digest", set.Digest()))

	return nil
}
