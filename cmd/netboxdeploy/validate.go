package main

import (
	"context"
	"io"

	"netboxdeploy/internal/config"
	"netboxdeploy/internal/install"
	"netboxdeploy/internal/security"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [CONFIG]",
	Short: "Check a deployment config without rendering",
	Long: `Validate a deployment config and list every offending field.

Weak secret keys are reported as warnings and do not fail validation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, err := findDeploymentConfig(args)
	if err != nil {
		return err
	}
	return validateWith(cmd.Context(), cmd.OutOrStdout(), install.NewReleaseResolver(githubToken), path)
}

func validateWith(ctx context.Context, out io.Writer, resolver *install.ReleaseResolver, path string) error {
	cfg, err := loadDeployment(ctx, path, resolver)
	if err != nil {
		return reportValidation(out, err)
	}

	c := cfg.WithDefaults()
	if err := config.Validate(c); err != nil {
		return reportValidation(out, err)
	}

	for _, warning := range security.CheckSecretKey(c.SecretKey) {
		printWarn(out, "secret_key: "+warning)
	}
	for _, warning := range config.Warnings(c) {
		printWarn(out, warning)
	}
	printSuccess(out, path+" is valid")
	return nil
}
