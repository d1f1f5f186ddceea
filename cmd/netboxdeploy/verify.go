package main

import (
	"context"
	"fmt"
	"io"

	"netboxdeploy/internal/config"
	"netboxdeploy/internal/install"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify ARCHIVE [CONFIG]",
	Short: "Check a downloaded release archive against download_checksum",
	Long: `Hash a NetBox release archive with download_checksum_type and compare it with
the download_checksum of the deployment config.`,
	Example: `  netboxdeploy verify /var/tmp/netbox-4.2.3.tar.gz netbox.yaml`,
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	path, err := findDeploymentConfig(args[1:])
	if err != nil {
		return err
	}
	return verifyWith(cmd.Context(), cmd.OutOrStdout(), install.NewReleaseResolver(githubToken), path, args[0])
}

func verifyWith(ctx context.Context, out io.Writer, resolver *install.ReleaseResolver, path, archive string) error {
	cfg, err := loadDeployment(ctx, path, resolver)
	if err != nil {
		return reportValidation(out, err)
	}

	c := cfg.WithDefaults()
	if err := config.Validate(c); err != nil {
		return reportValidation(out, err)
	}
	if c.DownloadChecksum == "" {
		return fmt.Errorf("%s sets no download_checksum", path)
	}

	if err := install.VerifyChecksum(archive, c.DownloadChecksumType, c.DownloadChecksum); err != nil {
		printFail(out, "Verifying "+archive)
		return err
	}
	printSuccess(out, fmt.Sprintf("Verified %s (%s)", archive, c.DownloadChecksumType))
	return nil
}
