package main

import (
	"fmt"
	"io"

	"netboxdeploy/internal/security"

	"github.com/spf13/cobra"
)

var secretCheck string

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a NetBox secret key",
	Long: `Print a random secret key suitable for secret_key.

With --check, report the weaknesses of an existing key instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("check") {
			return checkSecret(cmd.OutOrStdout(), secretCheck)
		}
		key, err := security.GenerateSecretKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	secretCmd.Flags().StringVar(&secretCheck, "check", "", "Secret key to check")
}

func checkSecret(out io.Writer, key string) error {
	warnings := security.CheckSecretKey(key)
	if len(warnings) == 0 {
		printSuccess(out, "Secret key looks strong")
		return nil
	}
	for _, w := range warnings {
		printWarn(out, w)
	}
	return fmt.Errorf("secret key is weak")
}
