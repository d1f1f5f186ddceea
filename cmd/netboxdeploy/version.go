package main

import (
	"fmt"
	"runtime"

	"netboxdeploy/internal/config"

	"github.com/spf13/cobra"
)

var (
	// These will be set during build with -ldflags
	gitCommit = "unknown"
	buildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version, build information, and runtime details for netboxdeploy.`,
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "netboxdeploy version %s\n", version)
	fmt.Fprintf(out, "  Git commit:      %s\n", gitCommit)
	fmt.Fprintf(out, "  Build date:      %s\n", buildDate)
	fmt.Fprintf(out, "  Default NetBox:  %s\n", config.DefaultVersion)
	fmt.Fprintf(out, "  Go version:      %s\n", runtime.Version())
	fmt.Fprintf(out, "  OS/Arch:         %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
