package main

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("malformed build version %q: %w", version, err)
	}
	fmt.Fprintf(output, "cvgen v%s\n", v)
	if v.Prerelease() != "" {
		fmt.Fprintf(output, "Pre-release: %s\n", v.Prerelease())
	}
	fmt.Fprintf(output, "Commit: %s\n", commit)
	fmt.Fprintf(output, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(output, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
