package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version, GitCommit and BuildTime are injected at build time via
// -ldflags; the zero values below only show up in a `go run` dev build.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rca-schedulerd\n")
		fmt.Printf("  Version:    %s\n", Version)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
	},
}
