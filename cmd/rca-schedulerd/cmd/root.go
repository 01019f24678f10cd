// Package cmd implements the rca-schedulerd Cobra command tree: serve and
// version, mirroring the teacher's pkg/cli/cmd layout.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rca-schedulerd",
	Short: "Per-host RCA scheduler daemon",
	Long: `rca-schedulerd loads a host configuration and graph definition,
partitions the RCA computation graph for this host's configured loci, and
drives the resulting tasklet DAG on a cron cadence.

Example:
  rca-schedulerd serve --config ./host.yaml --graph ./graph.yaml`,
}

// Execute runs the root command, exiting the process with status 1 on
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
