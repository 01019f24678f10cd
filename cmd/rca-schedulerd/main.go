// Command rca-schedulerd is the per-host RCA scheduler daemon: it loads a
// host configuration and graph definition, partitions the graph for this
// host, and drives the resulting tasklet DAG on a cron cadence.
package main

import "github.com/wrenlabs/rca-scheduler/cmd/rca-schedulerd/cmd"

func main() {
	cmd.Execute()
}
