// Command farmeshctl is the operator CLI for the edge-processing engine:
// loading a graph, running a canned algorithm over it, and benchmarking
// its cache/partition behavior, following the root-command-plus-
// subcommands shape of the wider retrieval pack's cobra CLIs.
package main

import (
	"fmt"
	"os"

	"github.com/gilchrisn/farmesh/cmd/farmeshctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
