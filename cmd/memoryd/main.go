// Command memoryd is the persistent semantic memory service's CLI: it
// serves the MCP tool surface, scans memory files into the catalog,
// manages checkpoints, and reports health.
package main

import (
	"os"

	"github.com/devalexanderdaza/memoryd/cmd/memoryd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
