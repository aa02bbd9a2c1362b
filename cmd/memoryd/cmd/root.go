// Package cmd provides the memoryd CLI commands.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/memoryd/internal/logging"
	"github.com/devalexanderdaza/memoryd/internal/memconfig"
	"github.com/devalexanderdaza/memoryd/pkg/version"
)

var (
	weightsPath string
	debugMode   bool
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "memoryd",
		Short:   "Persistent semantic memory service for AI coding assistants",
		Version: version.Version,
		Long: `memoryd indexes markdown memories into a hybrid (vector + BM25) search
catalog and exposes retrieval, maintenance, and checkpoint operations over
an MCP-shaped tool surface.`,
	}
	root.SetVersionTemplate("memoryd version {{.Version}}\n")

	root.PersistentFlags().StringVar(&weightsPath, "weights", "search-weights.json", "path to the optional JSONC search-weights config")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug-level logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newCheckpointCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// loadLogger builds the shared logger per --debug using the
// logging.Setup/DebugConfig split.
func loadLogger() (*slog.Logger, func(), error) {
	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = true
	if debugMode {
		cfg = logging.DebugConfig()
	}
	return logging.Setup(cfg)
}

// loadConfig resolves memconfig.Config from the --weights flag and the
// environment.
func loadConfig() (memconfig.Config, error) {
	return memconfig.Load(weightsPath)
}
