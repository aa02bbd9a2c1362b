package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/memoryd/internal/mcpshim"
	"github.com/devalexanderdaza/memoryd/internal/runtime"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP tool-surface server over stdio",
		Long: `serve opens the catalog, rebuilds the in-process vector/lexical indexes,
and runs the MCP JSON-RPC server over stdio until interrupted.

On shutdown (SIGINT/SIGTERM) it flushes pending access counts and closes
every owned resource before exiting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(parent context.Context) error {
	logger, cleanup, err := loadLogger()
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := runtime.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open runtime: %w", err)
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logger.Error("error closing runtime", "error", cerr)
		}
	}()

	server := mcpshim.NewServer(rt, logger)
	return server.Serve(ctx)
}
