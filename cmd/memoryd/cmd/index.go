package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/memoryd/internal/runtime"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the memory index",
	}
	cmd.AddCommand(newIndexScanCmd())
	return cmd
}

func newIndexScanCmd() *cobra.Command {
	var specFolder string
	var force bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Walk the allow-listed roots and upsert every markdown memory found",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexScan(cmd.Context(), specFolder, force)
		},
	}
	cmd.Flags().StringVar(&specFolder, "spec-folder", "", "limit the scan to one spec folder")
	cmd.Flags().BoolVar(&force, "force", false, "re-embed every file even if its content hash is unchanged")
	return cmd
}

func runIndexScan(ctx context.Context, specFolder string, force bool) error {
	logger, cleanup, err := loadLogger()
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := runtime.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open runtime: %w", err)
	}
	defer rt.Close()

	result, err := rt.IndexScan(ctx, specFolder, force)
	if err != nil {
		return err
	}

	fmt.Printf("indexed=%d skipped=%d failed=%d\n", result.Indexed, result.Skipped, result.Failed)
	return nil
}
