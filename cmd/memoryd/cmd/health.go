package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/memoryd/internal/runtime"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report DB path, schema version, active embedding profile, and catalog counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime.Runtime) error {
				h, err := rt.Health(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("db path:          %s\n", h.DBPath)
				fmt.Printf("schema version:   %d\n", h.SchemaVersion)
				fmt.Printf("active provider:  %s (dim=%d)\n", h.ActiveProvider, h.ActiveDimension)
				fmt.Printf("total memories:   %d\n", h.TotalMemories)
				for tier, count := range h.ByTier {
					fmt.Printf("  %-15s %d\n", tier, count)
				}
				fmt.Printf("embeddings:       success=%d pending=%d failed=%d\n", h.EmbeddingSuccess, h.EmbeddingPending, h.EmbeddingFailed)
				fmt.Printf("reranker disabled: %v\n", h.RerankerDisabled)
				return nil
			})
		},
	}
	return cmd
}
