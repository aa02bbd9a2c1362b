package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/memoryd/internal/runtime"
)

func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Create, list, restore, and delete memory checkpoints",
	}
	cmd.AddCommand(newCheckpointCreateCmd())
	cmd.AddCommand(newCheckpointListCmd())
	cmd.AddCommand(newCheckpointRestoreCmd())
	cmd.AddCommand(newCheckpointDeleteCmd())
	return cmd
}

func withRuntime(ctx context.Context, fn func(ctx context.Context, rt *runtime.Runtime) error) error {
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

	return fn(ctx, rt)
}

func newCheckpointCreateCmd() *cobra.Command {
	var specFolder, gitBranch string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Snapshot the current memories under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime.Runtime) error {
				cp, err := rt.CreateCheckpoint(ctx, args[0], specFolder, gitBranch, nil)
				if err != nil {
					return err
				}
				fmt.Printf("checkpoint %q created: %d memories\n", cp.Name, cp.MemoryCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&specFolder, "spec-folder", "", "scope the snapshot to one spec folder")
	cmd.Flags().StringVar(&gitBranch, "git-branch", "", "record the current git branch (channel derivation input)")
	return cmd
}

func newCheckpointListCmd() *cobra.Command {
	var specFolder string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime.Runtime) error {
				cps, err := rt.ListCheckpoints(ctx, specFolder)
				if err != nil {
					return err
				}
				for _, cp := range cps {
					fmt.Printf("%s\t%s\tmemories=%d\tembeddings=%d\n", cp.Name, cp.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), cp.MemoryCount, cp.EmbeddingCount)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&specFolder, "spec-folder", "", "limit the listing to one spec folder")
	return cmd
}

func newCheckpointRestoreCmd() *cobra.Command {
	var clearExisting, reinsertMemories bool

	cmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore a named checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime.Runtime) error {
				result, err := rt.RestoreCheckpoint(ctx, args[0], clearExisting, reinsertMemories)
				if err != nil {
					return err
				}
				fmt.Printf("inserted=%d updated=%d skipped=%d cleared=%d deprecated=%d embeddingsRestored=%d embeddingsSkipped=%d\n",
					result.Inserted, result.Updated, result.Skipped, result.Cleared, result.Deprecated, result.EmbeddingsRestored, result.EmbeddingsSkipped)
				if result.Note != "" {
					fmt.Println(result.Note)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearExisting, "clear-existing", false, "delete existing rows in scope before restoring")
	cmd.Flags().BoolVar(&reinsertMemories, "reinsert-memories", true, "reinsert memories absent from the catalog")
	return cmd
}

func newCheckpointDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a checkpoint by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime.Runtime) error {
				if err := rt.DeleteCheckpoint(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("checkpoint %q deleted\n", args[0])
				return nil
			})
		},
	}
	return cmd
}
