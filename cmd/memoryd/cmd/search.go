package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/memoryd/internal/runtime"
)

func newSearchCmd() *cobra.Command {
	var (
		limit                 int
		specFolder             string
		includeConstitutional bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a local debug query against the hybrid search pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime.Runtime) error {
				result, err := rt.Search(ctx, runtime.SearchRequest{
					Query:                 query,
					Limit:                 limit,
					SpecFolder:            specFolder,
					IncludeConstitutional: includeConstitutional,
				})
				if err != nil {
					return err
				}
				fmt.Printf("intent=%s confidence=%.2f truncated=%v\n", result.Intent, result.Confidence, result.Truncated)
				for i, r := range result.Results {
					marker := ""
					if r.IsConstitutional {
						marker = " [constitutional]"
					}
					fmt.Printf("%2d. %-40s sim=%.1f eff=%.3f%s\n", i+1, r.Memory.Title, r.Similarity, r.EffImportance, marker)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVar(&specFolder, "spec-folder", "", "scope the search to one spec folder")
	cmd.Flags().BoolVar(&includeConstitutional, "include-constitutional", true, "prepend the constitutional-memory prelude")
	return cmd
}
