package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// redact blanks a secret unless it's already empty, so `config show` never
// prints API keys pulled from the environment.
func redact(secret *string) {
	if *secret != "" {
		*secret = "***"
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (defaults + search-weights.json + environment)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			redact(&cfg.VoyageAPIKey)
			redact(&cfg.OpenAIAPIKey)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
	return cmd
}
