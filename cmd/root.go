package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/config"
)

var cfg *config.Config

var policyPath string

var rootCmd = &cobra.Command{
	Use:   "enrich-cli",
	Short: "Concurrent contact-data enrichment with evidence gating",
	Long:  "Fans organisation lookups out to configured providers, triangulates their claims, admits updates only past an evidentiary quality gate, and keeps a reversible audit trail.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if policyPath != "" {
			if err := config.LoadPolicyFile(policyPath, cfg); err != nil {
				return fmt.Errorf("load policy: %w", err)
			}
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "YAML policy file overriding providers and gate rules")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
