package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "epiextract",
	Short: "LLM extraction pipeline for epidemiological parameters",
	Long:  "Extracts structured epidemiological parameter values from PDF publications via a two-stage LLM protocol, with retrieval-augmented and prompt-refinement variants scored against ground truth.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

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
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
