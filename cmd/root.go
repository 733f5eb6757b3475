package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "competitor-lens",
	Short: "Competitor feature cataloging from app screenshots",
	Long:  "Scans screenshot collections, assigns them to taxonomy features via OCR, vision and learned patterns, scores data quality, and syncs files to object storage.",
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
