package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/asimorth/competitor-lens/internal/assign"
)

var (
	analyzeScreenshot string
	analyzeCompetitor string
	analyzeReanalyze  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Assign features to unassigned screenshots",
	Long: `Runs the signal pipeline over screenshots: OCR text extraction,
vision classification, learned competitor patterns, and path heuristics.
Confident verdicts are committed; the rest land in the review queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if analyzeScreenshot != "" {
			res, err := env.Assigner.AssignOne(cmd.Context(), analyzeScreenshot,
				assign.Options{Reanalyze: analyzeReanalyze})
			if err != nil {
				return err
			}
			if res.NeedsReview {
				fmt.Printf("flagged for review (confidence %.2f, %s)\n", res.Confidence, res.Reasoning)
			} else {
				fmt.Printf("assigned to %q (confidence %.2f, method %s)\n",
					res.FeatureName, res.Confidence, res.Method)
			}
			return nil
		}

		var competitorID string
		if analyzeCompetitor != "" {
			competitor, err := env.Store.EnsureCompetitor(cmd.Context(), analyzeCompetitor)
			if err != nil {
				return err
			}
			competitorID = competitor.ID
		}

		result, err := env.Assigner.AssignBatch(cmd.Context(), assign.BatchOptions{
			CompetitorID: competitorID,
			Concurrency:  cfg.Jobs.AnalysisConcurrency,
			PaceEvery:    cfg.Batch.PaceEvery,
			PaceDelay:    time.Duration(cfg.Batch.PaceDelayMs) * time.Millisecond,
			OnProgress: func(done, total int) {
				if done%25 == 0 || done == total {
					fmt.Printf("  %d/%d\n", done, total)
				}
			},
		})
		if err != nil {
			return eris.Wrap(err, "batch analyze")
		}

		fmt.Printf("processed %d screenshots: %d assigned, %d need review, %d failed\n",
			result.Total, result.Assigned, result.NeedsReview, result.Failed)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeScreenshot, "screenshot", "", "analyze a single screenshot id")
	analyzeCmd.Flags().StringVar(&analyzeCompetitor, "competitor", "", "restrict the batch to one competitor name")
	analyzeCmd.Flags().BoolVar(&analyzeReanalyze, "reanalyze", false, "force fresh extraction even when an analysis exists")
	rootCmd.AddCommand(analyzeCmd)
}
