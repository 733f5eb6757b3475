package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the manual review queue",
}

var (
	reviewLimit  int
	reviewOffset int
)

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List screenshots flagged for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		items, err := env.Store.ListReviewQueue(cmd.Context(), reviewLimit, reviewOffset)
		if err != nil {
			return err
		}
		for _, item := range items {
			guess := item.FeatureName
			if guess == "" {
				guess = "(no guess)"
			}
			fmt.Printf("%s  %.2f  %-20s %s/%s\n",
				item.ID, item.AssignmentConfidence, guess, item.CompetitorName, item.FileName)
		}
		fmt.Printf("%d in queue\n", len(items))
		return nil
	},
}

var reviewConfirmCmd = &cobra.Command{
	Use:   "confirm <screenshot-id> <feature-id>",
	Short: "Confirm a screenshot's feature assignment",
	Long: `Records a reviewer's verdict: the assignment is committed at full
confidence, leaves the review queue, and feeds future pattern learning
for that competitor.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Assigner.Committer().Confirm(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("confirmed")
		return nil
	},
}

var reviewStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show assignment coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Store.AssignmentStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("screenshots: %d total, %d assigned (%d%%), %d unassigned\n",
			stats.Total, stats.Assigned, stats.AssignmentRate, stats.Unassigned)
		fmt.Printf("review queue: %d  high confidence: %d  low confidence: %d\n",
			stats.NeedsReview, stats.HighConfidence, stats.LowConfidence)
		return nil
	},
}

func init() {
	reviewListCmd.Flags().IntVar(&reviewLimit, "limit", 50, "maximum rows to show")
	reviewListCmd.Flags().IntVar(&reviewOffset, "offset", 0, "rows to skip")
	reviewCmd.AddCommand(reviewListCmd, reviewConfirmCmd, reviewStatsCmd)
	rootCmd.AddCommand(reviewCmd)
}
