package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/asimorth/competitor-lens/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror local screenshots into object storage",
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Detect changes and upload pending files",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		changes, err := env.Syncer.DetectChanges(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("changes: %d new, %d modified, %d deleted\n",
			changes.Created, changes.Updated, changes.Deleted)

		report, err := env.Syncer.SyncPending(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("uploaded %d, failed %d in %s\n",
			report.Uploaded, report.Failed, report.Duration.Round(time.Millisecond))
		return nil
	},
}

var syncRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry failed uploads still under the retry cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Syncer.RetryFailed(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("retried: %d uploaded, %d failed\n", report.Uploaded, report.Failed)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync ledger totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Syncer.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("total %d: %d synced, %d pending, %d failed (%.1f%% success)\n",
			stats.Total, stats.Synced, stats.Pending, stats.Failed, stats.SuccessRate)
		if !stats.Healthy() {
			fmt.Println("warning: failure rate above 5%")
		}
		return nil
	},
}

var syncPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List files awaiting upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		pending, err := env.Syncer.Pending(cmd.Context())
		if err != nil {
			return err
		}
		for _, st := range pending {
			fmt.Printf("%s  %s\n", st.ScreenshotID, st.LocalPath)
		}
		fmt.Printf("%d pending\n", len(pending))
		return nil
	},
}

var syncHistoryLimit int

var syncHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently synced files",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		items, err := env.Syncer.History(cmd.Context(), syncHistoryLimit)
		if err != nil {
			return err
		}
		for _, item := range items {
			when := ""
			if item.LastSyncedAt != nil {
				when = item.LastSyncedAt.Format(time.RFC3339)
			}
			fmt.Printf("%s  %s/%s  %s\n", when, item.CompetitorName, item.FeatureName, item.ServerPath)
		}
		return nil
	},
}

var syncResolveCmd = &cobra.Command{
	Use:   "resolve <screenshot-id> <keep-local|keep-server|merge>",
	Short: "Resolve a sync conflict",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Syncer.ResolveConflict(cmd.Context(), args[0], syncer.Resolution(args[1])); err != nil {
			return err
		}
		fmt.Printf("resolved %s with %s\n", args[0], args[1])
		return nil
	},
}

var syncPruneDays int

var syncPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove settled ledger rows past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Syncer.Prune(cmd.Context(), time.Duration(syncPruneDays)*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d ledger rows\n", n)
		return nil
	},
}

func init() {
	syncHistoryCmd.Flags().IntVar(&syncHistoryLimit, "limit", 50, "maximum rows to show")
	syncPruneCmd.Flags().IntVar(&syncPruneDays, "days", 30, "retention window in days")
	syncCmd.AddCommand(syncRunCmd, syncRetryCmd, syncStatusCmd, syncPendingCmd, syncHistoryCmd, syncResolveCmd, syncPruneCmd)
	rootCmd.AddCommand(syncCmd)
}
