package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var scanRoot string

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Scan a directory tree for new screenshots",
	Long: `Walks a directory recursively and registers unseen image files.

The first path segment under the root names the competitor; new
competitors are created on the fly. Each new screenshot gets analysis
and sync jobs enqueued.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := scanRoot
		if len(args) > 0 {
			root = args[0]
		}
		if root == "" {
			root = cfg.Scan.Root
		}
		if root == "" {
			return eris.New("scan: no directory given and scan.root not configured")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Scanner.ScanDirectory(cmd.Context(), root)
		if err != nil {
			return err
		}

		fmt.Printf("scanned %d files: %d new, %d already known\n",
			result.Scanned, result.Created, result.Skipped)
		if len(result.Competitors) > 0 {
			fmt.Printf("competitors touched: %s\n", strings.Join(result.Competitors, ", "))
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanRoot, "root", "", "directory to scan (default from config)")
	rootCmd.AddCommand(scanCmd)
}
