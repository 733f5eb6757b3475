package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/asimorth/competitor-lens/internal/quality"
)

var qualityJSON bool

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Score corpus data quality",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Validator.Summary(cmd.Context())
		if err != nil {
			return err
		}

		if qualityJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		s := summary.Score
		fmt.Printf("overall %d (%s)  screenshots %d  assignments %d  metadata %d\n",
			s.Overall, s.Grade, s.Screenshots, s.Assignments, s.Metadata)
		fmt.Printf("corpus: %d screenshots, %d assigned, %d orphans, %d missing files\n",
			summary.Screenshots.Total, summary.Screenshots.ValidAssignments,
			summary.Screenshots.Orphans, summary.Screenshots.MissingFiles)

		for _, issue := range quality.Issues(summary) {
			fmt.Printf("[%s] %s: %s\n", issue.Severity, issue.Category, issue.Message)
		}
		return nil
	},
}

func init() {
	qualityCmd.Flags().BoolVar(&qualityJSON, "json", false, "emit the full summary as JSON")
	rootCmd.AddCommand(qualityCmd)
}
