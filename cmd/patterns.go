package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/asimorth/competitor-lens/internal/extract"
	"github.com/asimorth/competitor-lens/internal/model"
)

var patternsJSON bool

var patternsCmd = &cobra.Command{
	Use:   "patterns [competitor]",
	Short: "Show learned keyword patterns per competitor",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		competitors, err := env.Store.ListCompetitors(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			competitors, err = filterCompetitor(competitors, args[0])
			if err != nil {
				return err
			}
		}

		var all []*extract.CompetitorPatterns
		for _, comp := range competitors {
			cp, err := extract.LearnPatterns(cmd.Context(), env.Store, comp.ID)
			if err != nil {
				return err
			}
			if len(cp.Patterns) == 0 {
				continue
			}
			all = append(all, cp)

			if !patternsJSON {
				fmt.Printf("%s\n", comp.Name)
				for _, p := range cp.Patterns {
					fmt.Printf("  %-20s samples=%-3d baseline=%.2f keywords=%s\n",
						p.FeatureName, p.SampleCount, p.Confidence, strings.Join(p.Keywords, ","))
				}
			}
		}

		if patternsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(all)
		}
		if len(all) == 0 {
			fmt.Println("no learned patterns yet, confirm some assignments first")
		}
		return nil
	},
}

func filterCompetitor(competitors []model.Competitor, name string) ([]model.Competitor, error) {
	for _, comp := range competitors {
		if strings.EqualFold(comp.Name, name) {
			return []model.Competitor{comp}, nil
		}
	}
	return nil, eris.Errorf("competitor %q not found", name)
}

func init() {
	patternsCmd.Flags().BoolVar(&patternsJSON, "json", false, "emit patterns as JSON")
	rootCmd.AddCommand(patternsCmd)
}
