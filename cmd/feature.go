package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var featureCmd = &cobra.Command{
	Use:   "feature",
	Short: "Manage the feature taxonomy",
}

var featureCategory string

var featureAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a feature to the taxonomy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := env.Store.EnsureFeature(cmd.Context(), args[0], featureCategory)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", f.ID, f.Name)
		return nil
	},
}

var featureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List taxonomy features",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		features, err := env.Store.ListFeatures(cmd.Context())
		if err != nil {
			return err
		}
		for _, f := range features {
			fmt.Printf("%s  %-30s %s\n", f.ID, f.Name, f.Category)
		}
		return nil
	},
}

func init() {
	featureAddCmd.Flags().StringVar(&featureCategory, "category", "", "feature category")
	featureCmd.AddCommand(featureAddCmd, featureListCmd)
	rootCmd.AddCommand(featureCmd)
}
