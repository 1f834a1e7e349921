package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/questline-backend/internal/modules/content"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load courses, quizzes and achievements from a YAML catalog",
	Long: "Upserts the catalog into the database. Without --file the catalog comes from\n" +
		"CONTENT_CATALOG_YAML or the built-in default catalog.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		cat, err := content.LoadCatalog(path)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Services.Content.Seed(cmd.Context(), cat)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d courses, %d quizzes, %d achievements\n", res.Courses, res.Quizzes, res.Achievements)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("file", "", "Catalog YAML file")
}
