package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/questline-backend/internal/app"
)

var rootCmd = &cobra.Command{
	Use:           "questline",
	Short:         "Progress and gamification backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file loaded before reading configuration")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func newApp(cmd *cobra.Command, migrate bool) (*app.App, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return app.New(app.Options{EnvFile: envFile, Migrate: migrate})
}
