package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [user-id]",
	Short: "Recompute user XP and level from the XP ledger",
	Long:  "With a user id only that user is checked; otherwise every user is, in batches.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("user id: %w", err)
			}
			res, err := a.Services.Progress.ReconcileUser(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "user %s: stored=%d ledger=%d drift=%d level=%d repaired=%v\n",
				res.UserID, res.StoredXP, res.LedgerXP, res.Drift, res.Level, res.Repaired)
			return nil
		}

		batch, _ := cmd.Flags().GetInt("batch-size")
		sum, err := a.Services.Progress.ReconcileAll(cmd.Context(), batch)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "checked %d users: repaired=%d drift=%d failed=%d\n", sum.Users, sum.Repaired, sum.Drift, sum.Failed)
		if sum.Failed > 0 {
			return fmt.Errorf("%d users failed to reconcile", sum.Failed)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Int("batch-size", 200, "Users per page")
}
