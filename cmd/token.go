package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/questline-backend/internal/app"
	"github.com/yungbote/questline-backend/internal/modules/auth"
	"github.com/yungbote/questline-backend/internal/modules/progress"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Mint a bearer token for local development",
	Long:  "With --email the user is looked up by email and provisioned when missing; the user id is then optional.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := uuid.Nil
		if len(args) == 1 {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("user id: %w", err)
			}
			userID = id
		}
		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		if email == "" {
			if userID == uuid.Nil {
				return fmt.Errorf("a user id or --email is required")
			}
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			envFile, _ := cmd.Flags().GetString("env-file")
			app.LoadEnvFile(log, envFile)
			return issueToken(cmd, app.LoadConfig(log), userID, ttl)
		}

		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()
		existing, err := a.Repos.User.GetByEmail(dbctx.Context{Ctx: cmd.Context()}, email)
		if err != nil {
			return err
		}
		if existing != nil {
			userID = existing.ID
		} else {
			if userID == uuid.Nil {
				userID = uuid.New()
			}
			name, _ := cmd.Flags().GetString("name")
			out, err := a.Services.Progress.ProvisionUser(cmd.Context(), progress.ProvisionUserInput{
				UserID:      userID,
				Email:       email,
				DisplayName: name,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "provisioned user %s (%s)\n", userID, out.Stats.DisplayName)
		}
		return issueToken(cmd, a.Cfg, userID, ttl)
	},
}

func issueToken(cmd *cobra.Command, cfg app.Config, userID uuid.UUID, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cfg.TokenTTL
	}
	tok, err := auth.NewTokenService(cfg.JWTSecretKey, cfg.JWTIssuer, ttl).Issue(userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func init() {
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to JWT_TOKEN_TTL)")
	tokenCmd.Flags().String("email", "", "Look up or provision the user by email")
	tokenCmd.Flags().String("name", "", "Display name for a newly provisioned user")
}
