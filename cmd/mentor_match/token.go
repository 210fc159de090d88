package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/mentor-match/internal/config"
	"github.com/jonathan/mentor-match/internal/server"
	"github.com/jonathan/mentor-match/internal/types"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	Long:  "Signs a JWT with JWT_SECRET whose subject is the given user ID (a new random ID when omitted).",
	RunE:  runToken,
}

var (
	tokenUser string
)

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "User ID (UUID) to issue the token for")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to load JWT config: %w", err)
	}

	userID := uuid.New()
	if tokenUser != "" {
		userID, err = uuid.Parse(tokenUser)
		if err != nil {
			return fmt.Errorf("invalid --user %q: %w", tokenUser, err)
		}
	}

	token, expiresAt, err := server.NewJWTService(jwtCfg).GenerateToken(userID)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), types.TokenResponse{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
