package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"meetdesk-backend/pkg/jwt"
)

// NewTokenCmd mints an access token for local testing of the HTTP API
func NewTokenCmd(deps *Dependencies) *cobra.Command {
	var (
		userID   string
		email    string
		username string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Config.IsProduction() {
				return fmt.Errorf("refusing to mint tokens in production")
			}

			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user-id: %w", err)
				}
				id = parsed
			}

			manager := jwt.NewJWTManager(deps.Config.JWT.Secret, deps.Config.JWT.AccessTokenExpiry)
			token, err := manager.GenerateAccessToken(id, email, username, role)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "user id (random when empty)")
	cmd.Flags().StringVar(&email, "email", "dev@example.com", "email claim")
	cmd.Flags().StringVar(&username, "name", "dev", "username claim")
	cmd.Flags().StringVar(&role, "role", "user", "role claim")
	return cmd
}
