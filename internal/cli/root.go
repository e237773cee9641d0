package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/middleware"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/internal/service/video"
	"meetdesk-backend/pkg/config"
)

// Backend is what desk commands run against
type Backend struct {
	Desks *meeting.Service
	Video *video.Service
	Close func()
}

// Dependencies are shared by every command
type Dependencies struct {
	Config *config.Config
	Out    io.Writer

	// Connect opens the stores; only commands that need them call it
	Connect func(ctx context.Context) (*Backend, error)
}

type globalFlags struct {
	userID   string
	username string
}

// NewRootCmd builds the meetingctl command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "meetingctl",
		Short:         "Drive a meeting desk from the terminal",
		Long:          "meetingctl runs the meeting desk workflows (instant, scheduled and joined meetings) against the same stores as the meeting service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(deps.Out)

	rootCmd.PersistentFlags().StringVar(&flags.userID, "user", "", "user id the desk belongs to")
	rootCmd.PersistentFlags().StringVar(&flags.username, "username", "cli", "username shown on created meetings")

	rootCmd.AddCommand(NewInstantCmd(deps, flags))
	rootCmd.AddCommand(NewScheduleCmd(deps, flags))
	rootCmd.AddCommand(NewJoinCmd(deps, flags))
	rootCmd.AddCommand(NewCopyLinkCmd(deps, flags))
	rootCmd.AddCommand(NewResetCmd(deps, flags))
	rootCmd.AddCommand(NewListCmd(deps, flags))
	rootCmd.AddCommand(NewTokenCmd(deps))

	return rootCmd
}

// userContext attaches the --user identity to ctx
func (f *globalFlags) userContext(ctx context.Context) (context.Context, uuid.UUID, error) {
	if f.userID == "" {
		return nil, uuid.Nil, fmt.Errorf("--user is required")
	}
	userID, err := uuid.Parse(f.userID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid --user: %w", err)
	}
	return middleware.WithUser(ctx, &domain.User{UserID: userID, Username: f.username}), userID, nil
}
