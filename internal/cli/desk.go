package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/pkg/constants"
	"meetdesk-backend/pkg/sanitize"
)

// withDesk opens the user's desk, runs op and saves the desk.
// Errors already shown as notices are not returned again.
func withDesk(cmd *cobra.Command, deps *Dependencies, flags *globalFlags, op func(ctx context.Context, desk *meeting.Desk) error) error {
	ctx, _, err := flags.userContext(cmd.Context())
	if err != nil {
		return err
	}

	backend, err := deps.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer backend.Close()

	desk, err := backend.Desks.Open(ctx, NewTerminal(cmd.OutOrStdout()).collaborators())
	if err != nil {
		return err
	}

	opErr := op(ctx, desk)
	if errors.Is(opErr, meeting.ErrCreationInProgress) {
		return opErr
	}
	if err := backend.Desks.Save(ctx, desk); err != nil {
		return err
	}

	switch {
	case opErr == nil:
		return nil
	case errors.Is(opErr, meeting.ErrNoMeeting), errors.Is(opErr, meeting.ErrNotReady):
		return opErr
	default:
		return errShown
	}
}

// errShown marks a failure the desk already reported
var errShown = errors.New("desk action failed")

// NewInstantCmd starts an instant meeting
func NewInstantCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "instant",
		Short: "Start an instant meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDesk(cmd, deps, flags, func(ctx context.Context, desk *meeting.Desk) error {
				if err := desk.SetMode(domain.MeetingModeInstant); err != nil {
					return err
				}
				desk.SetScheduledAt(time.Now())
				desk.SetDescription("")
				return desk.CreateMeeting(ctx)
			})
		},
	}
}

// NewScheduleCmd schedules a meeting and prints its link
func NewScheduleCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	var (
		at          string
		description string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			startsAt, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at, want RFC 3339: %w", err)
			}

			return withDesk(cmd, deps, flags, func(ctx context.Context, desk *meeting.Desk) error {
				if err := desk.SetMode(domain.MeetingModeScheduling); err != nil {
					return err
				}
				desk.SetScheduledAt(startsAt)
				desk.SetDescription(sanitize.Text(description, constants.MaxDescriptionLength))
				if err := desk.CreateMeeting(ctx); err != nil {
					return err
				}

				if link, err := desk.MeetingLink(); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "🔗 %s\n", link)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "start time, RFC 3339 (e.g. 2024-05-01T09:30:00Z)")
	cmd.Flags().StringVar(&description, "description", "", "meeting description; empty starts the meeting right away")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

// NewJoinCmd joins a meeting by link
func NewJoinCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "join <link>",
		Short: "Join a meeting by link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDesk(cmd, deps, flags, func(ctx context.Context, desk *meeting.Desk) error {
				if err := desk.SetMode(domain.MeetingModeJoining); err != nil {
					return err
				}
				desk.SetJoinLink(args[0])
				if err := desk.JoinMeeting(ctx); err != nil {
					return err
				}
				desk.Close()
				return nil
			})
		},
	}
}

// NewCopyLinkCmd prints the link of the last created meeting
func NewCopyLinkCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "copy-link",
		Short: "Copy the link of the last created meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDesk(cmd, deps, flags, func(ctx context.Context, desk *meeting.Desk) error {
				return desk.CopyLink(ctx)
			})
		},
	}
}

// NewResetCmd forgets the last created meeting
func NewResetCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the last created meeting and close the desk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDesk(cmd, deps, flags, func(_ context.Context, desk *meeting.Desk) error {
				desk.Reset()
				desk.Close()
				return nil
			})
		},
	}
}
