package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/internal/service/video"
)

// NewListCmd lists meetings created by the user
func NewListCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings you created",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := flags.userContext(cmd.Context())
			if err != nil {
				return err
			}

			backend, err := deps.Connect(ctx)
			if err != nil {
				return fmt.Errorf("connecting: %w", err)
			}
			defer backend.Close()

			meetings, err := backend.Video.ListMeetings(ctx, userID, video.ListFilter(filter), 50, 0)
			if err != nil {
				return err
			}

			out := NewTerminal(cmd.OutOrStdout())
			if len(meetings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ℹ️  No meetings found")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "📁 Meetings:\n\n")
			now := time.Now()
			for _, m := range meetings {
				out.meetingListItem(m, meeting.BuildMeetingLink(deps.Config.Meeting.BaseURL, m.MeetingID), now)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", string(video.ListAll), "all, upcoming or previous")
	return cmd
}
