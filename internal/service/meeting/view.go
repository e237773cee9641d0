package meeting

import (
	"context"

	"meetdesk-backend/internal/domain"
)

var homeCards = []domain.Card{
	{Key: string(domain.MeetingModeInstant), Title: "New Meet", Description: "Create an instant meeting", Icon: "/icons/add-meeting.svg"},
	{Key: string(domain.MeetingModeJoining), Title: "Join a Meet", Description: "via an invitation link", Icon: "/icons/join-meeting.svg"},
	{Key: string(domain.MeetingModeScheduling), Title: "Schedule a Meet", Description: "Plan your Meeting", Icon: "/icons/schedule.svg"},
	{Key: "recordings", Title: "View Recordings", Description: "Check out your saved Recordings", Icon: "/icons/recordings.svg"},
}

// View renders the desk. Without a user or video client it is a loading placeholder.
func (d *Desk) View(ctx context.Context) *domain.DeskView {
	if !d.Ready(ctx) {
		return &domain.DeskView{Loading: true, Mode: domain.MeetingModeNone}
	}

	cards := make([]domain.Card, len(homeCards))
	copy(cards, homeCards)

	return &domain.DeskView{
		Mode:  d.session.Mode,
		Cards: cards,
		Panel: d.panel(),
		Input: d.session.Input,
	}
}

func (d *Desk) panel() *domain.Panel {
	switch d.session.Mode {
	case domain.MeetingModeScheduling:
		if link, err := d.MeetingLink(); err == nil {
			return &domain.Panel{
				Kind:       domain.PanelScheduleCreated,
				Title:      "Meeting Created",
				ButtonText: "Copy Meeting Link",
				Link:       link,
				CanCopy:    true,
			}
		}
		return &domain.Panel{
			Kind:       domain.PanelScheduleForm,
			Title:      "Create Meeting",
			ButtonText: "Schedule Meeting",
		}
	case domain.MeetingModeInstant:
		return &domain.Panel{
			Kind:       domain.PanelInstant,
			Title:      "Start an Instant Meeting",
			ButtonText: "Start Meeting",
		}
	case domain.MeetingModeJoining:
		return &domain.Panel{
			Kind:       domain.PanelJoin,
			Title:      "Type the link here",
			ButtonText: "Join Meeting",
		}
	}
	return nil
}
