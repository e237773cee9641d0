package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/service/meeting"
)

// Terminal prints desk interactions instead of performing them
type Terminal struct {
	w io.Writer
}

// NewTerminal creates a terminal writing to w
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) collaborators() meeting.Collaborators {
	return meeting.Collaborators{Router: t, Notifier: t, Clipboard: t}
}

// Push implements meeting.Router
func (t *Terminal) Push(path string) {
	fmt.Fprintf(t.w, "➡️  Open %s\n", path)
}

// Show implements meeting.Notifier
func (t *Terminal) Show(_ context.Context, notice domain.Notice) {
	fmt.Fprintf(t.w, "ℹ️  %s\n", notice.Title)
}

// WriteText implements meeting.Clipboard
func (t *Terminal) WriteText(_ context.Context, text string) error {
	fmt.Fprintf(t.w, "📋 %s\n", text)
	return nil
}

func (t *Terminal) meetingListItem(m *domain.Meeting, link string, now time.Time) {
	status := "🕘"
	if !m.IsUpcoming(now) {
		status = "✅"
	}
	fmt.Fprintf(t.w, "  %s %s  %-30s %s\n", status, m.StartsAt.Local().Format("2006-01-02 15:04"), m.Description, link)
}
