package meeting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meetdesk-backend/internal/domain"
)

// Collaborators are the per-interaction outputs of a desk
type Collaborators struct {
	Router    Router
	Notifier  Notifier
	Clipboard Clipboard
}

// Config holds the long-lived dependencies of a desk
type Config struct {
	Identity IdentityProvider
	Video    VideoClient
	Guard    Guard
	Recorder Recorder
	Logger   *zap.Logger

	// BaseURL prefixes shareable meeting links
	BaseURL string

	Now   func() time.Time
	NewID func() string
}

// deskField marks a part of the session an operation changed
type deskField uint8

const (
	fieldMode deskField = 1 << iota
	fieldScheduledAt
	fieldDescription
	fieldJoinLink
	fieldCreatedCall
	fieldPendingCall
)

// Desk is one user's meeting desk: mode selector, form state and workflows
type Desk struct {
	cfg     Config
	io      Collaborators
	session *domain.DeskSession

	// changed tracks what this desk wrote since it was loaded
	changed deskField

	// commit persists the desk while the creation guard is still held. May be nil.
	commit func(ctx context.Context) error
}

// NewDesk binds a session to its dependencies
func NewDesk(session *domain.DeskSession, cfg Config, io Collaborators) *Desk {
	if cfg.Guard == nil {
		cfg.Guard = NewLocalGuard()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return uuid.New().String() }
	}
	if session == nil {
		session = domain.NewDeskSession(uuid.Nil, cfg.Now())
	}
	return &Desk{cfg: cfg, io: io, session: session}
}

// Session returns the desk state for persistence
func (d *Desk) Session() *domain.DeskSession {
	return d.session
}

// Mode returns the active mode
func (d *Desk) Mode() domain.MeetingMode {
	return d.session.Mode
}

// CreatedCallID returns the id of the last created call, or ""
func (d *Desk) CreatedCallID() string {
	return d.session.CreatedCallID
}

// SetMode makes the panel for mode visible
func (d *Desk) SetMode(mode domain.MeetingMode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	d.session.Mode = mode
	d.mark(fieldMode)
	return nil
}

// Close hides whichever panel is open.
// Closing the "meeting created" panel also forgets the created call.
func (d *Desk) Close() {
	if d.session.Mode == domain.MeetingModeScheduling && d.session.CreatedCallID != "" {
		d.session.CreatedCallID = ""
		d.mark(fieldCreatedCall)
	}
	d.session.Mode = domain.MeetingModeNone
	d.mark(fieldMode)
}

// Reset forgets the created call so another meeting can be scheduled
func (d *Desk) Reset() {
	d.session.CreatedCallID = ""
	d.mark(fieldCreatedCall)
}

// SetScheduledAt sets the date and time of the pending meeting
func (d *Desk) SetScheduledAt(t time.Time) {
	d.session.Input.ScheduledAt = &t
	d.session.PendingCallID = ""
	d.mark(fieldScheduledAt | fieldPendingCall)
}

// ClearScheduledAt unsets the date and time field
func (d *Desk) ClearScheduledAt() {
	d.session.Input.ScheduledAt = nil
	d.session.PendingCallID = ""
	d.mark(fieldScheduledAt | fieldPendingCall)
}

// SetDescription sets the description of the pending meeting
func (d *Desk) SetDescription(description string) {
	d.session.Input.Description = description
	d.session.PendingCallID = ""
	d.mark(fieldDescription | fieldPendingCall)
}

// SetJoinLink sets the link typed into the join panel
func (d *Desk) SetJoinLink(link string) {
	d.session.Input.JoinLink = link
	d.mark(fieldJoinLink)
}

// Ready reports whether both the user and the video client are available
func (d *Desk) Ready(ctx context.Context) bool {
	_, ok := d.currentUser(ctx)
	return ok
}

func (d *Desk) currentUser(ctx context.Context) (*domain.User, bool) {
	if d.cfg.Identity == nil || d.cfg.Video == nil {
		return nil, false
	}
	return d.cfg.Identity.CurrentUser(ctx)
}

func (d *Desk) notify(ctx context.Context, title string) {
	if d.io.Notifier != nil {
		d.io.Notifier.Show(ctx, domain.Notice{Title: title})
	}
}

func (d *Desk) navigate(path string) {
	if d.io.Router != nil {
		d.io.Router.Push(path)
	}
}

func (d *Desk) mark(fields deskField) {
	d.changed |= fields
	d.session.UpdatedAt = d.cfg.Now()
}

// mergeInto applies what this desk changed onto the stored session, so
// writes made by other requests since this desk was loaded survive.
func (d *Desk) mergeInto(stored *domain.DeskSession) *domain.DeskSession {
	if stored == nil {
		merged := *d.session
		return &merged
	}

	merged := *stored
	if d.changed&fieldMode != 0 {
		merged.Mode = d.session.Mode
	}
	if d.changed&fieldScheduledAt != 0 {
		merged.Input.ScheduledAt = d.session.Input.ScheduledAt
	}
	if d.changed&fieldDescription != 0 {
		merged.Input.Description = d.session.Input.Description
	}
	if d.changed&fieldJoinLink != 0 {
		merged.Input.JoinLink = d.session.Input.JoinLink
	}
	if d.changed&fieldCreatedCall != 0 {
		merged.CreatedCallID = d.session.CreatedCallID
	}
	if d.changed&fieldPendingCall != 0 {
		merged.PendingCallID = d.session.PendingCallID
		// A pending id belongs to the input it was generated for.
		if !sameSchedule(d.session.Input, merged.Input) || d.session.Input.Description != merged.Input.Description {
			merged.PendingCallID = ""
		}
	}
	if d.session.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = d.session.UpdatedAt
	}
	return &merged
}

// saved adopts the stored session after a successful write
func (d *Desk) saved(session *domain.DeskSession) {
	d.session = session
	d.changed = 0
}

func sameSchedule(a, b domain.PendingMeetingInput) bool {
	if a.ScheduledAt == nil || b.ScheduledAt == nil {
		return a.ScheduledAt == nil && b.ScheduledAt == nil
	}
	return a.ScheduledAt.Equal(*b.ScheduledAt)
}
