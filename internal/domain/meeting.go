package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCallCategory is the call category every desk meeting is created under
const DefaultCallCategory = "default"

// InstantMeetingDescription is stored when a meeting is created without a description
const InstantMeetingDescription = "Instant Meeting"

// MeetingMode is the active user intent on the desk
type MeetingMode string

const (
	MeetingModeNone       MeetingMode = "none"
	MeetingModeScheduling MeetingMode = "scheduling"
	MeetingModeJoining    MeetingMode = "joining"
	MeetingModeInstant    MeetingMode = "instant"
)

// Valid reports whether m is one of the known modes
func (m MeetingMode) Valid() bool {
	switch m {
	case MeetingModeNone, MeetingModeScheduling, MeetingModeJoining, MeetingModeInstant:
		return true
	}
	return false
}

// PendingMeetingInput holds what the user has typed into the desk panels
type PendingMeetingInput struct {
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Description string     `json:"description"`
	JoinLink    string     `json:"join_link"`
}

// Meeting represents a created call
// Maps to CockroachDB meetings table
type Meeting struct {
	MeetingID   string    `json:"meeting_id" db:"meeting_id"`
	Category    string    `json:"category" db:"category"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsUpcoming reports whether the meeting starts after now
func (m *Meeting) IsUpcoming(now time.Time) bool {
	return m.StartsAt.After(now)
}

// Notice is a short, non-blocking message shown to the user
type Notice struct {
	Title string `json:"title"`
}

// DeskSession is the persisted desk state of one user
type DeskSession struct {
	UserID        uuid.UUID           `json:"user_id"`
	Mode          MeetingMode         `json:"mode"`
	Input         PendingMeetingInput `json:"input"`
	CreatedCallID string              `json:"created_call_id,omitempty"`
	PendingCallID string              `json:"pending_call_id,omitempty"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewDeskSession returns a fresh desk with the scheduled time set to now
func NewDeskSession(userID uuid.UUID, now time.Time) *DeskSession {
	scheduledAt := now
	return &DeskSession{
		UserID: userID,
		Mode:   MeetingModeNone,
		Input: PendingMeetingInput{
			ScheduledAt: &scheduledAt,
		},
		UpdatedAt: now,
	}
}
