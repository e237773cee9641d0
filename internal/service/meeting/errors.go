package meeting

import "errors"

var (
	// ErrNotReady means the user or the video client is not available yet
	ErrNotReady = errors.New("meeting desk is not ready")

	// ErrMissingSchedule means no date and time was selected
	ErrMissingSchedule = errors.New("scheduled time is not set")

	// ErrCallInitialization means the video client returned no call handle
	ErrCallInitialization = errors.New("failed to create the call")

	// ErrCreationInProgress means another creation for the same user is running
	ErrCreationInProgress = errors.New("meeting creation already in progress")

	// ErrNoMeeting means no meeting has been created on this desk
	ErrNoMeeting = errors.New("no meeting created")

	// ErrInvalidMode means an unknown meeting mode was requested
	ErrInvalidMode = errors.New("invalid meeting mode")
)

// Notice titles shown by the desk
const (
	NoticeSelectDateTime  = "Please select a date and time"
	NoticeMeetingCreated  = "Meeting created"
	NoticeCreateFailed    = "Failed to create a meeting"
	NoticeCreationRunning = "A meeting is already being created"
	NoticeLinkCopied      = "Link Copied"
)
