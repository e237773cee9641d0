package meeting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meetdesk-backend/internal/domain"
)

// IdentityProvider exposes the current authenticated user, if any
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*domain.User, bool)
}

// CallData is submitted when a call is created
type CallData struct {
	StartsAt  time.Time
	CreatedBy uuid.UUID
	Custom    map[string]string
}

// CallHandle is a reference to one call on the video backend
type CallHandle interface {
	ID() string
	GetOrCreate(ctx context.Context, data CallData) error
}

// VideoClient hands out call handles by category and id
// Call may return nil when the client cannot build a handle
type VideoClient interface {
	Call(category, id string) CallHandle
}

// Router navigates the user to a path
type Router interface {
	Push(path string)
}

// Notifier shows a notice to the user
type Notifier interface {
	Show(ctx context.Context, notice domain.Notice)
}

// Clipboard receives text copied by the user
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// SessionStore persists desk sessions between requests
type SessionStore interface {
	// Get returns nil, nil when the user has no stored desk
	Get(ctx context.Context, userID uuid.UUID) (*domain.DeskSession, error)
	// Update passes the stored desk (nil if none) to apply and stores the
	// result atomically; apply may run again if another writer got in first.
	Update(ctx context.Context, userID uuid.UUID, ttl time.Duration, apply func(stored *domain.DeskSession) *domain.DeskSession) error
}

// Recorder receives workflow outcomes for metrics
type Recorder interface {
	RecordMeetingCreated(instant bool)
	RecordMeetingFailed(reason string)
	RecordMeetingJoined()
}

type noopRecorder struct{}

func (noopRecorder) RecordMeetingCreated(bool)  {}
func (noopRecorder) RecordMeetingFailed(string) {}
func (noopRecorder) RecordMeetingJoined()       {}
