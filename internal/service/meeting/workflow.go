package meeting

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"meetdesk-backend/internal/domain"
)

// CreateMeeting runs the meeting creation workflow.
//
// Validation and backend failures are reported through the notifier; the
// returned error lets transports tell them apart. An empty description makes
// the meeting instant: the user is sent straight to it. The desk is
// committed before the creation guard is released.
func (d *Desk) CreateMeeting(ctx context.Context) error {
	user, ok := d.currentUser(ctx)
	if !ok {
		return ErrNotReady
	}

	input := d.session.Input
	if input.ScheduledAt == nil {
		d.notify(ctx, NoticeSelectDateTime)
		return ErrMissingSchedule
	}

	release, err := d.cfg.Guard.Acquire(ctx, creationKey(user.UserID))
	if err != nil {
		if errors.Is(err, ErrCreationInProgress) {
			d.notify(ctx, NoticeCreationRunning)
			return err
		}
		d.cfg.Logger.Error("Failed to acquire creation guard",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
		d.cfg.Recorder.RecordMeetingFailed("guard")
		d.notify(ctx, NoticeCreateFailed)
		return fmt.Errorf("failed to acquire creation guard: %w", err)
	}
	defer release()
	defer d.persist(ctx)

	// A new request invalidates the previous handle.
	d.session.CreatedCallID = ""
	d.mark(fieldCreatedCall)

	call, err := d.createCall(ctx, user, input)
	if err != nil {
		d.cfg.Logger.Error("Failed to create meeting",
			zap.String("user_id", user.UserID.String()),
			zap.String("call_id", d.session.PendingCallID),
			zap.Error(err))
		d.cfg.Recorder.RecordMeetingFailed(failureReason(err))
		d.notify(ctx, NoticeCreateFailed)
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	d.session.CreatedCallID = call.ID()
	d.session.PendingCallID = ""
	d.mark(fieldCreatedCall | fieldPendingCall)

	instant := input.Description == ""
	if instant {
		d.navigate(MeetingPath(call.ID()))
	}
	d.cfg.Recorder.RecordMeetingCreated(instant)
	d.cfg.Logger.Info("Meeting created",
		zap.String("user_id", user.UserID.String()),
		zap.String("call_id", call.ID()),
		zap.Bool("instant", instant))
	d.notify(ctx, NoticeMeetingCreated)
	return nil
}

// createCall reuses the pending call id of a failed attempt so retries stay idempotent
func (d *Desk) createCall(ctx context.Context, user *domain.User, input domain.PendingMeetingInput) (CallHandle, error) {
	id := d.session.PendingCallID
	if id == "" {
		id = d.cfg.NewID()
		d.session.PendingCallID = id
		d.mark(fieldPendingCall)
	}

	call := d.cfg.Video.Call(domain.DefaultCallCategory, id)
	if call == nil {
		return nil, ErrCallInitialization
	}

	startsAt := d.cfg.Now()
	if input.ScheduledAt != nil {
		startsAt = *input.ScheduledAt
	}

	description := input.Description
	if description == "" {
		description = domain.InstantMeetingDescription
	}

	err := call.GetOrCreate(ctx, CallData{
		StartsAt:  startsAt.UTC(),
		CreatedBy: user.UserID,
		Custom: map[string]string{
			"description": description,
		},
	})
	if err != nil {
		return nil, err
	}
	return call, nil
}

// JoinMeeting navigates to the typed link as-is
func (d *Desk) JoinMeeting(ctx context.Context) error {
	if !d.Ready(ctx) {
		return ErrNotReady
	}
	d.navigate(d.session.Input.JoinLink)
	d.cfg.Recorder.RecordMeetingJoined()
	return nil
}

// ViewRecordings navigates to the recordings page
func (d *Desk) ViewRecordings(ctx context.Context) error {
	if !d.Ready(ctx) {
		return ErrNotReady
	}
	d.navigate(RecordingsPath)
	return nil
}

// MeetingLink returns the shareable link of the created meeting
func (d *Desk) MeetingLink() (string, error) {
	if d.session.CreatedCallID == "" {
		return "", ErrNoMeeting
	}
	return BuildMeetingLink(d.cfg.BaseURL, d.session.CreatedCallID), nil
}

// CopyLink copies the shareable link of the created meeting
func (d *Desk) CopyLink(ctx context.Context) error {
	link, err := d.MeetingLink()
	if err != nil {
		return err
	}
	if d.io.Clipboard != nil {
		if err := d.io.Clipboard.WriteText(ctx, link); err != nil {
			return fmt.Errorf("failed to copy link: %w", err)
		}
	}
	d.notify(ctx, NoticeLinkCopied)
	return nil
}

// RecordingsPath is where the recordings card navigates
const RecordingsPath = "/recordings"

// MeetingPath returns the in-app path of a meeting
func MeetingPath(callID string) string {
	return "/meeting/" + callID
}

// BuildMeetingLink joins the base URL and the meeting path
func BuildMeetingLink(baseURL, callID string) string {
	return baseURL + MeetingPath(callID)
}

// persist commits the desk if it is bound to a store. A failed commit keeps
// the changes marked so the caller's own save writes them.
func (d *Desk) persist(ctx context.Context) {
	if d.commit == nil {
		return
	}
	if err := d.commit(ctx); err != nil {
		d.cfg.Logger.Warn("Failed to commit desk after creation",
			zap.String("user_id", d.session.UserID.String()),
			zap.Error(err))
	}
}

func failureReason(err error) string {
	if errors.Is(err, ErrCallInitialization) {
		return "initialization"
	}
	return "transport"
}
