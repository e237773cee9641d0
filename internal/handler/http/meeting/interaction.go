package meeting

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/middleware"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/pkg/logger"
)

// NoticePublisher fans notices out to the user's open websockets
type NoticePublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, notice domain.Notice) error
}

// NoticeRecorder counts shown notices
type NoticeRecorder interface {
	RecordNotice(title string)
}

// interaction collects what one desk request does to the outside world,
// so it can be returned in the response body.
type interaction struct {
	publisher NoticePublisher
	recorder  NoticeRecorder

	navigateTo string
	clipboard  string
	notices    []domain.Notice
}

func (i *interaction) collaborators() meeting.Collaborators {
	return meeting.Collaborators{
		Router:    i,
		Notifier:  i,
		Clipboard: i,
	}
}

// Push implements meeting.Router
func (i *interaction) Push(path string) {
	i.navigateTo = path
}

// Show implements meeting.Notifier
func (i *interaction) Show(ctx context.Context, notice domain.Notice) {
	i.notices = append(i.notices, notice)
	if i.recorder != nil {
		i.recorder.RecordNotice(notice.Title)
	}

	user, ok := middleware.UserFromContext(ctx)
	if !ok || i.publisher == nil {
		return
	}
	// Websocket delivery is best effort; the notice is also in the response.
	if err := i.publisher.Publish(ctx, user.UserID, notice); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish notice",
			zap.String("user_id", user.UserID.String()),
			zap.String("title", notice.Title),
			zap.Error(err))
	}
}

// WriteText implements meeting.Clipboard
func (i *interaction) WriteText(_ context.Context, text string) error {
	i.clipboard = text
	return nil
}

// ActionResponse is returned by every desk action
type ActionResponse struct {
	View       *domain.DeskView `json:"view"`
	Notices    []domain.Notice  `json:"notices"`
	NavigateTo string           `json:"navigate_to,omitempty"`
	Clipboard  string           `json:"clipboard,omitempty"`
}

func (i *interaction) response(view *domain.DeskView) *ActionResponse {
	notices := i.notices
	if notices == nil {
		notices = []domain.Notice{}
	}
	return &ActionResponse{
		View:       view,
		Notices:    notices,
		NavigateTo: i.navigateTo,
		Clipboard:  i.clipboard,
	}
}
