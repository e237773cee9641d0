package meeting

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meetdesk-backend/internal/middleware"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/pkg/audit"
	apperrors "meetdesk-backend/pkg/errors"
	"meetdesk-backend/pkg/logger"
	"meetdesk-backend/pkg/pagination"
	"meetdesk-backend/pkg/response"
)

// Auditor records desk actions per user
type Auditor interface {
	LogMeetingCreate(ctx context.Context, userID uuid.UUID, meetingID, ipAddress, userAgent string, cause error) error
	LogMeetingJoin(ctx context.Context, userID uuid.UUID, link, ipAddress, userAgent string, cause error) error
	LogLinkCopy(ctx context.Context, userID uuid.UUID, meetingID, ipAddress, userAgent string, cause error) error
	GetEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*audit.AuditEvent, error)
}

// audit records the outcome of a desk action. Rejected requests that never
// reached the workflow are not recorded.
func (h *Handler) audit(c *gin.Context, event audit.AuditEventType, resource string, cause error) {
	if h.auditor == nil ||
		errors.Is(cause, meeting.ErrCreationInProgress) ||
		errors.Is(cause, meeting.ErrNotReady) {
		return
	}

	ctx := c.Request.Context()
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return
	}

	var record func(ctx context.Context, userID uuid.UUID, resource, ipAddress, userAgent string, cause error) error
	switch event {
	case audit.EventMeetingCreate:
		record = h.auditor.LogMeetingCreate
	case audit.EventMeetingJoin:
		record = h.auditor.LogMeetingJoin
	case audit.EventLinkCopy:
		record = h.auditor.LogLinkCopy
	default:
		return
	}

	if err := record(ctx, user.UserID, resource, c.ClientIP(), c.Request.UserAgent(), cause); err != nil {
		logger.FromContext(ctx).Warn("Failed to write audit event",
			zap.String("event_type", string(event)),
			zap.Error(err))
	}
}

// GetActivity returns the latest desk actions of the current user
// GET /v1/desk/activity?limit=20
func (h *Handler) GetActivity(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if h.auditor == nil {
		response.FromError(c, apperrors.ServiceUnavailableError("Activity log is disabled"))
		return
	}

	params, err := pagination.ParsePaginationParams("", c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	events, err := h.auditor.GetEvents(c.Request.Context(), userID, params.Limit)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("Failed to read audit events", zap.Error(err))
		response.FromError(c, apperrors.DatabaseError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"events": events})
}
