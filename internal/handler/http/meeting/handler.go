package meeting

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/pkg/audit"
	"meetdesk-backend/pkg/constants"
	apperrors "meetdesk-backend/pkg/errors"
	"meetdesk-backend/pkg/logger"
	"meetdesk-backend/pkg/response"
	"meetdesk-backend/pkg/sanitize"
)

// Handler handles meeting desk HTTP requests
type Handler struct {
	desks      *meeting.Service
	meetings   MeetingService
	recordings RecordingService
	publisher  NoticePublisher
	recorder   NoticeRecorder
	auditor    Auditor
	baseURL    string
}

// NewHandler creates a new meeting desk handler. recorder and auditor may be nil.
func NewHandler(desks *meeting.Service, meetings MeetingService, recordings RecordingService, publisher NoticePublisher, recorder NoticeRecorder, auditor Auditor, baseURL string) *Handler {
	return &Handler{
		desks:      desks,
		meetings:   meetings,
		recordings: recordings,
		publisher:  publisher,
		recorder:   recorder,
		auditor:    auditor,
		baseURL:    baseURL,
	}
}

// RegisterRoutes mounts the desk and meeting routes on an authenticated group
func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	desk := v1.Group("/desk")
	{
		desk.GET("", h.GetDesk)
		desk.POST("/mode", h.SetMode)
		desk.POST("/close", h.Close)
		desk.PATCH("/form", h.UpdateForm)
		desk.POST("/meetings", h.CreateMeeting)
		desk.POST("/join", h.JoinMeeting)
		desk.POST("/link/copy", h.CopyLink)
		desk.POST("/reset", h.Reset)
		desk.POST("/recordings", h.ViewRecordings)
		desk.GET("/activity", h.GetActivity)
	}

	meetings := v1.Group("/meetings")
	{
		meetings.GET("", h.ListMeetings)
		meetings.GET("/:id", h.GetMeeting)
	}

	v1.GET("/recordings", h.ListRecordings)
}

// GetDesk renders the desk of the current user
// GET /v1/desk
func (h *Handler) GetDesk(c *gin.Context) {
	h.act(c, func(context.Context, *meeting.Desk) error { return nil })
}

// SetModeRequest selects the visible panel
type SetModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=none scheduling joining instant"`
}

// SetMode opens one of the desk panels
// POST /v1/desk/mode
func (h *Handler) SetMode(c *gin.Context) {
	var req SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	h.act(c, func(_ context.Context, desk *meeting.Desk) error {
		return desk.SetMode(domain.MeetingMode(req.Mode))
	})
}

// Close hides the visible panel
// POST /v1/desk/close
func (h *Handler) Close(c *gin.Context) {
	h.act(c, func(_ context.Context, desk *meeting.Desk) error {
		desk.Close()
		return nil
	})
}

// UpdateFormRequest carries the changed form fields; absent fields are left alone
type UpdateFormRequest struct {
	ScheduledAt      *time.Time `json:"scheduled_at"`
	ClearScheduledAt bool       `json:"clear_scheduled_at"`
	Description      *string    `json:"description"`
	Link             *string    `json:"link"`
}

// UpdateForm applies user input to the pending meeting
// PATCH /v1/desk/form
func (h *Handler) UpdateForm(c *gin.Context) {
	var req UpdateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if req.ScheduledAt != nil && req.ClearScheduledAt {
		response.ValidationError(c, "scheduled_at and clear_scheduled_at are mutually exclusive")
		return
	}

	h.act(c, func(_ context.Context, desk *meeting.Desk) error {
		if req.ScheduledAt != nil {
			desk.SetScheduledAt(*req.ScheduledAt)
		}
		if req.ClearScheduledAt {
			desk.ClearScheduledAt()
		}
		if req.Description != nil {
			desk.SetDescription(sanitize.Text(*req.Description, constants.MaxDescriptionLength))
		}
		if req.Link != nil {
			desk.SetJoinLink(*req.Link)
		}
		return nil
	})
}

// CreateMeeting runs the creation workflow with the current form
// POST /v1/desk/meetings
func (h *Handler) CreateMeeting(c *gin.Context) {
	h.act(c, func(ctx context.Context, desk *meeting.Desk) error {
		err := desk.CreateMeeting(ctx)
		h.audit(c, audit.EventMeetingCreate, desk.CreatedCallID(), err)
		return err
	})
}

// JoinMeeting navigates to the typed link
// POST /v1/desk/join
func (h *Handler) JoinMeeting(c *gin.Context) {
	h.act(c, func(ctx context.Context, desk *meeting.Desk) error {
		err := desk.JoinMeeting(ctx)
		h.audit(c, audit.EventMeetingJoin, desk.Session().Input.JoinLink, err)
		return err
	})
}

// CopyLink copies the shareable link of the created meeting
// POST /v1/desk/link/copy
func (h *Handler) CopyLink(c *gin.Context) {
	h.act(c, func(ctx context.Context, desk *meeting.Desk) error {
		err := desk.CopyLink(ctx)
		h.audit(c, audit.EventLinkCopy, desk.CreatedCallID(), err)
		return err
	})
}

// Reset forgets the created meeting
// POST /v1/desk/reset
func (h *Handler) Reset(c *gin.Context) {
	h.act(c, func(_ context.Context, desk *meeting.Desk) error {
		desk.Reset()
		return nil
	})
}

// ViewRecordings navigates to the recordings page
// POST /v1/desk/recordings
func (h *Handler) ViewRecordings(c *gin.Context) {
	h.act(c, func(ctx context.Context, desk *meeting.Desk) error {
		return desk.ViewRecordings(ctx)
	})
}

// act loads the desk, runs one operation on it and saves the result
func (h *Handler) act(c *gin.Context, op func(ctx context.Context, desk *meeting.Desk) error) {
	ctx := c.Request.Context()
	io := &interaction{publisher: h.publisher, recorder: h.recorder}

	desk, err := h.desks.Open(ctx, io.collaborators())
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := op(ctx, desk); err != nil {
		switch {
		case errors.Is(err, meeting.ErrCreationInProgress):
			// The running creation owns the stored desk.
			response.FromError(c, apperrors.CreationInProgressError())
			return
		case errors.Is(err, meeting.ErrMissingSchedule):
		case errors.Is(err, meeting.ErrNotReady),
			errors.Is(err, meeting.ErrNoMeeting),
			errors.Is(err, meeting.ErrInvalidMode):
			h.fail(c, err)
			return
		default:
			// Workflow failures were already shown as notices.
			logger.FromContext(ctx).Warn("Desk action failed", zap.Error(err))
		}
	}

	if err := h.desks.Save(ctx, desk); err != nil {
		logger.FromContext(ctx).Error("Failed to save desk", zap.Error(err))
		response.FromError(c, apperrors.DatabaseError(err))
		return
	}

	response.Success(c, http.StatusOK, io.response(desk.View(ctx)))
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, meeting.ErrNotReady):
		response.FromError(c, apperrors.ServiceUnavailableError("Meeting desk is loading"))
	case errors.Is(err, meeting.ErrNoMeeting):
		response.FromError(c, apperrors.NoMeetingError())
	case errors.Is(err, meeting.ErrInvalidMode):
		response.ValidationError(c, err.Error())
	default:
		logger.FromContext(c.Request.Context()).Error("Failed to open desk", zap.Error(err))
		response.FromError(c, err)
	}
}
