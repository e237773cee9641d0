package meeting

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/internal/service/video"
	"meetdesk-backend/pkg/pagination"
	"meetdesk-backend/pkg/response"
)

// MeetingService reads created meetings
type MeetingService interface {
	GetMeeting(ctx context.Context, meetingID string) (*domain.Meeting, error)
	ListMeetings(ctx context.Context, userID uuid.UUID, filter video.ListFilter, limit, offset int) ([]*domain.Meeting, error)
}

// RecordingService lists stored recordings
type RecordingService interface {
	ListRecordings(ctx context.Context, userID uuid.UUID, meetingID string) ([]*domain.Recording, error)
}

var timeNow = time.Now

// MeetingResponse is a meeting with its shareable link
type MeetingResponse struct {
	*domain.Meeting
	Link     string `json:"link"`
	Upcoming bool   `json:"upcoming"`
}

// GetMeeting returns one meeting
// GET /v1/meetings/:id
func (h *Handler) GetMeeting(c *gin.Context) {
	meetingID := c.Param("id")
	if _, err := uuid.Parse(meetingID); err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	m, err := h.meetings.GetMeeting(c.Request.Context(), meetingID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.toResponse(m))
}

// ListMeetings returns meetings created by the current user
// GET /v1/meetings?filter=upcoming|previous&page=1&limit=20
func (h *Handler) ListMeetings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filter := video.ListFilter(c.DefaultQuery("filter", string(video.ListAll)))
	switch filter {
	case video.ListAll, video.ListUpcoming, video.ListPrevious:
	default:
		response.ValidationError(c, "filter must be one of all, upcoming, previous")
		return
	}

	params, err := pagination.ParsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	meetings, err := h.meetings.ListMeetings(c.Request.Context(), userID, filter, params.Limit, params.Offset)
	if err != nil {
		response.InternalError(c, "Failed to list meetings")
		return
	}

	items := make([]*MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, h.toResponse(m))
	}

	response.Success(c, http.StatusOK, gin.H{
		"meetings":   items,
		"pagination": pagination.BuildResponse(params, len(items)),
	})
}

// ListRecordings returns recordings of the current user's meetings
// GET /v1/recordings?meeting_id=
func (h *Handler) ListRecordings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	meetingID := c.Query("meeting_id")
	if meetingID != "" {
		if _, err := uuid.Parse(meetingID); err != nil {
			response.ValidationError(c, "Invalid meeting ID")
			return
		}
	}

	recordings, err := h.recordings.ListRecordings(c.Request.Context(), userID, meetingID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"recordings": recordings})
}

func (h *Handler) toResponse(m *domain.Meeting) *MeetingResponse {
	return &MeetingResponse{
		Meeting:  m,
		Link:     meeting.BuildMeetingLink(h.baseURL, m.MeetingID),
		Upcoming: m.IsUpcoming(timeNow()),
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, false
	}

	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}
