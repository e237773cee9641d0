package video

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meetdesk-backend/internal/domain"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/pkg/cache"
)

// MeetingRepository persists created calls
type MeetingRepository interface {
	GetOrCreate(ctx context.Context, m *domain.Meeting) (*domain.Meeting, bool, error)
	GetByID(ctx context.Context, meetingID string) (*domain.Meeting, error)
	ListByCreator(ctx context.Context, userID uuid.UUID, upcoming *bool, now time.Time, limit, offset int) ([]*domain.Meeting, error)
}

// ListFilter selects meetings by start time
type ListFilter string

const (
	ListAll      ListFilter = "all"
	ListUpcoming ListFilter = "upcoming"
	ListPrevious ListFilter = "previous"
)

// Service is the video backend the desk creates calls on
type Service struct {
	repo MeetingRepository
	// Meetings never change once stored, so lookups are cached. May be nil.
	cache *cache.MemoryCache
	now   func() time.Time
}

// NewService creates a new video service
func NewService(repo MeetingRepository, meetingCache *cache.MemoryCache) *Service {
	return &Service{
		repo:  repo,
		cache: meetingCache,
		now:   time.Now,
	}
}

// Call returns a handle for the call, or nil when category or id is empty
func (s *Service) Call(category, id string) meeting.CallHandle {
	if s.repo == nil || category == "" || id == "" {
		return nil
	}
	return &Call{service: s, category: category, id: id}
}

// GetMeeting retrieves a created meeting
func (s *Service) GetMeeting(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	if m, ok := s.cached(meetingID); ok {
		return m, nil
	}

	m, err := s.repo.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	s.remember(m)
	return m, nil
}

func (s *Service) cached(meetingID string) (*domain.Meeting, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(meetingID)
	if !ok {
		return nil, false
	}
	m, ok := v.(*domain.Meeting)
	return m, ok
}

func (s *Service) remember(m *domain.Meeting) {
	if s.cache != nil && m != nil {
		s.cache.Set(m.MeetingID, m, 0)
	}
}

// ListMeetings retrieves meetings created by a user
func (s *Service) ListMeetings(ctx context.Context, userID uuid.UUID, filter ListFilter, limit, offset int) ([]*domain.Meeting, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var upcoming *bool
	switch filter {
	case ListAll, "":
	case ListUpcoming:
		v := true
		upcoming = &v
	case ListPrevious:
		v := false
		upcoming = &v
	default:
		return nil, fmt.Errorf("unknown meeting filter %q", filter)
	}

	return s.repo.ListByCreator(ctx, userID, upcoming, s.now(), limit, offset)
}

// Call is a handle to one call
type Call struct {
	service  *Service
	category string
	id       string
	meeting  *domain.Meeting
}

// ID returns the call id
func (c *Call) ID() string {
	return c.id
}

// Meeting returns the stored meeting once GetOrCreate succeeded
func (c *Call) Meeting() *domain.Meeting {
	return c.meeting
}

// GetOrCreate creates the call, or loads it if the id already exists
func (c *Call) GetOrCreate(ctx context.Context, data meeting.CallData) error {
	m := &domain.Meeting{
		MeetingID:   c.id,
		Category:    c.category,
		CreatedBy:   data.CreatedBy,
		StartsAt:    data.StartsAt,
		Description: data.Custom["description"],
		CreatedAt:   c.service.now().UTC(),
	}

	stored, _, err := c.service.repo.GetOrCreate(ctx, m)
	if err != nil {
		return fmt.Errorf("failed to get or create call: %w", err)
	}
	c.meeting = stored
	c.service.remember(stored)
	return nil
}
