package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "meetdesk-backend/pkg/errors"
)

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	// Desk events
	EventMeetingCreate AuditEventType = "meeting_create"
	EventMeetingJoin   AuditEventType = "meeting_join"
	EventLinkCopy      AuditEventType = "meeting_link_copy"
)

// AuditEvent represents an audit log entry
type AuditEvent struct {
	EventID   uuid.UUID      `json:"event_id"`
	UserID    *uuid.UUID     `json:"user_id,omitempty"`
	EventType AuditEventType `json:"event_type"`
	Resource  string         `json:"resource,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Success   bool           `json:"success"`
	ErrorCode string         `json:"error_code,omitempty"`
	Details   string         `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventStore is the part of the Redis client the audit log needs
type EventStore interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// AuditLogger keeps one Redis list of events per day
type AuditLogger struct {
	store     EventStore
	retention time.Duration
	now       func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(store EventStore, retention time.Duration) *AuditLogger {
	if retention < 24*time.Hour {
		retention = 24 * time.Hour
	}
	return &AuditLogger{
		store:     store,
		retention: retention,
		now:       time.Now,
	}
}

func dayKey(t time.Time) string {
	return fmt.Sprintf("audit:events:%s", t.Format("2006-01-02"))
}

// Log logs an audit event
func (al *AuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	event.Timestamp = al.now().UTC()
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	key := dayKey(event.Timestamp)
	if err := al.store.LPush(ctx, key, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to store audit event: %w", err)
	}
	if err := al.store.Expire(ctx, key, al.retention).Err(); err != nil {
		return fmt.Errorf("failed to set audit log expiry: %w", err)
	}
	return nil
}

// LogMeetingCreate logs the outcome of a meeting creation
func (al *AuditLogger) LogMeetingCreate(ctx context.Context, userID uuid.UUID, meetingID, ipAddress, userAgent string, cause error) error {
	return al.Log(ctx, outcome(&AuditEvent{
		UserID:    &userID,
		EventType: EventMeetingCreate,
		Resource:  meetingID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}, cause))
}

// LogMeetingJoin logs a join-by-link navigation
func (al *AuditLogger) LogMeetingJoin(ctx context.Context, userID uuid.UUID, link, ipAddress, userAgent string, cause error) error {
	return al.Log(ctx, outcome(&AuditEvent{
		UserID:    &userID,
		EventType: EventMeetingJoin,
		Resource:  link,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}, cause))
}

// LogLinkCopy logs a copied meeting link
func (al *AuditLogger) LogLinkCopy(ctx context.Context, userID uuid.UUID, meetingID, ipAddress, userAgent string, cause error) error {
	return al.Log(ctx, outcome(&AuditEvent{
		UserID:    &userID,
		EventType: EventLinkCopy,
		Resource:  meetingID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}, cause))
}

func outcome(event *AuditEvent, cause error) *AuditEvent {
	event.Success = cause == nil
	if cause == nil {
		return event
	}

	event.ErrorCode = "FAILED"
	var appErr *apperrors.AppError
	if errors.As(cause, &appErr) {
		event.ErrorCode = string(appErr.Code)
	}
	event.Details = cause.Error()
	return event
}

// GetEvents retrieves the newest audit events of a user, walking back one day
// at a time until limit events are found or the retention window is exhausted.
func (al *AuditLogger) GetEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*AuditEvent, error) {
	if limit <= 0 {
		return []*AuditEvent{}, nil
	}

	now := al.now().UTC()
	days := int(al.retention / (24 * time.Hour))

	events := make([]*AuditEvent, 0, limit)
	for i := 0; i < days && len(events) < limit; i++ {
		members, err := al.store.LRange(ctx, dayKey(now.AddDate(0, 0, -i)), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit events: %w", err)
		}

		for _, member := range members {
			var event AuditEvent
			if err := json.Unmarshal([]byte(member), &event); err != nil {
				continue
			}
			if event.UserID != nil && *event.UserID == userID {
				events = append(events, &event)
				if len(events) == limit {
					break
				}
			}
		}
	}

	return events, nil
}
