package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"meetdesk-backend/internal/domain"
)

// NoticeMessage is a notice addressed to one user
type NoticeMessage struct {
	UserID    uuid.UUID     `json:"user_id"`
	Notice    domain.Notice `json:"notice"`
	Timestamp time.Time     `json:"timestamp"`
}

// NoticeRepository publishes desk notices over Redis Pub/Sub
type NoticeRepository struct {
	client *redis.Client
}

// NewNoticeRepository creates a new NoticeRepository
func NewNoticeRepository(client *redis.Client) *NoticeRepository {
	return &NoticeRepository{client: client}
}

// NoticeChannel returns the Pub/Sub channel of a user
func NoticeChannel(userID uuid.UUID) string {
	return fmt.Sprintf("notices:%s", userID)
}

// Publish sends a notice to every listener of the user
func (r *NoticeRepository) Publish(ctx context.Context, userID uuid.UUID, notice domain.Notice) error {
	data, err := json.Marshal(&NoticeMessage{
		UserID:    userID,
		Notice:    notice,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	if err := r.client.Publish(ctx, NoticeChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish notice: %w", err)
	}
	return nil
}

// Listen delivers the raw notices of a user until ctx is done
func (r *NoticeRepository) Listen(ctx context.Context, userID uuid.UUID, deliver func(payload []byte)) error {
	pubsub := r.client.Subscribe(ctx, NoticeChannel(userID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to notices: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliver([]byte(msg.Payload))
		}
	}
}
