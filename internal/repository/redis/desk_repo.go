package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"meetdesk-backend/internal/domain"
)

// DeskRepository stores desk sessions in Redis
type DeskRepository struct {
	client *redis.Client
}

// NewDeskRepository creates a new DeskRepository
func NewDeskRepository(client *redis.Client) *DeskRepository {
	return &DeskRepository{client: client}
}

func deskKey(userID uuid.UUID) string {
	return fmt.Sprintf("desk:%s", userID)
}

// maxUpdateAttempts bounds optimistic retries when another writer changes the desk
const maxUpdateAttempts = 10

// ErrDeskContended is returned when a desk kept changing under an update
var ErrDeskContended = errors.New("desk changed concurrently too often")

// Get retrieves the desk of a user, nil if none is stored
func (r *DeskRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.DeskSession, error) {
	return decodeDesk(r.client.Get(ctx, deskKey(userID)))
}

// Update applies a change to the stored desk under WATCH and refreshes its TTL.
// apply runs again on the fresh desk when another writer commits first.
func (r *DeskRepository) Update(ctx context.Context, userID uuid.UUID, ttl time.Duration, apply func(stored *domain.DeskSession) *domain.DeskSession) error {
	key := deskKey(userID)

	txf := func(tx *redis.Tx) error {
		stored, err := decodeDesk(tx.Get(ctx, key))
		if err != nil {
			return err
		}

		data, err := json.Marshal(apply(stored))
		if err != nil {
			return fmt.Errorf("failed to marshal desk: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("failed to save desk: %w", err)
		}
	}

	return ErrDeskContended
}

func decodeDesk(cmd *redis.StringCmd) (*domain.DeskSession, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get desk: %w", err)
	}

	var session domain.DeskSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal desk: %w", err)
	}

	return &session, nil
}
