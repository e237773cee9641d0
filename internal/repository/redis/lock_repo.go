package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/pkg/logger"
)

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockClient is the part of the Redis client the lock needs
type LockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// LockRepository implements meeting.Guard with Redis SET NX locks
type LockRepository struct {
	client LockClient
	ttl    time.Duration
}

// NewLockRepository creates a lock repository.
// ttl bounds how long a crashed holder can block its key.
func NewLockRepository(client LockClient, ttl time.Duration) *LockRepository {
	return &LockRepository{client: client, ttl: ttl}
}

// Acquire takes the lock or returns meeting.ErrCreationInProgress
func (r *LockRepository) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	lockKey := fmt.Sprintf("lock:%s", key)

	ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, meeting.ErrCreationInProgress
	}

	return func() {
		// The request context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{lockKey}, token).Err(); err != nil {
			logger.Warn("Failed to release lock",
				zap.String("key", lockKey),
				zap.Error(err))
		}
	}, nil
}
