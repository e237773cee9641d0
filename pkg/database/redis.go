package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meetdesk-backend/pkg/logger"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// RedisDB wraps the Redis client and tracks its health
type RedisDB struct {
	Client *redis.Client

	mu       sync.RWMutex
	degraded bool
}

// NewRedisDB creates a new Redis client. It does not fail when Redis is down;
// the health check reports that instead.
func NewRedisDB(config *RedisConfig) *RedisDB {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.Timeout,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
		MaxRetries:   3,
	})

	return &RedisDB{Client: client}
}

// Close closes the Redis connection
func (db *RedisDB) Close() error {
	return db.Client.Close()
}

// IsDegraded reports whether the last health check failed
func (db *RedisDB) IsDegraded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.degraded
}

// HealthCheck pings Redis and updates the degraded flag
func (db *RedisDB) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := db.Client.Ping(healthCtx).Err()

	db.mu.Lock()
	changed := db.degraded != (err != nil)
	db.degraded = err != nil
	db.mu.Unlock()

	if changed {
		if err != nil {
			logger.Warn("Redis entered degraded mode", zap.Error(err))
		} else {
			logger.Info("Redis recovered")
		}
	}

	if err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// RunHealthCheck checks Redis every interval until ctx is done
func (db *RedisDB) RunHealthCheck(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = db.HealthCheck(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = db.HealthCheck(ctx)
		}
	}
}
