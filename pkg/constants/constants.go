// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second

	// RedisHealthCheckInterval is the interval between Redis health checks
	RedisHealthCheckInterval = 10 * time.Second

	// AuditLogRetention is how long desk audit events are kept
	AuditLogRetention = 30 * 24 * time.Hour
)

// Connection constants
const (
	// DatabaseConnectRetries is the number of attempts made to reach CockroachDB at startup
	DatabaseConnectRetries = 5

	// MaxWebSocketConnections is the default cap on concurrent notice websockets
	MaxWebSocketConnections = 1000
)

// Input limits
const (
	// MaxDescriptionLength bounds the description stored with a meeting, in runes
	MaxDescriptionLength = 500
)
