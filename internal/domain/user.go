package domain

import (
	"github.com/google/uuid"
)

// User represents the authenticated caller
// Built from access token claims, never stored by this service
type User struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}
