package roles

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a role does not exist.
var ErrNotFound = errors.New("roles: role not found")

// Role represents a role a user can be assigned.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
