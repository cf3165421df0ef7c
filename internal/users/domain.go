package users

import (
	"errors"
	"time"

	"github.com/pawnshop/backoffice/internal/permissions"
)

var (
	// ErrNotFound is returned when the user does not exist.
	ErrNotFound = errors.New("users: user not found")
	// ErrRoleNotFound is returned when a draft or save references an unknown role.
	ErrRoleNotFound = errors.New("users: role not found")
	// ErrOverlap is returned when a save lists an id as both granted and revoked.
	ErrOverlap = errors.New("users: permission both granted and revoked")
	// ErrValidation marks malformed requests.
	ErrValidation = errors.New("users: validation failed")
	// ErrDuplicateRequest is returned when an Idempotency-Key was already processed.
	ErrDuplicateRequest = errors.New("users: request already processed")
)

// ValidationError lists the offending fields of a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// User represents a back-office user account.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	RoleID    *int64    `json:"role_id"`
	RoleName  string    `json:"role_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PermissionChange is one committed role + override assignment.
type PermissionChange struct {
	ChangeID       string
	ActorID        int64
	UserID         int64
	RoleID         int64
	Granted        []string
	Revoked        []string
	IdempotencyKey string
}

// SaveResult reports what was stored and the permissions it yields.
type SaveResult struct {
	ChangeID          string                        `json:"change_id"`
	UserID            int64                         `json:"user_id"`
	RoleID            int64                         `json:"role_id"`
	CustomPermissions permissions.CustomPermissions `json:"custom_permissions"`
	Unknown           []string                      `json:"unknown,omitempty"`
	Effective         []string                      `json:"effective"`
}
