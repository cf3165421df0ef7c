package permissions

import "errors"

var (
	// ErrUnknownPermission is returned when an edit targets an id outside the catalog.
	ErrUnknownPermission = errors.New("permissions: unknown permission")
	// ErrSessionClosed is returned when a saved or discarded session is edited.
	ErrSessionClosed = errors.New("permissions: edit session closed")
	// ErrNoRoleSelected is returned when an operation requires a role assignment.
	ErrNoRoleSelected = errors.New("permissions: no role selected")
)
