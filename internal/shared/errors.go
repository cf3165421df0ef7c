package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoActor occurs when a request reaches a guarded route without an actor.
	ErrNoActor = errors.New("actor missing from request")
)
