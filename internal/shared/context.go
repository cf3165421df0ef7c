package shared

import "context"

type actorContextKey struct{}

// Actor identifies the authenticated back-office user performing a request.
// Authentication happens upstream; the gateway forwards the user id.
type Actor struct {
	UserID int64
}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.UserID <= 0 {
		return Actor{}, false
	}
	return actor, true
}
