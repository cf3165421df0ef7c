package rbac

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/shared"
)

// PermissionChecker returns the effective permission ids of a user.
type PermissionChecker interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service PermissionChecker
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require("rbac require any", hasAnyPermission, perms)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require("rbac require all", hasAllPermissions, perms)
}

func (m Middleware) require(op string, match func(granted, required []string) bool, perms []string) func(http.Handler) http.Handler {
	normalized := permissions.NormalizeIDs(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), actor.UserID)
			if errors.Is(err, ErrNotFound) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error(op, slog.Int64("user_id", actor.UserID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if match(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := grantedSet(granted)
	for _, r := range required {
		if _, ok := set[permissions.FoldID(r)]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := grantedSet(granted)
	for _, r := range required {
		if _, ok := set[permissions.FoldID(r)]; !ok {
			return false
		}
	}
	return true
}

func grantedSet(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[permissions.FoldID(p)] = struct{}{}
	}
	return set
}
