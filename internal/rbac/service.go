package rbac

import (
	"context"
	"errors"

	"github.com/pawnshop/backoffice/internal/permissions"
)

// Store is the persistence port of the RBAC service.
type Store interface {
	ListPermissions(ctx context.Context) ([]PermissionRecord, error)
	RolePermissions(ctx context.Context, roleID int64) ([]permissions.RolePermissionFlag, error)
	ListRoleIDs(ctx context.Context) ([]int64, error)
	UserAssignment(ctx context.Context, userID int64) (Assignment, error)
}

// Service exposes catalog, role baselines and effective permissions.
type Service struct {
	store Store
	cache *BaselineCache
}

// NewService constructs a Service. cache may be nil.
func NewService(store Store, cache *BaselineCache) *Service {
	return &Service{store: store, cache: cache}
}

// Catalog returns the permission catalog snapshot.
func (s *Service) Catalog(ctx context.Context) (*permissions.Catalog, error) {
	records, err := s.cache.Catalog(ctx, s.store.ListPermissions)
	if err != nil {
		return nil, err
	}
	return catalogFromRecords(records), nil
}

// RolePermissionFlags returns the stored flags of a role, bypassing the cache.
func (s *Service) RolePermissionFlags(ctx context.Context, roleID int64) ([]permissions.RolePermissionFlag, error) {
	return s.store.RolePermissions(ctx, roleID)
}

// RoleBaseline returns a read-only snapshot of the permissions roleID confers.
func (s *Service) RoleBaseline(ctx context.Context, roleID int64) (*permissions.RoleBaseline, error) {
	ids, err := s.cache.Baseline(ctx, roleID, func(ctx context.Context) ([]string, error) {
		flags, err := s.store.RolePermissions(ctx, roleID)
		if err != nil {
			return nil, err
		}
		return permissions.BaselineFromFlags(roleID, flags).IDs(), nil
	})
	if err != nil {
		return nil, err
	}
	return permissions.NewRoleBaseline(roleID, ids...), nil
}

// UserAssignment returns the stored role and overrides of a user.
func (s *Service) UserAssignment(ctx context.Context, userID int64) (Assignment, error) {
	return s.store.UserAssignment(ctx, userID)
}

// UserBaseline resolves the baseline of the user's role, nil when unassigned.
func (s *Service) UserBaseline(ctx context.Context, a Assignment) (*permissions.RoleBaseline, error) {
	if a.RoleID == nil {
		return nil, nil
	}
	baseline, err := s.RoleBaseline(ctx, *a.RoleID)
	if errors.Is(err, ErrNotFound) {
		// A dangling role reference resolves like "no role".
		return nil, nil
	}
	return baseline, err
}

// EffectivePermissions recomputes the enabled permission ids of a user from
// the role baseline and stored overrides.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	a, err := s.store.UserAssignment(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	baseline, err := s.UserBaseline(ctx, a)
	if err != nil {
		return nil, err
	}
	return permissions.EffectiveIDs(catalog, baseline, a.Overrides()), nil
}

// RefreshBaselines drops cached snapshots and warms roleID, or every role when
// roleID is 0. It returns the number of baselines reloaded.
func (s *Service) RefreshBaselines(ctx context.Context, roleID int64) (int, error) {
	if err := s.cache.Invalidate(ctx); err != nil {
		return 0, err
	}
	if _, err := s.Catalog(ctx); err != nil {
		return 0, err
	}
	ids := []int64{roleID}
	if roleID == 0 {
		var err error
		if ids, err = s.store.ListRoleIDs(ctx); err != nil {
			return 0, err
		}
	}
	warmed := 0
	for _, id := range ids {
		_, err := s.RoleBaseline(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			continue
		case err != nil:
			return warmed, err
		}
		warmed++
	}
	return warmed, nil
}
