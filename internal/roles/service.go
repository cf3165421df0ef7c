package roles

import (
	"context"
	"errors"

	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/rbac"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
}

// FlagSource returns the stored permission flags of a role.
type FlagSource interface {
	RolePermissionFlags(ctx context.Context, roleID int64) ([]permissions.RolePermissionFlag, error)
}

// RefreshEnqueuer schedules a baseline refresh for a role.
type RefreshEnqueuer interface {
	EnqueueRoleBaselineRefresh(ctx context.Context, roleID int64) error
}

// Service handles role business logic.
type Service struct {
	repo    RepositoryPort
	flags   FlagSource
	refresh RefreshEnqueuer
}

// NewService builds Service instance. refresh may be nil when no job queue is configured.
func NewService(repo RepositoryPort, flags FlagSource, refresh RefreshEnqueuer) *Service {
	return &Service{repo: repo, flags: flags, refresh: refresh}
}

// ErrRefreshUnavailable is returned when no job queue is configured.
var ErrRefreshUnavailable = errors.New("roles: baseline refresh unavailable")

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []Role{}
	}
	return roles, nil
}

// GetRole returns one role.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// RolePermissions returns the role with its permission flags, in the
// inbound shape the editor consumes.
func (s *Service) RolePermissions(ctx context.Context, id int64) (Role, []permissions.RolePermissionFlag, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	flags, err := s.flags.RolePermissionFlags(ctx, id)
	if errors.Is(err, rbac.ErrNotFound) {
		return Role{}, nil, ErrNotFound
	}
	if err != nil {
		return Role{}, nil, err
	}
	if flags == nil {
		flags = []permissions.RolePermissionFlag{}
	}
	return role, flags, nil
}

// RequestRefresh enqueues a baseline refresh. id 0 refreshes every role.
func (s *Service) RequestRefresh(ctx context.Context, id int64) error {
	if s.refresh == nil {
		return ErrRefreshUnavailable
	}
	if id != 0 {
		if _, err := s.repo.GetRole(ctx, id); err != nil {
			return err
		}
	}
	return s.refresh.EnqueueRoleBaselineRefresh(ctx, id)
}
