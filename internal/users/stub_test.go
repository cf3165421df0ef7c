package users

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/rbac"
)

type stubRepo struct {
	mu      sync.Mutex
	users   map[int64]User
	changes []PermissionChange
	seen    map[string]bool
	saveErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users: map[int64]User{
			7: {ID: 7, Email: "sari@pawn.test", Name: "Sari", IsActive: true},
			8: {ID: 8, Email: "budi@pawn.test", Name: "Budi", IsActive: true},
		},
		seen: map[string]bool{},
	}
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]User, error) {
	return []User{s.users[7], s.users[8]}, nil
}

func (s *stubRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) SavePermissions(ctx context.Context, change PermissionChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if change.IdempotencyKey != "" {
		if s.seen[change.IdempotencyKey] {
			return ErrDuplicateRequest
		}
		s.seen[change.IdempotencyKey] = true
	}
	s.changes = append(s.changes, change)
	return nil
}

type stubPerms struct {
	catalog     *permissions.Catalog
	roles       map[int64][]string
	assignments map[int64]rbac.Assignment
}

func newStubPerms() *stubPerms {
	return &stubPerms{
		catalog: permissions.NewCatalog([]permissions.Module{
			{Name: "pledge", Permissions: []permissions.Permission{
				{ID: "pledge.create", Name: "Create pledge"},
				{ID: "pledge.view", Name: "View pledges"},
				{ID: "pledge.renew", Name: "Renew pledge"},
			}},
			{Name: "reports", Permissions: []permissions.Permission{
				{ID: "reports.view", Name: "View reports"},
				{ID: "reports.export", Name: "Export reports"},
			}},
		}),
		roles: map[int64][]string{
			1: {"pledge.create", "pledge.view"},
			2: {"pledge.view", "pledge.renew", "reports.view"},
		},
		assignments: map[int64]rbac.Assignment{},
	}
}

func (s *stubPerms) Catalog(ctx context.Context) (*permissions.Catalog, error) {
	return s.catalog, nil
}

func (s *stubPerms) RoleBaseline(ctx context.Context, roleID int64) (*permissions.RoleBaseline, error) {
	ids, ok := s.roles[roleID]
	if !ok {
		return nil, rbac.ErrNotFound
	}
	return permissions.NewRoleBaseline(roleID, ids...), nil
}

func (s *stubPerms) UserAssignment(ctx context.Context, userID int64) (rbac.Assignment, error) {
	a, ok := s.assignments[userID]
	if !ok {
		return rbac.Assignment{}, rbac.ErrNotFound
	}
	return a, nil
}

type countingObserver map[string]int

func (c countingObserver) PermissionSave(result string) { c[result]++ }

func newTestService(repo RepositoryPort, perms PermissionSource) *Service {
	svc := NewService(repo, perms, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n := 0
	svc.newID = func() string {
		n++
		return "change-" + string(rune('0'+n))
	}
	return svc
}

func roleRef(id int64) *int64 { return &id }

func boolRef(b bool) *bool { return &b }
