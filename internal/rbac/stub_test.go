package rbac

import (
	"context"

	"github.com/pawnshop/backoffice/internal/permissions"
)

type stubStore struct {
	records     []PermissionRecord
	roles       map[int64][]permissions.RolePermissionFlag
	assignments map[int64]Assignment

	catalogCalls int
	roleCalls    map[int64]int
}

func newStubStore() *stubStore {
	return &stubStore{
		records: []PermissionRecord{
			{ID: "pledge.create", Module: "pledge", Name: "Create pledge"},
			{ID: "pledge.view", Module: "pledge", Name: "View pledges"},
			{ID: "reports.export", Module: "reports", Name: "Export reports"},
			{ID: "users.edit", Module: "users", Name: "Manage users"},
			{ID: "users.view", Module: "users", Name: "View users"},
		},
		roles: map[int64][]permissions.RolePermissionFlag{
			1: {{ID: "pledge.create", Enabled: true}, {ID: "pledge.view", Enabled: true}, {ID: "reports.export", Enabled: false}},
			2: {{ID: "users.view", Enabled: true}, {ID: "users.edit", Enabled: true}},
		},
		assignments: map[int64]Assignment{},
		roleCalls:   map[int64]int{},
	}
}

func (s *stubStore) ListPermissions(ctx context.Context) ([]PermissionRecord, error) {
	s.catalogCalls++
	return s.records, nil
}

func (s *stubStore) RolePermissions(ctx context.Context, roleID int64) ([]permissions.RolePermissionFlag, error) {
	s.roleCalls[roleID]++
	flags, ok := s.roles[roleID]
	if !ok {
		return nil, ErrNotFound
	}
	return flags, nil
}

func (s *stubStore) ListRoleIDs(ctx context.Context) ([]int64, error) {
	return []int64{1, 2}, nil
}

func (s *stubStore) UserAssignment(ctx context.Context, userID int64) (Assignment, error) {
	a, ok := s.assignments[userID]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	return a, nil
}

func roleRef(id int64) *int64 { return &id }
