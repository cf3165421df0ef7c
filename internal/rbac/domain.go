package rbac

import (
	"errors"

	"github.com/pawnshop/backoffice/internal/permissions"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// PermissionRecord is one row of the permission catalog as stored.
type PermissionRecord struct {
	ID     string
	Module string
	Name   string
}

// Assignment is a user's stored role and override lists. RoleID is nil while
// the user has no role.
type Assignment struct {
	UserID  int64
	RoleID  *int64
	Granted []string
	Revoked []string
}

// Overrides converts the stored lists into an override set.
func (a Assignment) Overrides() permissions.OverrideSet {
	return permissions.NewOverrideSet(a.Granted, a.Revoked)
}

func catalogFromRecords(records []PermissionRecord) *permissions.Catalog {
	var groups []permissions.Module
	pos := map[string]int{}
	for _, rec := range records {
		i, ok := pos[rec.Module]
		if !ok {
			i = len(groups)
			pos[rec.Module] = i
			groups = append(groups, permissions.Module{Name: rec.Module})
		}
		groups[i].Permissions = append(groups[i].Permissions, permissions.Permission{ID: rec.ID, Module: rec.Module, Name: rec.Name})
	}
	return permissions.NewCatalog(groups)
}
