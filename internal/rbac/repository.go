package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pawnshop/backoffice/internal/permissions"
	"github.com/pawnshop/backoffice/internal/platform/db"
)

// Repository provides PostgreSQL backed access to permissions, role baselines
// and user overrides.
type Repository struct {
	conn db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{conn: conn}
}

// ListPermissions returns the catalog rows ordered by module then position.
func (r *Repository) ListPermissions(ctx context.Context) ([]PermissionRecord, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, module, name FROM permissions ORDER BY module_position, module, position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []PermissionRecord
	for rows.Next() {
		var rec PermissionRecord
		if err := rows.Scan(&rec.ID, &rec.Module, &rec.Name); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RolePermissions returns the permission flags of a role.
func (r *Repository) RolePermissions(ctx context.Context, roleID int64) ([]permissions.RolePermissionFlag, error) {
	var exists bool
	if err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	rows, err := r.conn.Query(ctx, `SELECT permission_id, enabled FROM role_permissions WHERE role_id = $1 ORDER BY permission_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var flags []permissions.RolePermissionFlag
	for rows.Next() {
		var f permissions.RolePermissionFlag
		if err := rows.Scan(&f.ID, &f.Enabled); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// ListRoleIDs returns every role id.
func (r *Repository) ListRoleIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.conn.Query(ctx, `SELECT id FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UserAssignment loads the stored role and overrides of a user.
func (r *Repository) UserAssignment(ctx context.Context, userID int64) (Assignment, error) {
	a := Assignment{UserID: userID}
	err := r.conn.QueryRow(ctx, `SELECT role_id FROM users WHERE id = $1`, userID).Scan(&a.RoleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	rows, err := r.conn.Query(ctx, `SELECT permission_id, kind FROM user_permission_overrides WHERE user_id = $1 ORDER BY permission_id`, userID)
	if err != nil {
		return Assignment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return Assignment{}, err
		}
		switch kind {
		case OverrideGranted:
			a.Granted = append(a.Granted, id)
		case OverrideRevoked:
			a.Revoked = append(a.Revoked, id)
		}
	}
	return a, rows.Err()
}

// Override kinds stored in user_permission_overrides.kind.
const (
	OverrideGranted = "granted"
	OverrideRevoked = "revoked"
)
