package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/pawnshop/backoffice/internal/audit"
	"github.com/pawnshop/backoffice/internal/platform/db"
	"github.com/pawnshop/backoffice/internal/rbac"
	"github.com/pawnshop/backoffice/internal/shared"
)

const idempotencyModule = "users.permissions"

// Pool runs queries and opens transactions; *pgxpool.Pool satisfies it.
type Pool interface {
	db.DBTX
	db.TxBeginner
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool  Pool
	audit *shared.AuditLogger
	idem  *shared.IdempotencyStore
}

// NewRepository constructs a repository.
func NewRepository(pool Pool) *Repository {
	return &Repository{
		pool:  pool,
		audit: shared.NewAuditLogger(pool),
		idem:  shared.NewIdempotencyStore(pool),
	}
}

const userColumns = `u.id, u.email, u.name, u.is_active, u.role_id, COALESCE(r.name, ''), u.created_at, u.updated_at`

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users u LEFT JOIN roles r ON r.id = u.role_id ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser loads one user.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// SavePermissions replaces the role and overrides of a user in one
// transaction and records the change in the audit log.
func (r *Repository) SavePermissions(ctx context.Context, change PermissionChange) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if change.IdempotencyKey != "" {
			if err := r.idem.WithConn(tx).CheckAndInsert(ctx, change.IdempotencyKey, idempotencyModule); err != nil {
				if errors.Is(err, shared.ErrIdempotencyConflict) {
					return ErrDuplicateRequest
				}
				return err
			}
		}

		var previous *int64
		err := tx.QueryRow(ctx, `SELECT role_id FROM users WHERE id = $1 FOR UPDATE`, change.UserID).Scan(&previous)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`, change.UserID, change.RoleID); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_permission_overrides WHERE user_id = $1`, change.UserID); err != nil {
			return fmt.Errorf("clear overrides: %w", err)
		}
		rows := overrideRows(change)
		if len(rows) > 0 {
			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"user_permission_overrides"},
				[]string{"user_id", "permission_id", "kind"},
				pgx.CopyFromRows(rows),
			); err != nil {
				return fmt.Errorf("insert overrides: %w", err)
			}
		}

		return r.audit.WithConn(tx).Record(ctx, shared.AuditLog{
			ActorID:  change.ActorID,
			Action:   audit.ActionPermissionsSave,
			Entity:   audit.EntityUser,
			EntityID: strconv.FormatInt(change.UserID, 10),
			Meta: map[string]any{
				"change_id":        change.ChangeID,
				"role_id":          change.RoleID,
				"previous_role_id": previous,
				"granted":          change.Granted,
				"revoked":          change.Revoked,
			},
		})
	})
}

func overrideRows(change PermissionChange) [][]any {
	rows := make([][]any, 0, len(change.Granted)+len(change.Revoked))
	for _, id := range change.Granted {
		rows = append(rows, []any{change.UserID, id, rbac.OverrideGranted})
	}
	for _, id := range change.Revoked {
		rows = append(rows, []any{change.UserID, id, rbac.OverrideRevoked})
	}
	return rows
}
