package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pawnshop/backoffice/internal/platform/db"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	conn db.DBTX
}

// NewAuditLogger returns a new AuditLogger writing through conn.
func NewAuditLogger(conn db.DBTX) *AuditLogger {
	return &AuditLogger{conn: conn}
}

// WithConn returns a logger that writes through conn, typically a transaction.
func (l *AuditLogger) WithConn(conn db.DBTX) *AuditLogger {
	return &AuditLogger{conn: conn}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.conn == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.conn.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
