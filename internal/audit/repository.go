package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pawnshop/backoffice/internal/platform/db"
)

// PgRepository membaca audit_logs lewat pgx.
type PgRepository struct {
	conn db.DBTX
}

// NewRepository membuat repository audit.
func NewRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{conn: conn}
}

const timelineWindowSQL = `
SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3::bigint IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR entity_id = $5)
  AND ($6::text IS NULL OR action = $6)
ORDER BY occurred_at DESC, id DESC
OFFSET $7 LIMIT $8`

// TimelineWindow returns one page of audit rows, newest first.
func (r *PgRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	rows, err := r.conn.Query(ctx, timelineWindowSQL,
		arg.FromAt, arg.ToAt, arg.ActorID, arg.Entity, arg.EntityID, arg.Action,
		arg.OffsetRows, arg.LimitRows,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			meta []byte
		)
		if err := row.Scan(&out.At, &out.ActorID, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return TimelineRow{}, fmt.Errorf("decode meta: %w", err)
			}
		}
		return out, nil
	})
}
