package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type recorderPG struct{ pool *pgxpool.Pool }

func NewRecorderPG(pool *pgxpool.Pool) Recorder { return &recorderPG{pool: pool} }

func (r *recorderPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const logCols = `id, item_type, item_id, item_code, field_changed, insurance_plan_id,
	old_value, new_value, changed_by, created_at`

func (r *recorderPG) scan(row pgx.Row) (*ChangeLog, error) {
	var e ChangeLog
	err := row.Scan(&e.ID, &e.ItemType, &e.ItemID, &e.ItemCode, &e.FieldChanged, &e.InsurancePlanID,
		&e.OldValue, &e.NewValue, &e.ChangedBy, &e.CreatedAt)
	return &e, err
}

func (r *recorderPG) Record(ctx context.Context, entry *ChangeLog) error {
	entry.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pricing_change_logs (id, item_type, item_id, item_code, field_changed,
			insurance_plan_id, old_value, new_value, changed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.ID, entry.ItemType, entry.ItemID, entry.ItemCode, entry.FieldChanged,
		entry.InsurancePlanID, entry.OldValue, entry.NewValue, entry.ChangedBy)
	return err
}

func (r *recorderPG) ListByItem(ctx context.Context, itemType string, itemID uuid.UUID, limit, offset int) ([]*ChangeLog, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM pricing_change_logs WHERE item_type = $1 AND item_id = $2`,
		itemType, itemID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+logCols+` FROM pricing_change_logs
		 WHERE item_type = $1 AND item_id = $2
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		itemType, itemID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []*ChangeLog
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *recorderPG) ListRecent(ctx context.Context, limit, offset int) ([]*ChangeLog, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM pricing_change_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+logCols+` FROM pricing_change_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []*ChangeLog
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
