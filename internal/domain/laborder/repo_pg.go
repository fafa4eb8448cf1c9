package laborder

import (
	"context"
	"errors"

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

func resolveConn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const orderCols = `id, patient_id, lab_service_id, service_code, status, is_unpriced,
	ordered_by, notes, completed_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientID, &o.LabServiceID, &o.ServiceCode, &o.Status,
		&o.IsUnpriced, &o.OrderedBy, &o.Notes, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	_, err := resolveConn(ctx, r.pool).Exec(ctx, `
		INSERT INTO lab_orders (id, patient_id, lab_service_id, service_code, status,
			is_unpriced, ordered_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.PatientID, o.LabServiceID, o.ServiceCode, o.Status,
		o.IsUnpriced, o.OrderedBy, o.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return scanOrder(resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+orderCols+` FROM lab_orders WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, o *Order) error {
	tag, err := resolveConn(ctx, r.pool).Exec(ctx, `
		UPDATE lab_orders SET status = $2, notes = $3, completed_at = $4, updated_at = NOW()
		WHERE id = $1`,
		o.ID, o.Status, o.Notes, o.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return r.list(ctx, `patient_id = $1`, patientID, limit, offset)
}

func (r *repoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Order, int, error) {
	return r.list(ctx, `status = $1`, status, limit, offset)
}

func (r *repoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_orders WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := resolveConn(ctx, r.pool).Query(ctx,
		`SELECT `+orderCols+` FROM lab_orders WHERE `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}
