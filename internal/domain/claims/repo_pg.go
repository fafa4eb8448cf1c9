package claims

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

// =========== Charge Repository ===========

type chargeRepoPG struct{ pool *pgxpool.Pool }

func NewChargeRepoPG(pool *pgxpool.Pool) ChargeRepository { return &chargeRepoPG{pool: pool} }

const chargeCols = `id, patient_id, service_type, service_code, description, amount,
	quantity, status, claim_id, item_id, created_at`

func scanCharge(row pgx.Row) (*Charge, error) {
	var c Charge
	err := row.Scan(&c.ID, &c.PatientID, &c.ServiceType, &c.ServiceCode, &c.Description,
		&c.Amount, &c.Quantity, &c.Status, &c.ClaimID, &c.ItemID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *chargeRepoPG) Create(ctx context.Context, c *Charge) error {
	c.ID = uuid.New()
	_, err := resolveConn(ctx, r.pool).Exec(ctx, `
		INSERT INTO charges (id, patient_id, service_type, service_code, description,
			amount, quantity, status, item_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.PatientID, c.ServiceType, c.ServiceCode, c.Description,
		c.Amount, c.Quantity, c.Status, c.ItemID)
	return err
}

func (r *chargeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Charge, error) {
	return scanCharge(resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+chargeCols+` FROM charges WHERE id = $1`, id))
}

func (r *chargeRepoPG) ListPending(ctx context.Context, patientID uuid.UUID) ([]*Charge, error) {
	rows, err := resolveConn(ctx, r.pool).Query(ctx, `
		SELECT `+chargeCols+` FROM charges
		WHERE patient_id = $1 AND status = $2 AND claim_id IS NULL
		ORDER BY created_at`, patientID, ChargeStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *chargeRepoPG) AssignToClaim(ctx context.Context, chargeID, claimID uuid.UUID) error {
	tag, err := resolveConn(ctx, r.pool).Exec(ctx, `
		UPDATE charges SET claim_id = $2, status = $3 WHERE id = $1`,
		chargeID, claimID, ChargeStatusClaimed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

const claimCols = `id, claim_number, insurance_plan_id, patient_id, status, total_amount,
	insurance_amount, patient_amount, vetted_by, vetted_at, submitted_at,
	rejection_reason, created_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.ClaimNumber, &c.InsurancePlanID, &c.PatientID, &c.Status,
		&c.TotalAmount, &c.InsuranceAmount, &c.PatientAmount, &c.VettedBy, &c.VettedAt,
		&c.SubmittedAt, &c.RejectionReason, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	_, err := resolveConn(ctx, r.pool).Exec(ctx, `
		INSERT INTO insurance_claims (id, claim_number, insurance_plan_id, patient_id,
			status, total_amount, insurance_amount, patient_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.ClaimNumber, c.InsurancePlanID, c.PatientID,
		c.Status, c.TotalAmount, c.InsuranceAmount, c.PatientAmount)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+claimCols+` FROM insurance_claims WHERE id = $1`, id))
}

func (r *claimRepoPG) List(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	var total int
	if err := resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM insurance_claims`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := resolveConn(ctx, r.pool).Query(ctx, `
		SELECT `+claimCols+` FROM insurance_claims
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	tag, err := resolveConn(ctx, r.pool).Exec(ctx, `
		UPDATE insurance_claims SET
			status = $2, total_amount = $3, insurance_amount = $4, patient_amount = $5,
			vetted_by = $6, vetted_at = $7, submitted_at = $8, rejection_reason = $9,
			updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.Status, c.TotalAmount, c.InsuranceAmount, c.PatientAmount,
		c.VettedBy, c.VettedAt, c.SubmittedAt, c.RejectionReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *claimRepoPG) AddItem(ctx context.Context, item *ClaimItem) error {
	item.ID = uuid.New()
	_, err := resolveConn(ctx, r.pool).Exec(ctx, `
		INSERT INTO insurance_claim_items (id, claim_id, charge_id, item_type, item_code,
			description, quantity, unit_price, subtotal, insurance_pays, patient_pays,
			is_covered, is_unmapped, has_flexible_copay, coverage_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		item.ID, item.ClaimID, item.ChargeID, item.ItemType, item.ItemCode,
		item.Description, item.Quantity, item.UnitPrice, item.Subtotal,
		item.InsurancePays, item.PatientPays, item.IsCovered, item.IsUnmapped,
		item.HasFlexibleCopay, item.CoverageType)
	return err
}

func (r *claimRepoPG) ListItems(ctx context.Context, claimID uuid.UUID) ([]*ClaimItem, error) {
	rows, err := resolveConn(ctx, r.pool).Query(ctx, `
		SELECT id, claim_id, charge_id, item_type, item_code, description, quantity,
			unit_price, subtotal, insurance_pays, patient_pays, is_covered,
			is_unmapped, has_flexible_copay, coverage_type, created_at
		FROM insurance_claim_items WHERE claim_id = $1 ORDER BY created_at`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ClaimItem
	for rows.Next() {
		var item ClaimItem
		if err := rows.Scan(&item.ID, &item.ClaimID, &item.ChargeID, &item.ItemType,
			&item.ItemCode, &item.Description, &item.Quantity, &item.UnitPrice,
			&item.Subtotal, &item.InsurancePays, &item.PatientPays, &item.IsCovered,
			&item.IsUnmapped, &item.HasFlexibleCopay, &item.CoverageType, &item.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}
