package insurance

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

// =========== Provider Repository ===========

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository { return &providerRepoPG{pool: pool} }

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	_, err := resolveConn(ctx, r.pool).Exec(ctx, `
		INSERT INTO insurance_providers (id, name, is_nhis, is_active)
		VALUES ($1,$2,$3,$4)`,
		p.ID, p.Name, p.IsNHIS, p.IsActive)
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := resolveConn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, is_nhis, is_active, created_at
		FROM insurance_providers WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.IsNHIS, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *providerRepoPG) List(ctx context.Context) ([]*Provider, error) {
	rows, err := resolveConn(ctx, r.pool).Query(ctx, `
		SELECT id, name, is_nhis, is_active, created_at
		FROM insurance_providers WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.IsNHIS, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// =========== Plan Repository ===========

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository { return &planRepoPG{pool: pool} }

const planCols = `p.id, p.provider_id, p.name, pr.is_nhis, p.is_active, p.created_at`

const planSelect = `
	SELECT ` + planCols + `
	FROM insurance_plans p
	JOIN insurance_providers pr ON pr.id = p.provider_id`

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.ProviderID, &p.Name, &p.IsNHIS, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	_, err := resolveConn(ctx, r.pool).Exec(ctx, `
		INSERT INTO insurance_plans (id, provider_id, name, is_active)
		VALUES ($1,$2,$3,$4)`,
		p.ID, p.ProviderID, p.Name, p.IsActive)
	return err
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return scanPlan(resolveConn(ctx, r.pool).QueryRow(ctx, planSelect+` WHERE p.id = $1`, id))
}

func (r *planRepoPG) List(ctx context.Context) ([]*Plan, error) {
	return r.list(ctx, planSelect+` WHERE p.is_active ORDER BY p.name`)
}

func (r *planRepoPG) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*Plan, error) {
	return r.list(ctx, planSelect+` WHERE p.provider_id = $1 AND p.is_active ORDER BY p.name`, providerID)
}

func (r *planRepoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Plan, error) {
	rows, err := resolveConn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =========== Rule Repository ===========

type ruleRepoPG struct{ pool *pgxpool.Pool }

func NewRuleRepoPG(pool *pgxpool.Pool) RuleRepository { return &ruleRepoPG{pool: pool} }

const ruleCols = `id, insurance_plan_id, coverage_category, item_code, item_description,
	is_covered, coverage_type, coverage_value, tariff_amount, patient_copay_amount,
	is_unmapped, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (*CoverageRule, error) {
	var r CoverageRule
	err := row.Scan(&r.ID, &r.InsurancePlanID, &r.CoverageCategory, &r.ItemCode,
		&r.ItemDescription, &r.IsCovered, &r.CoverageType, &r.CoverageValue,
		&r.TariffAmount, &r.PatientCopayAmount, &r.IsUnmapped, &r.IsActive,
		&r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *ruleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CoverageRule, error) {
	return scanRule(resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+ruleCols+` FROM insurance_coverage_rules WHERE id = $1`, id))
}

func (r *ruleRepoPG) FindSpecific(ctx context.Context, planID uuid.UUID, category, itemCode string) (*CoverageRule, error) {
	rule, err := scanRule(resolveConn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+ruleCols+` FROM insurance_coverage_rules
		WHERE insurance_plan_id = $1 AND coverage_category = $2 AND item_code = $3 AND is_active`,
		planID, category, itemCode))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rule, err
}

func (r *ruleRepoPG) FindGeneral(ctx context.Context, planID uuid.UUID, category string) (*CoverageRule, error) {
	rule, err := scanRule(resolveConn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+ruleCols+` FROM insurance_coverage_rules
		WHERE insurance_plan_id = $1 AND coverage_category = $2 AND item_code IS NULL AND is_active`,
		planID, category))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rule, err
}

// Upsert relies on the unique index over (insurance_plan_id,
// coverage_category, item_code) with NULLS NOT DISTINCT, so concurrent
// writers for the same key converge on a single row. An empty item code
// is stored as NULL; the category-wide row must have exactly one spelling
// or FindGeneral misses it.
func (r *ruleRepoPG) Upsert(ctx context.Context, rule *CoverageRule) error {
	if rule.ItemCode != nil && *rule.ItemCode == "" {
		rule.ItemCode = nil
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return resolveConn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO insurance_coverage_rules
			(id, insurance_plan_id, coverage_category, item_code, item_description,
			 is_covered, coverage_type, coverage_value, tariff_amount,
			 patient_copay_amount, is_unmapped, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (insurance_plan_id, coverage_category, item_code)
		DO UPDATE SET
			item_description     = EXCLUDED.item_description,
			is_covered           = EXCLUDED.is_covered,
			coverage_type        = EXCLUDED.coverage_type,
			coverage_value       = EXCLUDED.coverage_value,
			tariff_amount        = EXCLUDED.tariff_amount,
			patient_copay_amount = EXCLUDED.patient_copay_amount,
			is_unmapped          = EXCLUDED.is_unmapped,
			is_active            = EXCLUDED.is_active,
			updated_at           = NOW()
		RETURNING id`,
		rule.ID, rule.InsurancePlanID, rule.CoverageCategory, rule.ItemCode,
		rule.ItemDescription, rule.IsCovered, rule.CoverageType, rule.CoverageValue,
		rule.TariffAmount, rule.PatientCopayAmount, rule.IsUnmapped, rule.IsActive).
		Scan(&rule.ID)
}

func (r *ruleRepoPG) ListByPlan(ctx context.Context, planID uuid.UUID, limit, offset int) ([]*CoverageRule, int, error) {
	var total int
	if err := resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM insurance_coverage_rules WHERE insurance_plan_id = $1 AND is_active`,
		planID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := resolveConn(ctx, r.pool).Query(ctx, `
		SELECT `+ruleCols+` FROM insurance_coverage_rules
		WHERE insurance_plan_id = $1 AND is_active
		ORDER BY coverage_category, item_code NULLS FIRST
		LIMIT $2 OFFSET $3`, planID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*CoverageRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rule)
	}
	return out, total, rows.Err()
}

func (r *ruleRepoPG) RulesForPlan(ctx context.Context, planID uuid.UUID) (map[string]*CoverageRule, error) {
	rows, err := resolveConn(ctx, r.pool).Query(ctx, `
		SELECT `+ruleCols+` FROM insurance_coverage_rules
		WHERE insurance_plan_id = $1 AND is_active`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*CoverageRule)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out[rule.Key()] = rule
	}
	return out, rows.Err()
}

func (r *ruleRepoPG) CountFlexible(ctx context.Context, planID uuid.UUID) (int, error) {
	var n int
	err := resolveConn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM insurance_coverage_rules
		WHERE insurance_plan_id = $1 AND is_unmapped AND patient_copay_amount IS NOT NULL AND is_active`,
		planID).Scan(&n)
	return n, err
}

func (r *ruleRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := resolveConn(ctx, r.pool).Exec(ctx,
		`UPDATE insurance_coverage_rules SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
