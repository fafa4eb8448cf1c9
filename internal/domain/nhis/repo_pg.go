package nhis

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

// =========== Tariff Repository ===========

type tariffRepoPG struct{ pool *pgxpool.Pool }

func NewTariffRepoPG(pool *pgxpool.Pool) TariffRepository { return &tariffRepoPG{pool: pool} }

const tariffCols = `id, nhis_code, name, price, is_active, created_at, updated_at`

func scanTariff(row pgx.Row) (*Tariff, error) {
	var t Tariff
	err := row.Scan(&t.ID, &t.NhisCode, &t.Name, &t.Price, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tariffRepoPG) Create(ctx context.Context, t *Tariff) error {
	t.ID = uuid.New()
	_, err := resolveConn(ctx, r.pool).Exec(ctx, `
		INSERT INTO nhis_tariffs (id, nhis_code, name, price, is_active)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.NhisCode, t.Name, t.Price, t.IsActive)
	return err
}

func (r *tariffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	return scanTariff(resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+tariffCols+` FROM nhis_tariffs WHERE id = $1`, id))
}

func (r *tariffRepoPG) GetByCode(ctx context.Context, code string) (*Tariff, error) {
	return scanTariff(resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+tariffCols+` FROM nhis_tariffs WHERE nhis_code = $1`, code))
}

func (r *tariffRepoPG) UpdatePrice(ctx context.Context, id uuid.UUID, price float64) error {
	tag, err := resolveConn(ctx, r.pool).Exec(ctx,
		`UPDATE nhis_tariffs SET price = $2, updated_at = NOW() WHERE id = $1`, id, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tariffRepoPG) List(ctx context.Context, limit, offset int) ([]*Tariff, int, error) {
	var total int
	if err := resolveConn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM nhis_tariffs`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := resolveConn(ctx, r.pool).Query(ctx,
		`SELECT `+tariffCols+` FROM nhis_tariffs ORDER BY nhis_code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var tariffs []*Tariff
	for rows.Next() {
		t, err := scanTariff(rows)
		if err != nil {
			return nil, 0, err
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, total, rows.Err()
}

// =========== Mapping Repository ===========

type mappingRepoPG struct{ pool *pgxpool.Pool }

func NewMappingRepoPG(pool *pgxpool.Pool) MappingRepository { return &mappingRepoPG{pool: pool} }

const mappingCols = `id, item_type, item_id, item_code, nhis_tariff_id, is_active, created_at`

func scanMapping(row pgx.Row) (*ItemMapping, error) {
	var m ItemMapping
	err := row.Scan(&m.ID, &m.ItemType, &m.ItemID, &m.ItemCode, &m.NhisTariffID, &m.IsActive, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepoPG) Create(ctx context.Context, m *ItemMapping) error {
	m.ID = uuid.New()
	_, err := resolveConn(ctx, r.pool).Exec(ctx, `
		INSERT INTO nhis_item_mappings (id, item_type, item_id, item_code, nhis_tariff_id, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.ItemType, m.ItemID, m.ItemCode, m.NhisTariffID, m.IsActive)
	return err
}

func (r *mappingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := resolveConn(ctx, r.pool).Exec(ctx, `DELETE FROM nhis_item_mappings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mappingRepoPG) GetForItem(ctx context.Context, itemType string, itemID uuid.UUID) (*ItemMapping, error) {
	return scanMapping(resolveConn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+mappingCols+` FROM nhis_item_mappings WHERE item_type = $1 AND item_id = $2`,
		itemType, itemID))
}

func (r *mappingRepoPG) TariffForItem(ctx context.Context, itemType string, itemID uuid.UUID) (*Tariff, error) {
	row := resolveConn(ctx, r.pool).QueryRow(ctx, `
		SELECT t.id, t.nhis_code, t.name, t.price, t.is_active, t.created_at, t.updated_at
		FROM nhis_item_mappings m
		JOIN nhis_tariffs t ON t.id = m.nhis_tariff_id
		WHERE m.item_type = $1 AND m.item_id = $2 AND m.is_active AND t.is_active`,
		itemType, itemID)
	t, err := scanTariff(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (r *mappingRepoPG) MappedTariffs(ctx context.Context) (map[string]*MappedTariff, error) {
	rows, err := resolveConn(ctx, r.pool).Query(ctx, `
		SELECT m.item_type, m.item_id, t.nhis_code, t.price
		FROM nhis_item_mappings m
		JOIN nhis_tariffs t ON t.id = m.nhis_tariff_id
		WHERE m.is_active AND t.is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*MappedTariff)
	for rows.Next() {
		var itemType string
		var itemID uuid.UUID
		var mt MappedTariff
		if err := rows.Scan(&itemType, &itemID, &mt.NhisCode, &mt.Price); err != nil {
			return nil, err
		}
		out[MappingKey(itemType, itemID)] = &mt
	}
	return out, rows.Err()
}
