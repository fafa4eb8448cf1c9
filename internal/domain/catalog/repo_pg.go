package catalog

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

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Drug Store ===========

type drugStorePG struct{ pool *pgxpool.Pool }

func NewDrugStorePG(pool *pgxpool.Pool) Store { return &drugStorePG{pool: pool} }

func (s *drugStorePG) Type() ItemType { return ItemTypeDrug }

func (s *drugStorePG) scan(row pgx.Row) (*Item, error) {
	i := Item{Type: ItemTypeDrug}
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.GenericName, &i.Category, &i.CashPrice, &i.IsActive)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &i, nil
}

const drugCols = `id, drug_code, name, generic_name, category, unit_price, is_active`

func (s *drugStorePG) Create(ctx context.Context, item *Item) error {
	item.ID = uuid.New()
	item.Type = ItemTypeDrug
	_, err := resolveConn(ctx, s.pool).Exec(ctx, `
		INSERT INTO drugs (id, drug_code, name, generic_name, category, unit_price, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		item.ID, item.Code, item.Name, item.GenericName, item.Category, item.CashPrice, item.IsActive)
	return err
}

func (s *drugStorePG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.scan(resolveConn(ctx, s.pool).QueryRow(ctx, `SELECT `+drugCols+` FROM drugs WHERE id = $1`, id))
}

func (s *drugStorePG) FindByCode(ctx context.Context, code string) (*Item, error) {
	return s.scan(resolveConn(ctx, s.pool).QueryRow(ctx, `SELECT `+drugCols+` FROM drugs WHERE drug_code = $1`, code))
}

func (s *drugStorePG) ListActive(ctx context.Context) ([]*Item, error) {
	rows, err := resolveConn(ctx, s.pool).Query(ctx, `SELECT `+drugCols+` FROM drugs WHERE is_active ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *drugStorePG) UpdatePrice(ctx context.Context, id uuid.UUID, price float64) error {
	tag, err := resolveConn(ctx, s.pool).Exec(ctx,
		`UPDATE drugs SET unit_price = $2, updated_at = NOW() WHERE id = $1`, id, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Lab Service Store ===========

type labStorePG struct{ pool *pgxpool.Pool }

func NewLabStorePG(pool *pgxpool.Pool) Store { return &labStorePG{pool: pool} }

func (s *labStorePG) Type() ItemType { return ItemTypeLab }

func (s *labStorePG) scan(row pgx.Row) (*Item, error) {
	i := Item{Type: ItemTypeLab}
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.Category, &i.CashPrice, &i.IsActive)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &i, nil
}

const labCols = `id, code, name, category, price, is_active`

func (s *labStorePG) Create(ctx context.Context, item *Item) error {
	item.ID = uuid.New()
	item.Type = ItemTypeLab
	_, err := resolveConn(ctx, s.pool).Exec(ctx, `
		INSERT INTO lab_services (id, code, name, category, price, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		item.ID, item.Code, item.Name, item.Category, item.CashPrice, item.IsActive)
	return err
}

func (s *labStorePG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.scan(resolveConn(ctx, s.pool).QueryRow(ctx, `SELECT `+labCols+` FROM lab_services WHERE id = $1`, id))
}

func (s *labStorePG) FindByCode(ctx context.Context, code string) (*Item, error) {
	return s.scan(resolveConn(ctx, s.pool).QueryRow(ctx, `SELECT `+labCols+` FROM lab_services WHERE code = $1`, code))
}

func (s *labStorePG) ListActive(ctx context.Context) ([]*Item, error) {
	rows, err := resolveConn(ctx, s.pool).Query(ctx, `SELECT `+labCols+` FROM lab_services WHERE is_active ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *labStorePG) UpdatePrice(ctx context.Context, id uuid.UUID, price float64) error {
	tag, err := resolveConn(ctx, s.pool).Exec(ctx,
		`UPDATE lab_services SET price = $2, updated_at = NOW() WHERE id = $1`, id, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Department Billing (Consultation) Store ===========

type consultationStorePG struct{ pool *pgxpool.Pool }

func NewConsultationStorePG(pool *pgxpool.Pool) Store { return &consultationStorePG{pool: pool} }

func (s *consultationStorePG) Type() ItemType { return ItemTypeConsultation }

func (s *consultationStorePG) scan(row pgx.Row) (*Item, error) {
	// Department billings carry no category column; the variant is the category.
	i := Item{Type: ItemTypeConsultation, Category: "consultation"}
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.CashPrice, &i.IsActive)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &i, nil
}

const deptCols = `id, code, name, consultation_fee, is_active`

func (s *consultationStorePG) Create(ctx context.Context, item *Item) error {
	item.ID = uuid.New()
	item.Type = ItemTypeConsultation
	item.Category = "consultation"
	_, err := resolveConn(ctx, s.pool).Exec(ctx, `
		INSERT INTO department_billings (id, code, name, consultation_fee, is_active)
		VALUES ($1,$2,$3,$4,$5)`,
		item.ID, item.Code, item.Name, item.CashPrice, item.IsActive)
	return err
}

func (s *consultationStorePG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.scan(resolveConn(ctx, s.pool).QueryRow(ctx, `SELECT `+deptCols+` FROM department_billings WHERE id = $1`, id))
}

func (s *consultationStorePG) FindByCode(ctx context.Context, code string) (*Item, error) {
	return s.scan(resolveConn(ctx, s.pool).QueryRow(ctx, `SELECT `+deptCols+` FROM department_billings WHERE code = $1`, code))
}

func (s *consultationStorePG) ListActive(ctx context.Context) ([]*Item, error) {
	rows, err := resolveConn(ctx, s.pool).Query(ctx, `SELECT `+deptCols+` FROM department_billings WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *consultationStorePG) UpdatePrice(ctx context.Context, id uuid.UUID, price float64) error {
	tag, err := resolveConn(ctx, s.pool).Exec(ctx,
		`UPDATE department_billings SET consultation_fee = $2, updated_at = NOW() WHERE id = $1`, id, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Minor Procedure Store ===========

type procedureStorePG struct{ pool *pgxpool.Pool }

func NewProcedureStorePG(pool *pgxpool.Pool) Store { return &procedureStorePG{pool: pool} }

func (s *procedureStorePG) Type() ItemType { return ItemTypeProcedure }

func (s *procedureStorePG) scan(row pgx.Row) (*Item, error) {
	i := Item{Type: ItemTypeProcedure}
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.Category, &i.CashPrice, &i.IsActive)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &i, nil
}

const procCols = `id, code, name, category, price, is_active`

func (s *procedureStorePG) Create(ctx context.Context, item *Item) error {
	item.ID = uuid.New()
	item.Type = ItemTypeProcedure
	_, err := resolveConn(ctx, s.pool).Exec(ctx, `
		INSERT INTO minor_procedure_types (id, code, name, category, price, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		item.ID, item.Code, item.Name, item.Category, item.CashPrice, item.IsActive)
	return err
}

func (s *procedureStorePG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.scan(resolveConn(ctx, s.pool).QueryRow(ctx, `SELECT `+procCols+` FROM minor_procedure_types WHERE id = $1`, id))
}

func (s *procedureStorePG) FindByCode(ctx context.Context, code string) (*Item, error) {
	return s.scan(resolveConn(ctx, s.pool).QueryRow(ctx, `SELECT `+procCols+` FROM minor_procedure_types WHERE code = $1`, code))
}

func (s *procedureStorePG) ListActive(ctx context.Context) ([]*Item, error) {
	rows, err := resolveConn(ctx, s.pool).Query(ctx, `SELECT `+procCols+` FROM minor_procedure_types WHERE is_active ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *procedureStorePG) UpdatePrice(ctx context.Context, id uuid.UUID, price float64) error {
	tag, err := resolveConn(ctx, s.pool).Exec(ctx,
		`UPDATE minor_procedure_types SET price = $2, updated_at = NOW() WHERE id = $1`, id, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
