package nhis

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type TariffRepository interface {
	Create(ctx context.Context, t *Tariff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error)
	GetByCode(ctx context.Context, code string) (*Tariff, error)
	UpdatePrice(ctx context.Context, id uuid.UUID, price float64) error
	List(ctx context.Context, limit, offset int) ([]*Tariff, int, error)
}

type MappingRepository interface {
	Create(ctx context.Context, m *ItemMapping) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetForItem(ctx context.Context, itemType string, itemID uuid.UUID) (*ItemMapping, error)
	// TariffForItem resolves the active tariff for an item through its
	// active mapping. Returns (nil, nil) when the item is unmapped.
	TariffForItem(ctx context.Context, itemType string, itemID uuid.UUID) (*Tariff, error)
	// MappedTariffs returns the live tariff for every actively mapped
	// item, keyed by MappingKey.
	MappedTariffs(ctx context.Context) (map[string]*MappedTariff, error)
}
