package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("item not found")
	ErrInvalidItemType = errors.New("invalid item type")
)

// Store is the capability set every billable item variant provides to the
// pricing layer. Each variant table gets one implementation; callers
// resolve the right store through the Registry instead of switching on
// the type themselves.
type Store interface {
	Type() ItemType
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	FindByCode(ctx context.Context, code string) (*Item, error)
	ListActive(ctx context.Context) ([]*Item, error)
	UpdatePrice(ctx context.Context, id uuid.UUID, price float64) error
}
