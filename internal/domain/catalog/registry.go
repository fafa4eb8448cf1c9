package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Registry dispatches pricing operations to the store for a given item
// type. It replaces per-callsite type switches with a single capability
// lookup.
type Registry struct {
	stores map[ItemType]Store
}

func NewRegistry(stores ...Store) *Registry {
	m := make(map[ItemType]Store, len(stores))
	for _, s := range stores {
		m[s.Type()] = s
	}
	return &Registry{stores: m}
}

// Resolve returns the store for the given item type.
func (r *Registry) Resolve(t ItemType) (Store, error) {
	s, ok := r.stores[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidItemType, t)
	}
	return s, nil
}

// ListActiveAll returns the active items of every variant, in variant
// precedence order.
func (r *Registry) ListActiveAll(ctx context.Context) ([]*Item, error) {
	var all []*Item
	for _, t := range AllItemTypes {
		s, ok := r.stores[t]
		if !ok {
			continue
		}
		items, err := s.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s items: %w", t, err)
		}
		all = append(all, items...)
	}
	return all, nil
}

// FindByCodeAny looks a code up across every variant in precedence order
// (drug, lab, consultation, procedure) and returns the first match.
// Codes are not expected to collide across variants.
func (r *Registry) FindByCodeAny(ctx context.Context, code string) (*Item, error) {
	for _, t := range AllItemTypes {
		s, ok := r.stores[t]
		if !ok {
			continue
		}
		item, err := s.FindByCode(ctx, code)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// GetByID resolves the store for the type and fetches the item.
func (r *Registry) GetByID(ctx context.Context, t ItemType, id uuid.UUID) (*Item, error) {
	s, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}
