package nhis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	tariffs  TariffRepository
	mappings MappingRepository
}

func NewService(tariffs TariffRepository, mappings MappingRepository) *Service {
	return &Service{tariffs: tariffs, mappings: mappings}
}

func (s *Service) CreateTariff(ctx context.Context, t *Tariff) error {
	if t.NhisCode == "" {
		return fmt.Errorf("nhis code is required")
	}
	if t.Name == "" {
		return fmt.Errorf("tariff name is required")
	}
	if t.Price < 0 {
		return fmt.Errorf("tariff price cannot be negative")
	}
	if err := s.tariffs.Create(ctx, t); err != nil {
		return fmt.Errorf("create tariff: %w", err)
	}
	log.Info().Str("nhis_code", t.NhisCode).Float64("price", t.Price).Msg("tariff created")
	return nil
}

func (s *Service) GetTariff(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	return s.tariffs.GetByID(ctx, id)
}

func (s *Service) ListTariffs(ctx context.Context, limit, offset int) ([]*Tariff, int, error) {
	return s.tariffs.List(ctx, limit, offset)
}

func (s *Service) UpdateTariffPrice(ctx context.Context, id uuid.UUID, price float64) error {
	if price < 0 {
		return fmt.Errorf("tariff price cannot be negative")
	}
	return s.tariffs.UpdatePrice(ctx, id, price)
}

// MapItem links an item to a tariff. An item carries at most one active
// mapping, so a second map attempt for the same item is rejected.
func (s *Service) MapItem(ctx context.Context, itemType string, itemID uuid.UUID, itemCode string, tariffID uuid.UUID) (*ItemMapping, error) {
	if _, err := s.tariffs.GetByID(ctx, tariffID); err != nil {
		return nil, fmt.Errorf("tariff %s: %w", tariffID, err)
	}
	existing, err := s.mappings.GetForItem(ctx, itemType, itemID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("item %s/%s is already mapped", itemType, itemID)
	}

	m := &ItemMapping{
		ItemType:     itemType,
		ItemID:       itemID,
		ItemCode:     itemCode,
		NhisTariffID: tariffID,
		IsActive:     true,
	}
	if err := s.mappings.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create mapping: %w", err)
	}
	log.Info().
		Str("item_type", itemType).
		Str("item_code", itemCode).
		Str("tariff_id", tariffID.String()).
		Msg("item mapped to tariff")
	return m, nil
}

func (s *Service) UnmapItem(ctx context.Context, itemType string, itemID uuid.UUID) error {
	m, err := s.mappings.GetForItem(ctx, itemType, itemID)
	if err != nil {
		return err
	}
	return s.mappings.Delete(ctx, m.ID)
}

// TariffForItem returns the live tariff an item resolves to, or nil when
// the item has no active mapping.
func (s *Service) TariffForItem(ctx context.Context, itemType string, itemID uuid.UUID) (*Tariff, error) {
	return s.mappings.TariffForItem(ctx, itemType, itemID)
}

func (s *Service) MappedTariffs(ctx context.Context) (map[string]*MappedTariff, error) {
	return s.mappings.MappedTariffs(ctx)
}
