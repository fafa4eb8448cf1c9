package nhis

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockTariffRepo struct {
	tariffs map[uuid.UUID]*Tariff
}

func newMockTariffRepo() *mockTariffRepo {
	return &mockTariffRepo{tariffs: make(map[uuid.UUID]*Tariff)}
}

func (m *mockTariffRepo) Create(ctx context.Context, t *Tariff) error {
	t.ID = uuid.New()
	m.tariffs[t.ID] = t
	return nil
}

func (m *mockTariffRepo) GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	t, ok := m.tariffs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (m *mockTariffRepo) GetByCode(ctx context.Context, code string) (*Tariff, error) {
	for _, t := range m.tariffs {
		if t.NhisCode == code {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockTariffRepo) UpdatePrice(ctx context.Context, id uuid.UUID, price float64) error {
	t, ok := m.tariffs[id]
	if !ok {
		return ErrNotFound
	}
	t.Price = price
	return nil
}

func (m *mockTariffRepo) List(ctx context.Context, limit, offset int) ([]*Tariff, int, error) {
	var out []*Tariff
	for _, t := range m.tariffs {
		out = append(out, t)
	}
	return out, len(out), nil
}

type mockMappingRepo struct {
	mappings map[string]*ItemMapping
	tariffs  *mockTariffRepo
}

func newMockMappingRepo(tariffs *mockTariffRepo) *mockMappingRepo {
	return &mockMappingRepo{mappings: make(map[string]*ItemMapping), tariffs: tariffs}
}

func (m *mockMappingRepo) Create(ctx context.Context, im *ItemMapping) error {
	im.ID = uuid.New()
	m.mappings[MappingKey(im.ItemType, im.ItemID)] = im
	return nil
}

func (m *mockMappingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for k, im := range m.mappings {
		if im.ID == id {
			delete(m.mappings, k)
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockMappingRepo) GetForItem(ctx context.Context, itemType string, itemID uuid.UUID) (*ItemMapping, error) {
	im, ok := m.mappings[MappingKey(itemType, itemID)]
	if !ok {
		return nil, ErrNotFound
	}
	return im, nil
}

func (m *mockMappingRepo) TariffForItem(ctx context.Context, itemType string, itemID uuid.UUID) (*Tariff, error) {
	im, ok := m.mappings[MappingKey(itemType, itemID)]
	if !ok || !im.IsActive {
		return nil, nil
	}
	t, ok := m.tariffs.tariffs[im.NhisTariffID]
	if !ok || !t.IsActive {
		return nil, nil
	}
	return t, nil
}

func (m *mockMappingRepo) MappedTariffs(ctx context.Context) (map[string]*MappedTariff, error) {
	out := make(map[string]*MappedTariff)
	for k, im := range m.mappings {
		if !im.IsActive {
			continue
		}
		if t, ok := m.tariffs.tariffs[im.NhisTariffID]; ok && t.IsActive {
			out[k] = &MappedTariff{NhisCode: t.NhisCode, Price: t.Price}
		}
	}
	return out, nil
}

func newTestService() (*Service, *mockTariffRepo, *mockMappingRepo) {
	tariffs := newMockTariffRepo()
	mappings := newMockMappingRepo(tariffs)
	return NewService(tariffs, mappings), tariffs, mappings
}

func TestCreateTariff_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name   string
		tariff *Tariff
	}{
		{"missing code", &Tariff{Name: "Paracetamol", Price: 1}},
		{"missing name", &Tariff{NhisCode: "NHIS-001", Price: 1}},
		{"negative price", &Tariff{NhisCode: "NHIS-001", Name: "Paracetamol", Price: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreateTariff(ctx, tt.tariff); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMapItem_DuplicateRejected(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tariff := &Tariff{NhisCode: "NHIS-010", Name: "Amoxicillin", Price: 12.5, IsActive: true}
	if err := svc.CreateTariff(ctx, tariff); err != nil {
		t.Fatalf("create tariff: %v", err)
	}

	itemID := uuid.New()
	if _, err := svc.MapItem(ctx, "drug", itemID, "DRG-010", tariff.ID); err != nil {
		t.Fatalf("first mapping: %v", err)
	}
	if _, err := svc.MapItem(ctx, "drug", itemID, "DRG-010", tariff.ID); err == nil {
		t.Error("expected duplicate mapping to be rejected")
	}
}

func TestMapItem_UnknownTariff(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.MapItem(context.Background(), "drug", uuid.New(), "DRG-011", uuid.New()); err == nil {
		t.Error("expected error for unknown tariff")
	}
}

func TestTariffForItem_LivePrice(t *testing.T) {
	svc, tariffs, _ := newTestService()
	ctx := context.Background()

	tariff := &Tariff{NhisCode: "NHIS-020", Name: "FBC", Price: 30, IsActive: true}
	if err := svc.CreateTariff(ctx, tariff); err != nil {
		t.Fatalf("create tariff: %v", err)
	}
	itemID := uuid.New()
	if _, err := svc.MapItem(ctx, "lab", itemID, "LAB-020", tariff.ID); err != nil {
		t.Fatalf("map item: %v", err)
	}

	// A later tariff price change must be visible through the mapping.
	if err := tariffs.UpdatePrice(ctx, tariff.ID, 45); err != nil {
		t.Fatalf("update price: %v", err)
	}
	got, err := svc.TariffForItem(ctx, "lab", itemID)
	if err != nil {
		t.Fatalf("tariff for item: %v", err)
	}
	if got == nil || got.Price != 45 {
		t.Errorf("expected live price 45, got %+v", got)
	}
}

func TestTariffForItem_Unmapped(t *testing.T) {
	svc, _, _ := newTestService()
	got, err := svc.TariffForItem(context.Background(), "drug", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil tariff for unmapped item, got %+v", got)
	}
}

func TestUnmapItem(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tariff := &Tariff{NhisCode: "NHIS-030", Name: "Consultation", Price: 10, IsActive: true}
	if err := svc.CreateTariff(ctx, tariff); err != nil {
		t.Fatalf("create tariff: %v", err)
	}
	itemID := uuid.New()
	if _, err := svc.MapItem(ctx, "consultation", itemID, "CON-030", tariff.ID); err != nil {
		t.Fatalf("map item: %v", err)
	}
	if err := svc.UnmapItem(ctx, "consultation", itemID); err != nil {
		t.Fatalf("unmap item: %v", err)
	}
	got, err := svc.TariffForItem(ctx, "consultation", itemID)
	if err != nil {
		t.Fatalf("tariff for item: %v", err)
	}
	if got != nil {
		t.Error("expected item to be unmapped after removal")
	}
}
