package laborder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hms/hms/internal/domain/catalog"
)

// ItemSource resolves the ordered lab service for price inspection.
type ItemSource interface {
	GetByID(ctx context.Context, t catalog.ItemType, id uuid.UUID) (*catalog.Item, error)
}

type Service struct {
	repo  Repository
	items ItemSource
}

func NewService(repo Repository, items ItemSource) *Service {
	return &Service{repo: repo, items: items}
}

// Create places a lab order. The unpriced flag is decided here, once,
// from the service's current cash price: unpriced tests are referred
// out immediately instead of entering the in-house queue.
func (s *Service) Create(ctx context.Context, patientID, labServiceID uuid.UUID, orderedBy string, notes *string) (*Order, error) {
	svc, err := s.items.GetByID(ctx, catalog.ItemTypeLab, labServiceID)
	if err != nil {
		return nil, fmt.Errorf("lab service %s: %w", labServiceID, err)
	}

	order := &Order{
		PatientID:    patientID,
		LabServiceID: labServiceID,
		ServiceCode:  svc.Code,
		OrderedBy:    orderedBy,
		Notes:        notes,
	}
	if svc.IsPriced() {
		order.Status = StatusOrdered
	} else {
		order.IsUnpriced = true
		order.Status = StatusExternalReferral
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create lab order: %w", err)
	}
	log.Info().
		Str("service_code", svc.Code).
		Str("status", order.Status).
		Bool("is_unpriced", order.IsUnpriced).
		Msg("lab order created")
	return order, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Order, int, error) {
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// UpdateStatus advances the order through the workflow.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(order.Status, status); err != nil {
		return nil, err
	}
	order.Status = status
	if status == StatusCompleted {
		now := time.Now()
		order.CompletedAt = &now
	}
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update lab order: %w", err)
	}
	return order, nil
}
