package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates the patient and assigns the next MRN.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first and last name are required")
	}
	seq, err := s.repo.NextSequence(ctx)
	if err != nil {
		return fmt.Errorf("allocate mrn: %w", err)
	}
	p.MRN = fmt.Sprintf("MRN-%d-%06d", time.Now().Year(), seq)
	p.IsActive = true
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("register patient: %w", err)
	}
	log.Info().Str("mrn", p.MRN).Msg("patient registered")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.repo.GetByMRN(ctx, mrn)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first and last name are required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, term, limit, offset)
}
