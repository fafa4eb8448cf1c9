package insurance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	providers ProviderRepository
	plans     PlanRepository
	rules     RuleRepository
}

func NewService(providers ProviderRepository, plans PlanRepository, rules RuleRepository) *Service {
	return &Service{providers: providers, plans: plans, rules: rules}
}

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if p.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if err := s.providers.Create(ctx, p); err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	log.Info().Str("name", p.Name).Bool("is_nhis", p.IsNHIS).Msg("insurance provider created")
	return nil
}

func (s *Service) ListProviders(ctx context.Context) ([]*Provider, error) {
	return s.providers.List(ctx)
}

func (s *Service) CreatePlan(ctx context.Context, p *Plan) error {
	if p.Name == "" {
		return fmt.Errorf("plan name is required")
	}
	provider, err := s.providers.GetByID(ctx, p.ProviderID)
	if err != nil {
		return fmt.Errorf("provider %s: %w", p.ProviderID, err)
	}
	if err := s.plans.Create(ctx, p); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	p.IsNHIS = provider.IsNHIS
	return nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	return s.plans.List(ctx)
}

// IsNHISPlan reports whether the plan belongs to the national scheme,
// which routes pricing through the tariff path.
func (s *Service) IsNHISPlan(ctx context.Context, planID uuid.UUID) (bool, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return false, err
	}
	return plan.IsNHIS, nil
}

// FindSpecificRule returns the item-level rule, or nil when none exists.
func (s *Service) FindSpecificRule(ctx context.Context, planID uuid.UUID, category, itemCode string) (*CoverageRule, error) {
	return s.rules.FindSpecific(ctx, planID, category, itemCode)
}

// FindGeneralRule returns the category-wide rule, or nil when none exists.
func (s *Service) FindGeneralRule(ctx context.Context, planID uuid.UUID, category string) (*CoverageRule, error) {
	return s.rules.FindGeneral(ctx, planID, category)
}

func (s *Service) UpsertRule(ctx context.Context, r *CoverageRule) error {
	if r.CoverageCategory == "" {
		return fmt.Errorf("coverage category is required")
	}
	// A category-wide rule has exactly one spelling: a nil item code.
	if r.ItemCode != nil && *r.ItemCode == "" {
		r.ItemCode = nil
	}
	if !ValidCoverageType(r.CoverageType) {
		return fmt.Errorf("invalid coverage type %q", r.CoverageType)
	}
	if r.CoverageType == CoveragePercentage && r.CoverageValue != nil && (*r.CoverageValue < 0 || *r.CoverageValue > 100) {
		return fmt.Errorf("percentage coverage value must be between 0 and 100")
	}
	if err := s.rules.Upsert(ctx, r); err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	return nil
}

func (s *Service) ListRules(ctx context.Context, planID uuid.UUID, limit, offset int) ([]*CoverageRule, int, error) {
	return s.rules.ListByPlan(ctx, planID, limit, offset)
}

func (s *Service) RulesForPlan(ctx context.Context, planID uuid.UUID) (map[string]*CoverageRule, error) {
	return s.rules.RulesForPlan(ctx, planID)
}

func (s *Service) CountFlexibleRules(ctx context.Context, planID uuid.UUID) (int, error) {
	return s.rules.CountFlexible(ctx, planID)
}

func (s *Service) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	return s.rules.Deactivate(ctx, id)
}
