package insurance

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	List(ctx context.Context) ([]*Provider, error)
}

type PlanRepository interface {
	Create(ctx context.Context, p *Plan) error
	// GetByID returns the plan with IsNHIS resolved from its provider.
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*Plan, error)
}

type RuleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CoverageRule, error)
	// FindSpecific returns the active rule matching the exact item code,
	// or (nil, nil) when no such rule exists.
	FindSpecific(ctx context.Context, planID uuid.UUID, category, itemCode string) (*CoverageRule, error)
	// FindGeneral returns the active category-wide rule (nil item code),
	// or (nil, nil) when no such rule exists.
	FindGeneral(ctx context.Context, planID uuid.UUID, category string) (*CoverageRule, error)
	// Upsert inserts the rule or, when a row already exists for the same
	// (plan, category, code) key, updates that row in place. The rule's
	// ID is filled with the surviving row's ID either way.
	Upsert(ctx context.Context, r *CoverageRule) error
	ListByPlan(ctx context.Context, planID uuid.UUID, limit, offset int) ([]*CoverageRule, int, error)
	// RulesForPlan returns every active rule for the plan keyed by
	// RuleKey, for bulk dashboard reads.
	RulesForPlan(ctx context.Context, planID uuid.UUID) (map[string]*CoverageRule, error)
	// CountFlexible counts active unmapped flexible-copay rules for the
	// plan.
	CountFlexible(ctx context.Context, planID uuid.UUID) (int, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}
