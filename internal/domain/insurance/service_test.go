package insurance

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockProviderRepo struct {
	providers map[uuid.UUID]*Provider
}

func newMockProviderRepo() *mockProviderRepo {
	return &mockProviderRepo{providers: make(map[uuid.UUID]*Provider)}
}

func (m *mockProviderRepo) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	m.providers[p.ID] = p
	return nil
}

func (m *mockProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockProviderRepo) List(ctx context.Context) ([]*Provider, error) {
	var out []*Provider
	for _, p := range m.providers {
		out = append(out, p)
	}
	return out, nil
}

type mockPlanRepo struct {
	plans     map[uuid.UUID]*Plan
	providers *mockProviderRepo
}

func newMockPlanRepo(providers *mockProviderRepo) *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[uuid.UUID]*Plan), providers: providers}
}

func (m *mockPlanRepo) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	m.plans[p.ID] = p
	return nil
}

func (m *mockPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	if provider, ok := m.providers.providers[p.ProviderID]; ok {
		p.IsNHIS = provider.IsNHIS
	}
	return p, nil
}

func (m *mockPlanRepo) List(ctx context.Context) ([]*Plan, error) {
	var out []*Plan
	for _, p := range m.plans {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPlanRepo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*Plan, error) {
	var out []*Plan
	for _, p := range m.plans {
		if p.ProviderID == providerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockRuleRepo struct {
	// keyed by plan ID then RuleKey, mirroring the unique index
	rules map[uuid.UUID]map[string]*CoverageRule
}

func newMockRuleRepo() *mockRuleRepo {
	return &mockRuleRepo{rules: make(map[uuid.UUID]map[string]*CoverageRule)}
}

func (m *mockRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*CoverageRule, error) {
	for _, byKey := range m.rules {
		for _, r := range byKey {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (m *mockRuleRepo) FindSpecific(ctx context.Context, planID uuid.UUID, category, itemCode string) (*CoverageRule, error) {
	r, ok := m.rules[planID][RuleKey(category, itemCode)]
	if !ok || !r.IsActive {
		return nil, nil
	}
	return r, nil
}

func (m *mockRuleRepo) FindGeneral(ctx context.Context, planID uuid.UUID, category string) (*CoverageRule, error) {
	r, ok := m.rules[planID][RuleKey(category, "")]
	if !ok || !r.IsActive {
		return nil, nil
	}
	return r, nil
}

func (m *mockRuleRepo) Upsert(ctx context.Context, r *CoverageRule) error {
	byKey, ok := m.rules[r.InsurancePlanID]
	if !ok {
		byKey = make(map[string]*CoverageRule)
		m.rules[r.InsurancePlanID] = byKey
	}
	if existing, ok := byKey[r.Key()]; ok {
		r.ID = existing.ID
	} else if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	byKey[r.Key()] = r
	return nil
}

func (m *mockRuleRepo) ListByPlan(ctx context.Context, planID uuid.UUID, limit, offset int) ([]*CoverageRule, int, error) {
	var out []*CoverageRule
	for _, r := range m.rules[planID] {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (m *mockRuleRepo) RulesForPlan(ctx context.Context, planID uuid.UUID) (map[string]*CoverageRule, error) {
	out := make(map[string]*CoverageRule)
	for k, r := range m.rules[planID] {
		if r.IsActive {
			out[k] = r
		}
	}
	return out, nil
}

func (m *mockRuleRepo) CountFlexible(ctx context.Context, planID uuid.UUID) (int, error) {
	n := 0
	for _, r := range m.rules[planID] {
		if r.IsActive && r.IsUnmapped && r.PatientCopayAmount != nil {
			n++
		}
	}
	return n, nil
}

func (m *mockRuleRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	for _, byKey := range m.rules {
		for _, r := range byKey {
			if r.ID == id {
				r.IsActive = false
				return nil
			}
		}
	}
	return ErrNotFound
}

func ptr[T any](v T) *T { return &v }

func newTestService() (*Service, *mockRuleRepo) {
	providers := newMockProviderRepo()
	rules := newMockRuleRepo()
	return NewService(providers, newMockPlanRepo(providers), rules), rules
}

func TestIsNHISPlan(t *testing.T) {
	providers := newMockProviderRepo()
	plans := newMockPlanRepo(providers)
	svc := NewService(providers, plans, newMockRuleRepo())
	ctx := context.Background()

	nhisProvider := &Provider{Name: "National Scheme", IsNHIS: true, IsActive: true}
	privateProvider := &Provider{Name: "Acme Health", IsActive: true}
	if err := svc.CreateProvider(ctx, nhisProvider); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateProvider(ctx, privateProvider); err != nil {
		t.Fatal(err)
	}

	nhisPlan := &Plan{ProviderID: nhisProvider.ID, Name: "Standard", IsActive: true}
	privatePlan := &Plan{ProviderID: privateProvider.ID, Name: "Gold", IsActive: true}
	if err := svc.CreatePlan(ctx, nhisPlan); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreatePlan(ctx, privatePlan); err != nil {
		t.Fatal(err)
	}

	if got, _ := svc.IsNHISPlan(ctx, nhisPlan.ID); !got {
		t.Error("expected plan under national scheme provider to report true")
	}
	if got, _ := svc.IsNHISPlan(ctx, privatePlan.ID); got {
		t.Error("expected private plan to report false")
	}
}

func TestUpsertRule_SameKeyConverges(t *testing.T) {
	svc, rules := newTestService()
	ctx := context.Background()
	planID := uuid.New()

	first := &CoverageRule{
		InsurancePlanID:  planID,
		CoverageCategory: "drug",
		ItemCode:         ptr("DRG-001"),
		IsCovered:        true,
		CoverageType:     CoveragePercentage,
		CoverageValue:    ptr(80.0),
		IsActive:         true,
	}
	if err := svc.UpsertRule(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &CoverageRule{
		InsurancePlanID:  planID,
		CoverageCategory: "drug",
		ItemCode:         ptr("DRG-001"),
		IsCovered:        true,
		CoverageType:     CoverageFixed,
		CoverageValue:    ptr(10.0),
		IsActive:         true,
	}
	if err := svc.UpsertRule(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected second upsert to reuse row %s, got %s", first.ID, second.ID)
	}
	if len(rules.rules[planID]) != 1 {
		t.Errorf("expected a single rule row, got %d", len(rules.rules[planID]))
	}
	got, _ := svc.FindSpecificRule(ctx, planID, "drug", "DRG-001")
	if got == nil || got.CoverageType != CoverageFixed {
		t.Errorf("expected latest values to win, got %+v", got)
	}
}

func TestUpsertRule_EmptyCodeBecomesCategoryWide(t *testing.T) {
	svc, rules := newTestService()
	ctx := context.Background()
	planID := uuid.New()

	rule := &CoverageRule{
		InsurancePlanID:  planID,
		CoverageCategory: "lab",
		ItemCode:         ptr(""),
		IsCovered:        true,
		CoverageType:     CoverageFull,
		IsActive:         true,
	}
	if err := svc.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rule.ItemCode != nil {
		t.Errorf("empty item code must be normalized to nil, got %q", *rule.ItemCode)
	}

	// The general lookup finds it, and a nil-code upsert lands on the
	// same row rather than a second spelling of the same key.
	got, err := svc.FindGeneralRule(ctx, planID, "lab")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != rule.ID {
		t.Fatalf("expected the general lookup to find the rule, got %+v", got)
	}
	again := &CoverageRule{
		InsurancePlanID:  planID,
		CoverageCategory: "lab",
		IsCovered:        true,
		CoverageType:     CoverageFixed,
		CoverageValue:    ptr(5.0),
		IsActive:         true,
	}
	if err := svc.UpsertRule(ctx, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != rule.ID {
		t.Errorf("expected one category-wide row, got %s and %s", rule.ID, again.ID)
	}
	if len(rules.rules[planID]) != 1 {
		t.Errorf("expected a single rule row, got %d", len(rules.rules[planID]))
	}
}

func TestUpsertRule_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	planID := uuid.New()

	if err := svc.UpsertRule(ctx, &CoverageRule{InsurancePlanID: planID, CoverageType: CoverageFull}); err == nil {
		t.Error("expected error for missing category")
	}
	if err := svc.UpsertRule(ctx, &CoverageRule{InsurancePlanID: planID, CoverageCategory: "drug", CoverageType: "half"}); err == nil {
		t.Error("expected error for invalid coverage type")
	}
	bad := &CoverageRule{
		InsurancePlanID:  planID,
		CoverageCategory: "drug",
		CoverageType:     CoveragePercentage,
		CoverageValue:    ptr(150.0),
	}
	if err := svc.UpsertRule(ctx, bad); err == nil {
		t.Error("expected error for percentage above 100")
	}
}

func TestFindRules_NilWhenAbsent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	planID := uuid.New()

	specific, err := svc.FindSpecificRule(ctx, planID, "lab", "LAB-001")
	if err != nil || specific != nil {
		t.Errorf("expected (nil, nil), got (%+v, %v)", specific, err)
	}
	general, err := svc.FindGeneralRule(ctx, planID, "lab")
	if err != nil || general != nil {
		t.Errorf("expected (nil, nil), got (%+v, %v)", general, err)
	}
}

func TestFindGeneralRule_IgnoresSpecific(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	planID := uuid.New()

	specific := &CoverageRule{
		InsurancePlanID:  planID,
		CoverageCategory: "lab",
		ItemCode:         ptr("LAB-001"),
		IsCovered:        true,
		CoverageType:     CoverageFull,
		IsActive:         true,
	}
	if err := svc.UpsertRule(ctx, specific); err != nil {
		t.Fatal(err)
	}

	general, err := svc.FindGeneralRule(ctx, planID, "lab")
	if err != nil {
		t.Fatal(err)
	}
	if general != nil {
		t.Errorf("expected no general rule, got %+v", general)
	}
}

func TestCountFlexibleRules(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	planID := uuid.New()

	flexible := &CoverageRule{
		InsurancePlanID:    planID,
		CoverageCategory:   "drug",
		ItemCode:           ptr("DRG-099"),
		CoverageType:       CoverageExcluded,
		PatientCopayAmount: ptr(5.0),
		IsUnmapped:         true,
		IsActive:           true,
	}
	regular := &CoverageRule{
		InsurancePlanID:  planID,
		CoverageCategory: "drug",
		ItemCode:         ptr("DRG-100"),
		IsCovered:        true,
		CoverageType:     CoverageFull,
		IsActive:         true,
	}
	if err := svc.UpsertRule(ctx, flexible); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpsertRule(ctx, regular); err != nil {
		t.Fatal(err)
	}

	n, err := svc.CountFlexibleRules(ctx, planID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 flexible rule, got %d", n)
	}
}
