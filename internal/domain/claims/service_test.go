package claims

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/coverage"
)

type mockChargeRepo struct {
	charges map[uuid.UUID]*Charge
}

func newMockChargeRepo() *mockChargeRepo {
	return &mockChargeRepo{charges: make(map[uuid.UUID]*Charge)}
}

func (m *mockChargeRepo) Create(ctx context.Context, c *Charge) error {
	c.ID = uuid.New()
	m.charges[c.ID] = c
	return nil
}

func (m *mockChargeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Charge, error) {
	c, ok := m.charges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockChargeRepo) ListPending(ctx context.Context, patientID uuid.UUID) ([]*Charge, error) {
	var out []*Charge
	for _, c := range m.charges {
		if c.PatientID == patientID && c.Status == ChargeStatusPending {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockChargeRepo) AssignToClaim(ctx context.Context, chargeID, claimID uuid.UUID) error {
	c, ok := m.charges[chargeID]
	if !ok {
		return ErrNotFound
	}
	c.ClaimID = &claimID
	c.Status = ChargeStatusClaimed
	return nil
}

type mockClaimRepo struct {
	claims map[uuid.UUID]*Claim
	items  map[uuid.UUID][]*ClaimItem
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{
		claims: make(map[uuid.UUID]*Claim),
		items:  make(map[uuid.UUID][]*ClaimItem),
	}
}

func (m *mockClaimRepo) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	m.claims[c.ID] = c
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, ok := m.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockClaimRepo) List(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	var out []*Claim
	for _, c := range m.claims {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockClaimRepo) Update(ctx context.Context, c *Claim) error {
	if _, ok := m.claims[c.ID]; !ok {
		return ErrNotFound
	}
	m.claims[c.ID] = c
	return nil
}

func (m *mockClaimRepo) AddItem(ctx context.Context, item *ClaimItem) error {
	item.ID = uuid.New()
	m.items[item.ClaimID] = append(m.items[item.ClaimID], item)
	return nil
}

func (m *mockClaimRepo) ListItems(ctx context.Context, claimID uuid.UUID) ([]*ClaimItem, error) {
	return m.items[claimID], nil
}

// mockCalculator covers mapped items at 80% and leaves anything else
// fully on the patient with a zero insurer share.
type mockCalculator struct {
	mapped map[string]bool
}

func (m *mockCalculator) ForPlan(ctx context.Context, req coverage.Request) (*coverage.Result, error) {
	subtotal := req.UnitPrice * float64(req.Quantity)
	if m.mapped[req.ItemCode] {
		return &coverage.Result{
			IsCovered:     true,
			CoverageType:  "percentage",
			RuleType:      coverage.RuleSpecific,
			InsurancePays: subtotal * 0.8,
			PatientPays:   subtotal * 0.2,
			Subtotal:      subtotal,
		}, nil
	}
	return &coverage.Result{
		IsCovered:    false,
		CoverageType: coverage.CoverageNotMapped,
		PatientPays:  subtotal,
		Subtotal:     subtotal,
		IsUnmapped:   true,
	}, nil
}

func newTestService(mapped ...string) (*Service, *mockClaimRepo, *mockChargeRepo) {
	calc := &mockCalculator{mapped: make(map[string]bool)}
	for _, code := range mapped {
		calc.mapped[code] = true
	}
	claims := newMockClaimRepo()
	charges := newMockChargeRepo()
	return NewService(claims, charges, calc), claims, charges
}

func addCharge(t *testing.T, svc *Service, patientID uuid.UUID, code string, amount float64, qty int) *Charge {
	t.Helper()
	c := &Charge{
		PatientID:   patientID,
		ServiceType: "drug",
		ServiceCode: code,
		Amount:      amount,
		Quantity:    qty,
		ItemID:      uuid.New(),
	}
	if err := svc.CreateCharge(context.Background(), c); err != nil {
		t.Fatalf("create charge: %v", err)
	}
	return c
}

func TestAddCharges_OneItemPerCharge(t *testing.T) {
	svc, claims, _ := newTestService("DRG-001", "LAB-001")
	ctx := context.Background()
	patientID := uuid.New()

	mappedA := addCharge(t, svc, patientID, "DRG-001", 10, 2)
	unmapped := addCharge(t, svc, patientID, "DRG-XXX", 30, 1)
	mappedB := addCharge(t, svc, patientID, "LAB-001", 50, 1)

	claim, err := svc.CreateClaim(ctx, uuid.New(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	claim, err = svc.AddCharges(ctx, claim.ID, []uuid.UUID{mappedA.ID, unmapped.ID, mappedB.ID})
	if err != nil {
		t.Fatal(err)
	}

	items := claims.items[claim.ID]
	if len(items) != 3 {
		t.Fatalf("expected one item per charge, got %d", len(items))
	}
	for _, item := range items {
		if item.IsUnmapped && item.InsurancePays != 0 {
			t.Errorf("unmapped item %s must have a zero insurer share, got %.2f", item.ItemCode, item.InsurancePays)
		}
	}
	// 80% of (10*2 + 50) = 56; patient gets the rest plus the full unmapped line.
	if claim.InsuranceAmount != 56.00 {
		t.Errorf("expected insurance amount 56.00, got %.2f", claim.InsuranceAmount)
	}
	if claim.PatientAmount != 44.00 {
		t.Errorf("expected patient amount 44.00, got %.2f", claim.PatientAmount)
	}
	if claim.TotalAmount != 100.00 {
		t.Errorf("expected total 100.00, got %.2f", claim.TotalAmount)
	}
}

func TestAddCharges_RejectsReusedCharge(t *testing.T) {
	svc, _, _ := newTestService("DRG-001")
	ctx := context.Background()
	patientID := uuid.New()
	charge := addCharge(t, svc, patientID, "DRG-001", 10, 1)

	first, err := svc.CreateClaim(ctx, uuid.New(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddCharges(ctx, first.ID, []uuid.UUID{charge.ID}); err != nil {
		t.Fatal(err)
	}

	second, err := svc.CreateClaim(ctx, uuid.New(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddCharges(ctx, second.ID, []uuid.UUID{charge.ID}); err == nil {
		t.Error("expected error for a charge already on a claim")
	}
}

func TestAddCharges_OnlyPendingVetting(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	patientID := uuid.New()
	charge := addCharge(t, svc, patientID, "DRG-001", 10, 1)

	claim, err := svc.CreateClaim(ctx, uuid.New(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Vet(ctx, claim.ID, "officer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddCharges(ctx, claim.ID, []uuid.UUID{charge.ID}); err == nil {
		t.Error("expected error adding charges to a vetted claim")
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{StatusPendingVetting, StatusVetted, true},
		{StatusPendingVetting, StatusSubmitted, false},
		{StatusVetted, StatusSubmitted, true},
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusApproved, StatusPaid, true},
		{StatusApproved, StatusPartiallyPaid, true},
		{StatusPartiallyPaid, StatusPaid, true},
		{StatusPaid, StatusVetted, false},
		{StatusRejected, StatusSubmitted, false},
		{"bogus", StatusVetted, false},
	}
	for _, tt := range tests {
		err := ValidateTransition(tt.from, tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s -> %s: expected error", tt.from, tt.to)
		}
	}
}

func TestClaimLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	claim, err := svc.CreateClaim(ctx, uuid.New(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if claim.Status != StatusPendingVetting {
		t.Fatalf("new claim must start pending vetting, got %s", claim.Status)
	}

	claim, err = svc.Vet(ctx, claim.ID, "officer-1")
	if err != nil {
		t.Fatal(err)
	}
	if claim.VettedBy == nil || *claim.VettedBy != "officer-1" || claim.VettedAt == nil {
		t.Error("vetting must record the officer and time")
	}

	claim, err = svc.Submit(ctx, claim.ID)
	if err != nil {
		t.Fatal(err)
	}
	if claim.SubmittedAt == nil {
		t.Error("submission must record the time")
	}

	claim, err = svc.UpdateStatus(ctx, claim.ID, StatusApproved)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(ctx, claim.ID, StatusPaid); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(ctx, claim.ID, StatusVetted); err == nil {
		t.Error("paid is terminal")
	}
}

func TestReject_RecordsReason(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	claim, err := svc.CreateClaim(ctx, uuid.New(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	claim, err = svc.Reject(ctx, claim.ID, "incomplete documentation")
	if err != nil {
		t.Fatal(err)
	}
	if claim.Status != StatusRejected || claim.RejectionReason == nil || *claim.RejectionReason != "incomplete documentation" {
		t.Errorf("expected rejected with reason, got %+v", claim)
	}
}
