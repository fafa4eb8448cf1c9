package claims

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hms/hms/internal/domain/coverage"
)

// Calculator resolves one charge line against a plan. It is the claim
// builder's only coupling to the coverage engine.
type Calculator interface {
	ForPlan(ctx context.Context, req coverage.Request) (*coverage.Result, error)
}

type Service struct {
	claims     ClaimRepository
	charges    ChargeRepository
	calculator Calculator
}

func NewService(claims ClaimRepository, charges ChargeRepository, calculator Calculator) *Service {
	return &Service{claims: claims, charges: charges, calculator: calculator}
}

func newClaimNumber() string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("CLM-%s-%s", time.Now().Format("20060102"), suffix)
}

func (s *Service) CreateCharge(ctx context.Context, c *Charge) error {
	if c.Quantity <= 0 {
		return fmt.Errorf("charge quantity must be positive")
	}
	if c.Amount < 0 {
		return fmt.Errorf("charge amount cannot be negative")
	}
	c.Status = ChargeStatusPending
	return s.charges.Create(ctx, c)
}

func (s *Service) ListPendingCharges(ctx context.Context, patientID uuid.UUID) ([]*Charge, error) {
	return s.charges.ListPending(ctx, patientID)
}

func (s *Service) CreateClaim(ctx context.Context, planID, patientID uuid.UUID) (*Claim, error) {
	claim := &Claim{
		ClaimNumber:     newClaimNumber(),
		InsurancePlanID: planID,
		PatientID:       patientID,
		Status:          StatusPendingVetting,
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	log.Info().Str("claim_number", claim.ClaimNumber).Msg("claim created")
	return claim, nil
}

// AddCharges folds the charges into the claim, one claim item per
// charge. Every charge produces an item: unmapped or uncovered lines are
// kept with a zero insurer share rather than dropped. Each item is a
// snapshot of the coverage decision at this moment.
func (s *Service) AddCharges(ctx context.Context, claimID uuid.UUID, chargeIDs []uuid.UUID) (*Claim, error) {
	if len(chargeIDs) == 0 {
		return nil, fmt.Errorf("no charges given")
	}
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != StatusPendingVetting {
		return nil, fmt.Errorf("cannot add charges to a claim in status %s", claim.Status)
	}

	for _, chargeID := range chargeIDs {
		charge, err := s.charges.GetByID(ctx, chargeID)
		if err != nil {
			return nil, fmt.Errorf("charge %s: %w", chargeID, err)
		}
		if charge.ClaimID != nil {
			return nil, fmt.Errorf("charge %s already belongs to a claim", chargeID)
		}

		result, err := s.calculator.ForPlan(ctx, coverage.Request{
			PlanID:    claim.InsurancePlanID,
			ItemType:  charge.ServiceType,
			ItemID:    charge.ItemID,
			ItemCode:  charge.ServiceCode,
			Category:  charge.ServiceType,
			UnitPrice: charge.Amount,
			Quantity:  charge.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("price charge %s: %w", chargeID, err)
		}

		item := &ClaimItem{
			ClaimID:          claim.ID,
			ChargeID:         charge.ID,
			ItemType:         charge.ServiceType,
			ItemCode:         charge.ServiceCode,
			Description:      charge.Description,
			Quantity:         charge.Quantity,
			UnitPrice:        charge.Amount,
			Subtotal:         result.Subtotal,
			InsurancePays:    result.InsurancePays,
			PatientPays:      result.PatientPays,
			IsCovered:        result.IsCovered,
			IsUnmapped:       result.IsUnmapped,
			HasFlexibleCopay: result.HasFlexibleCopay,
			CoverageType:     result.CoverageType,
		}
		if err := s.claims.AddItem(ctx, item); err != nil {
			return nil, fmt.Errorf("add claim item: %w", err)
		}
		if err := s.charges.AssignToClaim(ctx, charge.ID, claim.ID); err != nil {
			return nil, fmt.Errorf("assign charge: %w", err)
		}

		claim.TotalAmount = round2(claim.TotalAmount + result.Subtotal)
		claim.InsuranceAmount = round2(claim.InsuranceAmount + result.InsurancePays)
		claim.PatientAmount = round2(claim.PatientAmount + result.PatientPays)
	}

	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, fmt.Errorf("update claim totals: %w", err)
	}
	log.Info().
		Str("claim_number", claim.ClaimNumber).
		Int("charges", len(chargeIDs)).
		Float64("insurance_amount", claim.InsuranceAmount).
		Float64("patient_amount", claim.PatientAmount).
		Msg("charges added to claim")
	return claim, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.claims.GetByID(ctx, id)
}

func (s *Service) ListClaims(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	return s.claims.List(ctx, limit, offset)
}

func (s *Service) ListClaimItems(ctx context.Context, claimID uuid.UUID) ([]*ClaimItem, error) {
	return s.claims.ListItems(ctx, claimID)
}

// Vet moves the claim to vetted and records who signed it off.
func (s *Service) Vet(ctx context.Context, claimID uuid.UUID, vettedBy string) (*Claim, error) {
	return s.transition(ctx, claimID, StatusVetted, func(c *Claim) {
		now := time.Now()
		c.VettedBy = &vettedBy
		c.VettedAt = &now
	})
}

func (s *Service) Submit(ctx context.Context, claimID uuid.UUID) (*Claim, error) {
	return s.transition(ctx, claimID, StatusSubmitted, func(c *Claim) {
		now := time.Now()
		c.SubmittedAt = &now
	})
}

func (s *Service) Reject(ctx context.Context, claimID uuid.UUID, reason string) (*Claim, error) {
	return s.transition(ctx, claimID, StatusRejected, func(c *Claim) {
		c.RejectionReason = &reason
	})
}

// UpdateStatus applies a bare status change for the settlement states.
func (s *Service) UpdateStatus(ctx context.Context, claimID uuid.UUID, status string) (*Claim, error) {
	return s.transition(ctx, claimID, status, nil)
}

func (s *Service) transition(ctx context.Context, claimID uuid.UUID, to string, apply func(*Claim)) (*Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(claim.Status, to); err != nil {
		return nil, err
	}
	claim.Status = to
	if apply != nil {
		apply(claim)
	}
	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, fmt.Errorf("update claim: %w", err)
	}
	log.Info().Str("claim_number", claim.ClaimNumber).Str("status", to).Msg("claim status changed")
	return claim, nil
}
