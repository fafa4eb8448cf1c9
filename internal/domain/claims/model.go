package claims

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Claim lifecycle statuses.
const (
	StatusPendingVetting = "pending_vetting"
	StatusVetted         = "vetted"
	StatusSubmitted      = "submitted"
	StatusApproved       = "approved"
	StatusRejected       = "rejected"
	StatusPaid           = "paid"
	StatusPartiallyPaid  = "partially_paid"
)

// Charge statuses.
const (
	ChargeStatusPending = "pending"
	ChargeStatusClaimed = "claimed"
)

var validTransitions = map[string][]string{
	StatusPendingVetting: {StatusVetted, StatusRejected},
	StatusVetted:         {StatusSubmitted, StatusRejected},
	StatusSubmitted:      {StatusApproved, StatusRejected},
	StatusApproved:       {StatusPaid, StatusPartiallyPaid},
	StatusPartiallyPaid:  {StatusPaid},
	StatusPaid:           {},
	StatusRejected:       {},
}

// ValidateTransition checks a claim status change against the lifecycle.
func ValidateTransition(from, to string) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown from-status: %s", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid status transition: %s -> %s", from, to)
}

// Charge is one billable event for a patient, waiting to be folded into
// a claim.
type Charge struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	ServiceType string     `json:"service_type"`
	ServiceCode string     `json:"service_code"`
	Description *string    `json:"description,omitempty"`
	Amount      float64    `json:"amount"`
	Quantity    int        `json:"quantity"`
	Status      string     `json:"status"`
	ClaimID     *uuid.UUID `json:"claim_id,omitempty"`
	ItemID      uuid.UUID  `json:"item_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Claim aggregates charges against one insurance plan. Amount fields
// are maintained by the service as items are added.
type Claim struct {
	ID              uuid.UUID  `json:"id"`
	ClaimNumber     string     `json:"claim_number"`
	InsurancePlanID uuid.UUID  `json:"insurance_plan_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	Status          string     `json:"status"`
	TotalAmount     float64    `json:"total_amount"`
	InsuranceAmount float64    `json:"insurance_amount"`
	PatientAmount   float64    `json:"patient_amount"`
	VettedBy        *string    `json:"vetted_by,omitempty"`
	VettedAt        *time.Time `json:"vetted_at,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ClaimItem snapshots the coverage decision for one charge at claim
// time. Later rule or tariff changes never rewrite a persisted item.
type ClaimItem struct {
	ID               uuid.UUID `json:"id"`
	ClaimID          uuid.UUID `json:"claim_id"`
	ChargeID         uuid.UUID `json:"charge_id"`
	ItemType         string    `json:"item_type"`
	ItemCode         string    `json:"item_code"`
	Description      *string   `json:"description,omitempty"`
	Quantity         int       `json:"quantity"`
	UnitPrice        float64   `json:"unit_price"`
	Subtotal         float64   `json:"subtotal"`
	InsurancePays    float64   `json:"insurance_pays"`
	PatientPays      float64   `json:"patient_pays"`
	IsCovered        bool      `json:"is_covered"`
	IsUnmapped       bool      `json:"is_unmapped"`
	HasFlexibleCopay bool      `json:"has_flexible_copay"`
	CoverageType     string    `json:"coverage_type"`
	CreatedAt        time.Time `json:"created_at"`
}
