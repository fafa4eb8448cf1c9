package laborder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lab order statuses. An order for an unpriced service is referred out
// at creation and never enters the in-house workflow.
const (
	StatusOrdered          = "ordered"
	StatusSampleCollected  = "sample_collected"
	StatusInProgress       = "in_progress"
	StatusCompleted        = "completed"
	StatusCancelled        = "cancelled"
	StatusExternalReferral = "external_referral"
)

var validTransitions = map[string][]string{
	StatusOrdered:          {StatusSampleCollected, StatusCancelled},
	StatusSampleCollected:  {StatusInProgress, StatusCancelled},
	StatusInProgress:       {StatusCompleted, StatusCancelled},
	StatusCompleted:        {},
	StatusCancelled:        {},
	StatusExternalReferral: {},
}

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

// Order is one lab test request. IsUnpriced is computed once at
// creation from the service's cash price and never re-evaluated, even
// if the price changes later.
type Order struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	LabServiceID uuid.UUID  `json:"lab_service_id"`
	ServiceCode  string     `json:"service_code"`
	Status       string     `json:"status"`
	IsUnpriced   bool       `json:"is_unpriced"`
	OrderedBy    string     `json:"ordered_by"`
	Notes        *string    `json:"notes,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
