package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a registered person. MRN is the facility-wide medical
// record number, assigned once at registration and never reissued.
type Patient struct {
	ID              uuid.UUID  `json:"id"`
	MRN             string     `json:"mrn"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	Gender          string     `json:"gender"`
	Phone           *string    `json:"phone,omitempty"`
	InsurancePlanID *uuid.UUID `json:"insurance_plan_id,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
