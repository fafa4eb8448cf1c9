package audit

import (
	"time"

	"github.com/google/uuid"
)

// Fields a pricing change log row can record. One row is written per
// field changed, never per call.
const (
	FieldCashPrice = "cash_price"
	FieldCopay     = "copay"
	FieldCoverage  = "coverage"
	FieldTariff    = "tariff"
)

// ChangeLog is one append-only audit row for a price or coverage field
// change. OldValue is nil when the item was newly priced;
// InsurancePlanID is nil for cash price changes.
type ChangeLog struct {
	ID              uuid.UUID  `json:"id"`
	ItemType        string     `json:"item_type"`
	ItemID          uuid.UUID  `json:"item_id"`
	ItemCode        string     `json:"item_code"`
	FieldChanged    string     `json:"field_changed"`
	InsurancePlanID *uuid.UUID `json:"insurance_plan_id,omitempty"`
	OldValue        *float64   `json:"old_value,omitempty"`
	NewValue        float64    `json:"new_value"`
	ChangedBy       string     `json:"changed_by"`
	CreatedAt       time.Time  `json:"created_at"`
}
