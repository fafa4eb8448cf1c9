package insurance

import (
	"time"

	"github.com/google/uuid"
)

// Coverage types determine how the insurer's share of a unit price is
// computed when a rule applies.
const (
	CoverageFull       = "full"
	CoveragePercentage = "percentage"
	CoverageFixed      = "fixed"
	CoverageExcluded   = "excluded"
)

func ValidCoverageType(t string) bool {
	switch t {
	case CoverageFull, CoveragePercentage, CoverageFixed, CoverageExcluded:
		return true
	}
	return false
}

type Provider struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsNHIS    bool      `json:"is_nhis"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Plan is a product offered by a provider. IsNHIS is derived from the
// provider on read; it is never stored on the plan row.
type Plan struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Name       string    `json:"name"`
	IsNHIS     bool      `json:"is_nhis"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// CoverageRule is one pricing decision for a plan. A rule with a nil
// ItemCode is a general category rule; a non-nil code makes it specific
// to one item. At most one rule exists per (plan, category, code) key.
//
// IsUnmapped marks a flexible-copay rule for an item outside the tariff
// list: the insurer pays nothing and the patient pays the stored copay
// per unit.
type CoverageRule struct {
	ID                 uuid.UUID `json:"id"`
	InsurancePlanID    uuid.UUID `json:"insurance_plan_id"`
	CoverageCategory   string    `json:"coverage_category"`
	ItemCode           *string   `json:"item_code,omitempty"`
	ItemDescription    *string   `json:"item_description,omitempty"`
	IsCovered          bool      `json:"is_covered"`
	CoverageType       string    `json:"coverage_type"`
	CoverageValue      *float64  `json:"coverage_value,omitempty"`
	TariffAmount       *float64  `json:"tariff_amount,omitempty"`
	PatientCopayAmount *float64  `json:"patient_copay_amount,omitempty"`
	IsUnmapped         bool      `json:"is_unmapped"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RuleKey builds the lookup key used by bulk rule reads: category plus
// item code, empty code for general rules.
func RuleKey(category, code string) string {
	return category + "|" + code
}

func (r *CoverageRule) Key() string {
	code := ""
	if r.ItemCode != nil {
		code = *r.ItemCode
	}
	return RuleKey(r.CoverageCategory, code)
}
