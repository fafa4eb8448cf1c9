package pricing

import (
	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/catalog"
)

// Price status filter values for dashboard queries.
const (
	StatusPriced   = "priced"
	StatusUnpriced = "unpriced"
)

// PricedItem is one dashboard row: the unified item projection plus the
// plan-specific augmentation. Scheme plans fill the mapping columns,
// private plans the rule columns; with no plan only the base columns are
// set.
type PricedItem struct {
	ID              uuid.UUID        `json:"id"`
	Type            catalog.ItemType `json:"type"`
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	GenericName     *string          `json:"generic_name,omitempty"`
	Category        string           `json:"category"`
	CashPrice       float64          `json:"cash_price"`
	IsMapped        *bool            `json:"is_mapped,omitempty"`
	NhisCode        *string          `json:"nhis_code,omitempty"`
	InsuranceTariff *float64         `json:"insurance_tariff,omitempty"`
	CoverageType    *string          `json:"coverage_type,omitempty"`
	CoverageValue   *float64         `json:"coverage_value,omitempty"`
	PatientCopay    *float64         `json:"patient_copay,omitempty"`
}

// Query filters the dashboard item list. A Limit of zero or less means
// no pagination (every matching row).
type Query struct {
	PlanID       *uuid.UUID
	Category     string
	Search       string
	UnmappedOnly bool
	Status       string
	Limit        int
	Offset       int
}

// CoverageAttrs carries the optional fields of a coverage update. Only
// non-nil fields are applied, and each applied field is audited
// separately.
type CoverageAttrs struct {
	TariffAmount       *float64 `json:"tariff_amount"`
	CoverageType       *string  `json:"coverage_type"`
	CoverageValue      *float64 `json:"coverage_value"`
	PatientCopayAmount *float64 `json:"patient_copay_amount"`
}

type BulkItem struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

type BulkError struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

// BulkResult reports a partial-failure-tolerant batch: Updated counts
// the successes, Errors the failures, and the batch never aborts early.
type BulkResult struct {
	Updated int         `json:"updated"`
	Errors  []BulkError `json:"errors"`
}

type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult accumulates CSV import counts. Imported counts every
// matched row, whether or not it changed anything; Updated counts the
// rows that mutated a price; Skipped counts blank codes and matched rows
// with no usable price. Errors holds one entry per not-found code and
// nothing else; store failures land in Failures so the error count stays
// a pure not-found tally. Truncated reports that the row cap stopped the
// read early.
type ImportResult struct {
	Imported  int        `json:"imported"`
	Updated   int        `json:"updated"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors"`
	Failures  []RowError `json:"failures,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
}

// StatusSummary is the dashboard headline: priced and unpriced partition
// the active item set, mapped and unmapped partition it by tariff
// mapping, and FlexibleCopay counts the plan's flexible-copay rules.
type StatusSummary struct {
	Priced        int `json:"priced"`
	Unpriced      int `json:"unpriced"`
	NhisMapped    int `json:"nhis_mapped"`
	NhisUnmapped  int `json:"nhis_unmapped"`
	FlexibleCopay int `json:"flexible_copay"`
}
