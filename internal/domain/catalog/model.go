package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemType discriminates the billable item variants that share the
// pricing API.
type ItemType string

const (
	ItemTypeDrug         ItemType = "drug"
	ItemTypeLab          ItemType = "lab"
	ItemTypeConsultation ItemType = "consultation"
	ItemTypeProcedure    ItemType = "procedure"
)

// AllItemTypes lists the variants in lookup precedence order. Code lookups
// that span variants try them in this order and stop at the first match.
var AllItemTypes = []ItemType{ItemTypeDrug, ItemTypeLab, ItemTypeConsultation, ItemTypeProcedure}

// ParseItemType validates a raw item type string.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTypeDrug, ItemTypeLab, ItemTypeConsultation, ItemTypeProcedure:
		return ItemType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidItemType, s)
}

// Item is the unified projection of a billable item, whatever table it
// lives in. Code is unique within a variant; CashPrice <= 0 means the
// item is unpriced.
type Item struct {
	ID          uuid.UUID `json:"id"`
	Type        ItemType  `json:"type"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	GenericName *string   `json:"generic_name,omitempty"`
	Category    string    `json:"category"`
	CashPrice   float64   `json:"cash_price"`
	IsActive    bool      `json:"is_active"`
}

// IsPriced reports whether the item has a usable cash price. Zero is
// "unpriced", never a valid free price.
func (i *Item) IsPriced() bool { return i.CashPrice > 0 }

// Drug maps to the drugs table.
type Drug struct {
	ID          uuid.UUID `json:"id"`
	DrugCode    string    `json:"drug_code"`
	Name        string    `json:"name"`
	GenericName *string   `json:"generic_name,omitempty"`
	Category    string    `json:"category"`
	UnitPrice   float64   `json:"unit_price"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LabService maps to the lab_services table.
type LabService struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DepartmentBilling maps to the department_billings table. It is the
// consultation variant: the price is the department consultation fee.
type DepartmentBilling struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	ConsultationFee float64   `json:"consultation_fee"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MinorProcedureType maps to the minor_procedure_types table.
type MinorProcedureType struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
