package nhis

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tariff is a government price list entry. The tariff price is the source
// of truth for what the scheme reimburses; it is always read live through
// the mapping join, never copied onto items.
type Tariff struct {
	ID        uuid.UUID `json:"id"`
	NhisCode  string    `json:"nhis_code"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemMapping links one billable item to a tariff. Presence of an active
// mapping makes the item "mapped"; absence makes it "unmapped".
type ItemMapping struct {
	ID           uuid.UUID `json:"id"`
	ItemType     string    `json:"item_type"`
	ItemID       uuid.UUID `json:"item_id"`
	ItemCode     string    `json:"item_code"`
	NhisTariffID uuid.UUID `json:"nhis_tariff_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// MappedTariff is the bulk-lookup projection used when augmenting the
// pricing dashboard: tariff code and live price for a mapped item.
type MappedTariff struct {
	NhisCode string  `json:"nhis_code"`
	Price    float64 `json:"price"`
}

// MappingKey builds the lookup key used by bulk mapping reads.
func MappingKey(itemType string, itemID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", itemType, itemID)
}
