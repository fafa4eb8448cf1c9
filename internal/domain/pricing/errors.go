package pricing

import "errors"

// MaxPrice is the upper bound accepted for any price or copay input.
const MaxPrice = 10_000_000

var (
	ErrInvalidPrice = errors.New("invalid price")
	ErrEmptyBatch   = errors.New("no items selected")
	ErrPlanNotFound = errors.New("insurance plan not found")
)
