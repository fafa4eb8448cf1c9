package laborder

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("lab order not found")

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Order, int, error)
}
