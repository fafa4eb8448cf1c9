package claims

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type ChargeRepository interface {
	Create(ctx context.Context, c *Charge) error
	GetByID(ctx context.Context, id uuid.UUID) (*Charge, error)
	ListPending(ctx context.Context, patientID uuid.UUID) ([]*Charge, error)
	AssignToClaim(ctx context.Context, chargeID, claimID uuid.UUID) error
}

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	List(ctx context.Context, limit, offset int) ([]*Claim, int, error)
	Update(ctx context.Context, c *Claim) error
	AddItem(ctx context.Context, item *ClaimItem) error
	ListItems(ctx context.Context, claimID uuid.UUID) ([]*ClaimItem, error)
}
