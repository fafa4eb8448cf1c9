package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Search matches name, MRN, or phone case-insensitively.
	Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error)
	// NextSequence returns the next value of the MRN counter.
	NextSequence(ctx context.Context) (int64, error)
}
