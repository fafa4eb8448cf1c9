package audit

import (
	"context"

	"github.com/google/uuid"
)

// Recorder is the ledger surface exposed to the pricing services. It is
// deliberately insert-only: no update or delete exists at any layer.
type Recorder interface {
	Record(ctx context.Context, entry *ChangeLog) error
	ListByItem(ctx context.Context, itemType string, itemID uuid.UUID, limit, offset int) ([]*ChangeLog, int, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*ChangeLog, int, error)
}
