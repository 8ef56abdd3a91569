package blocking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlockedSlotNotFound = errors.New("blocked slot not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, slot BlockedSlot) (*BlockedSlot, error)
	// Delete returns ErrBlockedSlotNotFound when the row does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	ListByDate(ctx context.Context, date time.Time) ([]BlockedSlot, error)
	List(ctx context.Context, filter ListFilter) ([]BlockedSlot, error)

	// Janitor
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
