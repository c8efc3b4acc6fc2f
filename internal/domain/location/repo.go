package location

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, l *Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
	Update(ctx context.Context, l *Location) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Location, int, error)

	ListInventory(ctx context.Context, locationID uuid.UUID) ([]*InventoryItem, error)
	UpsertInventory(ctx context.Context, item *InventoryItem) error
}
