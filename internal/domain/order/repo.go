package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the order and its line items. A duplicate access token
	// surfaces as a unique-violation error; the service retries with a fresh
	// token.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByAccessToken(ctx context.Context, token string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
}
