package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("prescription not found")
	ErrAlreadyLinked = errors.New("prescription is already attached to an order")
	ErrConsumed      = errors.New("prescription has already been redeemed")
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Prescription, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// LinkToOrder attaches an unlinked prescription to an order. The update is
	// guarded by order_id IS NULL so two concurrent orders cannot both claim
	// the same prescription; the loser gets ErrAlreadyLinked.
	LinkToOrder(ctx context.Context, id, orderID uuid.UUID) error
	// DetachFromOrder clears order_id on every prescription attached to the
	// order. The bundle's consumed status is left untouched.
	DetachFromOrder(ctx context.Context, orderID uuid.UUID) error
	// UpdateFHIR persists the prescription's bundle after a status change.
	UpdateFHIR(ctx context.Context, p *Prescription) error
}
